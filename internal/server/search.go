// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Defaults for the GET form of the unified search endpoint.
const (
	getDefaultSource     = types.SourceWeb
	getDefaultMaxResults = 10
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var params types.UnifiedSearchParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	s.runSearch(w, r, params)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := types.UnifiedSearchParams{
		Query:      q.Get("query"),
		Sources:    []types.Source{getDefaultSource},
		MaxResults: getDefaultMaxResults,
		SortBy:     types.SortBy(q.Get("sortBy")),
	}
	if raw := q.Get("sources"); raw != "" {
		sources, err := types.ParseSources(strings.Split(raw, ","))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Sources = sources
	}
	s.runSearch(w, r, params)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, params types.UnifiedSearchParams) {
	resp, err := s.search.Search(r.Context(), params)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("unified search failed", zap.String("query", params.Query), zap.Error(err))
			s.writeError(w, status, "internal search error")
			return
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"filters": search.AvailableFilters(),
		"sources": search.Sources(),
	})
}
