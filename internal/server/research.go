// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/delivery"
	"github.com/pdiddy/deep-research/pkg/types"
)

type deepResearchRequest struct {
	Query         string   `json:"query"`
	Depth         string   `json:"depth"`
	Context       string   `json:"context"`
	FocusAreas    []string `json:"focusAreas"`
	ExcludeTopics []string `json:"excludeTopics"`

	// Deliver names a delivery kind; Destination overrides its default target.
	Deliver     string `json:"deliver"`
	Destination string `json:"destination"`

	// Older clients ask for Notion delivery with these two fields.
	DeliverToNotion  bool   `json:"deliverToNotion"`
	NotionDatabaseID string `json:"notionDatabaseId"`
}

type deepResearchResponse struct {
	Success       bool                  `json:"success"`
	ReportID      string                `json:"reportId"`
	Report        *types.ResearchReport `json:"report,omitempty"`
	DeliveryID    string                `json:"deliveryId,omitempty"`
	DeliveryError string                `json:"deliveryError,omitempty"`

	// EstimatedTime is the elapsed research time in milliseconds.
	EstimatedTime int64  `json:"estimatedTime,omitempty"`
	Error         string `json:"error,omitempty"`
}

// deliveryTarget resolves the requested delivery kind and destination.
// An empty kind means no delivery.
func (req deepResearchRequest) deliveryTarget() (kind, destination string, err error) {
	kind = strings.ToLower(strings.TrimSpace(req.Deliver))
	destination = req.Destination
	if kind == "" && req.DeliverToNotion {
		kind = delivery.KindNotion
	}
	if kind == delivery.KindNotion && destination == "" {
		destination = req.NotionDatabaseID
	}
	switch kind {
	case "", delivery.KindNotion, delivery.KindFile:
		return kind, destination, nil
	default:
		return "", "", &types.ValidationError{Field: "deliver", Message: fmt.Sprintf("unknown delivery target %q (want notion or file)", req.Deliver)}
	}
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, msg string) {
		s.writeJSON(w, status, deepResearchResponse{Error: msg})
	}

	if s.opts.Research == nil {
		msg := "deep research is not configured"
		if s.opts.ResearchUnavailable != nil {
			msg = s.opts.ResearchUnavailable.Error()
		}
		fail(http.StatusServiceUnavailable, msg)
		return
	}

	var req deepResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	kind, destination, err := req.deliveryTarget()
	if err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.opts.ResearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ResearchTimeout)
		defer cancel()
	}

	start := s.now()
	report, err := s.opts.Research.Run(ctx, types.ResearchQuery{
		OriginalQuery: req.Query,
		Context:       req.Context,
		Depth:         types.Depth(req.Depth),
		FocusAreas:    req.FocusAreas,
		ExcludeTopics: req.ExcludeTopics,
	})
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("deep research failed", zap.String("query", req.Query), zap.Error(err))
		}
		fail(status, err.Error())
		return
	}

	resp := deepResearchResponse{
		Success:       true,
		ReportID:      report.ID,
		Report:        report,
		EstimatedTime: s.now().Sub(start).Milliseconds(),
	}
	if kind != "" {
		resp.DeliveryID, err = s.deliver(ctx, kind, report, destination)
		if err != nil {
			s.logger.Warn("report delivery failed", zap.String("report", report.ID), zap.Error(err))
			resp.DeliveryError = err.Error()
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deliver(ctx context.Context, kind string, report *types.ResearchReport, destination string) (string, error) {
	d, ok := s.opts.Deliverers[kind]
	if !ok {
		return "", &types.DeliveryError{Destination: kind, Err: errors.New("delivery target is not configured")}
	}
	return d.Deliver(ctx, report, destination)
}

// handleReportLookup answers 501: reports are not stored server-side.
func (s *Server) handleReportLookup(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "report id is required")
		return
	}
	s.writeJSON(w, http.StatusNotImplemented, map[string]string{
		"message":  "report retrieval is not implemented",
		"reportId": id,
	})
}
