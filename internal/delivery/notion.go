// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/internal/metrics"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/internal/secrets"
	"github.com/pdiddy/deep-research/pkg/types"
)

// notionAPIBase is the Notion API root. Package-level var for test substitution.
var notionAPIBase = "https://api.notion.com/v1"

const notionVersion = "2022-06-28"

// Notion API limits.
const (
	maxChildrenPerRequest = 100
	maxRichTextLength     = 2000
)

// Notion creates one database page per report.
type Notion struct {
	apiKey     string
	databaseID string
	client     *http.Client
	logger     *zap.Logger
}

// NewNotion builds a Notion deliverer. The API key is required.
func NewNotion(cfg types.DeliveryConfig, client *http.Client, logger *zap.Logger) (*Notion, error) {
	if cfg.NotionAPIKey == "" {
		return nil, &types.ConfigurationError{Variable: secrets.Notion.Env, Component: "Notion delivery"}
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notion{
		apiKey:     cfg.NotionAPIKey,
		databaseID: cfg.NotionDatabaseID,
		client:     client,
		logger:     logger,
	}, nil
}

// Deliver creates a page in the destination database (or the configured
// one) and returns its id. Layout blocks beyond the first request's limit
// are appended in batches.
func (n *Notion) Deliver(ctx context.Context, r *types.ResearchReport, destination string) (pageID string, err error) {
	defer func() { metrics.RecordDelivery(KindNotion, err) }()

	databaseID := destination
	if databaseID == "" {
		databaseID = n.databaseID
	}
	if databaseID == "" {
		return "", &types.DeliveryError{
			Destination: KindNotion,
			Err:         fmt.Errorf("no database id: set %s or pass a destination", secrets.NotionDatabaseID.Env),
		}
	}
	fail := func(err error) error {
		return &types.DeliveryError{Destination: "notion database " + databaseID, Err: err}
	}

	blocks := notionBlocks(report.Layout(r))
	first := blocks
	if len(first) > maxChildrenPerRequest {
		first = first[:maxChildrenPerRequest]
	}

	var created struct {
		ID string `json:"id"`
	}
	page := notionPage{
		Parent:     notionParent{DatabaseID: databaseID},
		Properties: pageProperties(r),
		Children:   first,
	}
	if err := n.call(ctx, http.MethodPost, notionAPIBase+"/pages", page, &created); err != nil {
		return "", fail(fmt.Errorf("creating page: %w", err))
	}
	if created.ID == "" {
		return "", fail(errors.New("creating page: response carried no page id"))
	}

	for rest := blocks[len(first):]; len(rest) > 0; {
		batch := rest
		if len(batch) > maxChildrenPerRequest {
			batch = batch[:maxChildrenPerRequest]
		}
		rest = rest[len(batch):]
		body := struct {
			Children []notionBlock `json:"children"`
		}{batch}
		if err := n.call(ctx, http.MethodPatch, notionAPIBase+"/blocks/"+created.ID+"/children", body, nil); err != nil {
			return "", fail(fmt.Errorf("appending blocks to page %s: %w", created.ID, err))
		}
	}

	n.logger.Info("report delivered to Notion",
		zap.String("report", r.ID), zap.String("page", created.ID), zap.Int("blocks", len(blocks)))
	return created.ID, nil
}

// call sends one JSON request and decodes the response into out when out
// is non-nil.
func (n *Notion) call(ctx context.Context, method, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, n.client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type notionPage struct {
	Parent     notionParent   `json:"parent"`
	Properties map[string]any `json:"properties"`
	Children   []notionBlock  `json:"children"`
}

type notionParent struct {
	DatabaseID string `json:"database_id"`
}

type notionRichText struct {
	Type        string             `json:"type"`
	Text        notionText         `json:"text"`
	Annotations *notionAnnotations `json:"annotations,omitempty"`
}

type notionText struct {
	Content string      `json:"content"`
	Link    *notionLink `json:"link,omitempty"`
}

type notionLink struct {
	URL string `json:"url"`
}

type notionAnnotations struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
}

// notionBlock is one block object; its payload key varies with its type.
type notionBlock map[string]any

func pageProperties(r *types.ResearchReport) map[string]any {
	depth := r.Query.Depth
	if depth == "" {
		depth = types.DepthStandard
	}
	return map[string]any{
		"Name":           map[string]any{"title": []notionRichText{richText(report.Span{Text: report.Title(r)})}},
		"Status":         map[string]any{"select": map[string]string{"name": "Completed"}},
		"Research Depth": map[string]any{"select": map[string]string{"name": string(depth)}},
		"Confidence":     map[string]any{"number": report.ConfidencePercent(r)},
		"Read Time":      map[string]any{"number": r.EstimatedReadTime},
		"Sources":        map[string]any{"number": len(r.Sources)},
		"Created":        map[string]any{"date": map[string]string{"start": r.CreatedAt.UTC().Format(time.RFC3339)}},
	}
}

var notionBlockTypes = map[report.BlockKind]string{
	report.Heading1:  "heading_1",
	report.Heading2:  "heading_2",
	report.Heading3:  "heading_3",
	report.Paragraph: "paragraph",
	report.Bullet:    "bulleted_list_item",
	report.Divider:   "divider",
}

func notionBlocks(layout []report.Block) []notionBlock {
	blocks := make([]notionBlock, 0, len(layout))
	for _, b := range layout {
		kind := notionBlockTypes[b.Kind]
		if kind == "" {
			continue
		}
		var payload any = struct{}{}
		if b.Kind != report.Divider {
			rt := make([]notionRichText, 0, len(b.Spans))
			for _, s := range b.Spans {
				if s.Text != "" {
					rt = append(rt, richText(s))
				}
			}
			payload = map[string]any{"rich_text": rt}
		}
		blocks = append(blocks, notionBlock{"object": "block", "type": kind, kind: payload})
	}
	return blocks
}

func richText(s report.Span) notionRichText {
	rt := notionRichText{Type: "text", Text: notionText{Content: truncate(s.Text, maxRichTextLength)}}
	if s.Link != "" && len(s.Link) <= maxRichTextLength {
		rt.Text.Link = &notionLink{URL: s.Link}
	}
	if s.Bold || s.Italic {
		rt.Annotations = &notionAnnotations{Bold: s.Bold, Italic: s.Italic}
	}
	return rt
}

// truncate shortens s to at most max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
