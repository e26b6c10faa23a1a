// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package delivery publishes finished research reports to a destination:
// a Notion database or a directory of rendered files. A failed delivery is
// reported as *types.DeliveryError and never invalidates the report.
package delivery

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Delivery kinds.
const (
	KindNotion = "notion"
	KindFile   = "file"
)

// Deliverer publishes a report and returns an identifier for the published
// copy (a page id or a file path). An empty destination selects the
// deliverer's configured default.
type Deliverer interface {
	Deliver(ctx context.Context, r *types.ResearchReport, destination string) (string, error)
}

// New builds the deliverer for kind.
func New(kind string, cfg types.DeliveryConfig, client *http.Client, logger *zap.Logger) (Deliverer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindNotion:
		n, err := NewNotion(cfg, client, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case KindFile:
		f, err := NewFile(cfg, logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, &types.ValidationError{Field: "deliver", Message: fmt.Sprintf("unknown delivery target %q (want notion or file)", kind)}
	}
}
