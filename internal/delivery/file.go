// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/metrics"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultOutputDir = "reports"

// File writes rendered reports into a directory as <report id>.<ext>.
type File struct {
	dir    string
	format report.Format
	logger *zap.Logger
}

// NewFile builds a file deliverer from the output directory and format in cfg.
func NewFile(cfg types.DeliveryConfig, logger *zap.Logger) (*File, error) {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	dir := cfg.OutputDir
	if dir == "" {
		dir = defaultOutputDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{dir: dir, format: format, logger: logger}, nil
}

// Deliver renders r into destination (or the configured directory) and
// returns the written path.
func (f *File) Deliver(ctx context.Context, r *types.ResearchReport, destination string) (path string, err error) {
	defer func() { metrics.RecordDelivery(KindFile, err) }()

	dir := destination
	if dir == "" {
		dir = f.dir
	}
	fail := func(err error) error {
		return &types.DeliveryError{Destination: dir, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", fail(err)
	}

	data, err := report.Render(r, f.format)
	if err != nil {
		return "", fail(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fail(fmt.Errorf("creating output directory: %w", err))
	}
	path = filepath.Join(dir, r.ID+"."+f.format.Ext())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fail(fmt.Errorf("writing report: %w", err))
	}

	f.logger.Info("report written", zap.String("report", r.ID), zap.String("path", path))
	return path, nil
}
