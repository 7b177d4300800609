package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/hyperengineering/pindex/internal/report"
	"github.com/hyperengineering/pindex/internal/types"
)

// ReportBuilder builds the report of a project.
type ReportBuilder interface {
	Build(ctx context.Context, projectID string) (*report.Report, error)
}

// Exporter writes project reports as JSON archives.
type Exporter struct {
	builder  ReportBuilder
	uploader Uploader
	dir      string
	logger   *slog.Logger
	now      func() time.Time
}

// NewExporter creates an Exporter writing archives below dir.
func NewExporter(builder ReportBuilder, uploader Uploader, dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		builder:  builder,
		uploader: uploader,
		dir:      dir,
		logger:   logger.With("component", "export"),
		now:      time.Now,
	}
}

// Export builds the project's report, writes it atomically to
// {dir}/{project_id}/report-{timestamp}.json and uploads it. URL and
// ExpiresAt are set only when remote storage is configured.
func (e *Exporter) Export(ctx context.Context, projectID string) (*types.ExportResult, error) {
	r, err := e.builder.Build(ctx, projectID)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	fileName := "report-" + e.now().UTC().Format("20060102T150405Z") + ".json"
	projectDir := filepath.Join(e.dir, projectID)
	if err := os.MkdirAll(projectDir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(projectDir, fileName)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("write report archive: %w", err)
	}

	result := &types.ExportResult{
		ProjectID: projectID,
		Location:  path,
		SizeBytes: int64(len(data)),
	}

	key := ObjectKey(projectID, fileName)
	if err := e.uploader.Upload(ctx, key, path); err != nil {
		return nil, err
	}

	url, expiry, err := e.uploader.PresignedURL(ctx, key)
	switch {
	case errors.Is(err, ErrNotConfigured):
	case err != nil:
		return nil, err
	default:
		result.URL = url
		result.ExpiresAt = &expiry
	}

	e.logger.Info("report exported",
		"action", "export",
		"project_id", projectID,
		"path", path,
		"size_bytes", result.SizeBytes,
		"uploaded", result.URL != "",
	)
	return result, nil
}
