// Package exporter provides the GLB sources ss-sync can synchronize: a file on
// disk or an object in an S3-compatible bucket.
package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
)

// FileExporter reads a GLB artifact written by an external tool.
type FileExporter struct {
	Path string
}

var _ core.Exporter = (*FileExporter)(nil)

func NewFileExporter(path string) *FileExporter {
	return &FileExporter{Path: path}
}

// ExportBinary reads the file on a separate goroutine.
func (e *FileExporter) ExportBinary(ctx context.Context) *core.Future {
	return core.Go(ctx, func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Path, err)
		}
		return data, nil
	})
}

// FileProject is open while its file exists.
type FileProject struct {
	Path string
	// ModelName overrides the name derived from Path.
	ModelName string
}

var _ core.Project = (*FileProject)(nil)

func (p *FileProject) Open() bool {
	info, err := os.Stat(p.Path)
	return err == nil && info.Mode().IsRegular()
}

func (p *FileProject) Name() string {
	if p.ModelName != "" {
		return p.ModelName
	}
	return ModelNameFromPath(p.Path)
}

// ModelNameFromPath returns the base name of path without its extension.
func ModelNameFromPath(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
