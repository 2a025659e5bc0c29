// Package source loads snapshot documents from files and HTTP endpoints.
package source

import (
	"context"
	"os"
	"strings"
	"time"

	"constellations/application/snapshot"
	pkgerrors "constellations/pkg/errors"

	"go.uber.org/zap"
)

// Source produces snapshot documents.
type Source interface {
	Fetch(ctx context.Context) (*snapshot.Document, error)
}

// FileSource reads a JSON document from disk. The path "-" reads stdin.
type FileSource struct {
	path string
}

// NewFileSource creates a file source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(ctx context.Context) (*snapshot.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == "-" {
		return snapshot.Decode(os.Stdin)
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NewNotFoundError("snapshot file " + s.path)
		}
		return nil, pkgerrors.Wrap(err, "open snapshot file")
	}
	defer f.Close()
	return snapshot.Decode(f)
}

// New picks an HTTP source for http(s) URLs and a file source otherwise.
func New(location string, timeout time.Duration, logger *zap.Logger) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		cfg := DefaultHTTPSourceConfig(location)
		if timeout > 0 {
			cfg.Timeout = timeout
		}
		return NewHTTPSource(cfg, logger)
	}
	return NewFileSource(location)
}
