package filestore

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// Providers
const (
	ProviderGCS   = "gcs"
	ProviderLocal = "local"
)

type (
	// File describes a stored upload.
	File struct {
		Name         string `json:"file_name"`
		OriginalName string `json:"original_name"`
		URL          string `json:"file_url"`
		ContentType  string `json:"content_type"`
		Size         int64  `json:"size"`
	}

	// Store is any service that can persist uploaded files and serve them at a public URL.
	Store interface {
		Save(ctx context.Context, originalName, contentType string, r io.Reader) (File, error)
	}
)

// ObjectName returns a unique name for an upload, keeping the extension of the original file.
func ObjectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return uuid.New().String() + ext
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the configured store. The closer releases its client, if any.
func New(ctx context.Context, conf *core.Config) (Store, io.Closer, error) {
	switch conf.Storage.Provider {
	case ProviderGCS:
		s, err := NewGCSStore(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case ProviderLocal, "":
		s, err := NewLocalStore(conf)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	}
	return nil, nil, errors.Errorf("unknown storage provider %q", conf.Storage.Provider)
}
