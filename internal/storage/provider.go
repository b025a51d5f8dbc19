// Package storage selects the backend that keeps raw page snapshots. The
// backends live in subpackages (memory, local, gcs); this package wires one
// of them from configuration and applies the object prefix.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Nergy-TCGeneric/Zipline/internal/storage/gcs"
	"github.com/Nergy-TCGeneric/Zipline/internal/storage/local"
	"github.com/Nergy-TCGeneric/Zipline/internal/storage/memory"
)

// BlobStore persists one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Supported backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendGCS    = "gcs"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string
	Dir       string
	GCSBucket string
	Prefix    string
}

// Open builds the configured store. It returns a nil store for BackendNone
// and a close func that is always safe to call.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (BlobStore, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }
	var (
		store   BlobStore
		closeFn = noop
	)
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, noop, nil
	case BackendMemory:
		store = memory.NewBlobStore()
	case BackendLocal:
		s, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, noop, fmt.Errorf("open local snapshots: %w", err)
		}
		store = s
	case BackendGCS:
		s, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, noop, fmt.Errorf("open gcs snapshots: %w", err)
		}
		store, closeFn = s, s.Close
	default:
		return nil, noop, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
	logger.Debug("snapshot store ready", zap.String("backend", cfg.Backend), zap.String("prefix", cfg.Prefix))
	return Prefixed(store, cfg.Prefix), closeFn, nil
}

// Prefixed places every object of store under prefix.
func Prefixed(store BlobStore, prefix string) BlobStore {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || store == nil {
		return store
	}
	return prefixedStore{BlobStore: store, prefix: prefix}
}

type prefixedStore struct {
	BlobStore
	prefix string
}

func (p prefixedStore) PutObject(ctx context.Context, name string, contentType string, data io.Reader) (string, error) {
	return p.BlobStore.PutObject(ctx, path.Join(p.prefix, name), contentType, data)
}
