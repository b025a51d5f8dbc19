package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nergy-TCGeneric/Zipline/internal/storage/memory"
)

// TestPrefixedJoinsPaths applies the configured prefix once.
func TestPrefixedJoinsPaths(t *testing.T) {
	t.Parallel()

	m := &MockBlobStore{}
	m.On("PutObject", mock.Anything, "boj/steps/a.html", "text/html", mock.Anything).Return("memory://boj/steps/a.html", nil)

	uri, err := Prefixed(m, "/boj/").PutObject(context.Background(), "steps/a.html", "text/html", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "memory://boj/steps/a.html", uri)
	m.AssertExpectations(t)

	require.Same(t, m, Prefixed(m, ""))
	require.Nil(t, Prefixed(nil, "boj"))
}

// TestOpenBackends builds each local backend and rejects unknown names.
func TestOpenBackends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store, closeFn, err := Open(ctx, Config{Backend: BackendNone}, nil)
	require.NoError(t, err)
	require.Nil(t, store)
	require.NoError(t, closeFn())

	store, _, err = Open(ctx, Config{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	require.IsType(t, &memory.BlobStore{}, store)

	dir := t.TempDir()
	store, closeFn, err = Open(ctx, Config{Backend: "LOCAL", Dir: dir, Prefix: "boj"}, nil)
	require.NoError(t, err)
	uri, err := store.PutObject(ctx, "problem/1000.html", "text/html", strings.NewReader("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "boj", "problem", "1000.html"), uri)
	require.NoError(t, closeFn())

	_, _, err = Open(ctx, Config{Backend: BackendLocal}, nil)
	require.Error(t, err)
	_, _, err = Open(ctx, Config{Backend: "s3"}, nil)
	require.ErrorContains(t, err, "unknown snapshot backend")
}
