package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.Handler) *storage.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// TestPutObjectUploads checks the multipart upload request and the returned URI.
func TestPutObjectUploads(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/zipline-snapshots/o")
		assert.Equal(t, "problem/1000.html", r.URL.Query().Get("name"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "<html>1000</html>")
		assert.Contains(t, string(body), "text/html")
		_, _ = fmt.Fprintln(w, `{"name": "problem/1000.html", "bucket": "zipline-snapshots"}`)
	})

	store, err := New(newTestClient(t, handler), Config{Bucket: "zipline-snapshots"})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "problem/1000.html", "text/html", bytes.NewReader([]byte("<html>1000</html>")))
	require.NoError(t, err)
	assert.Equal(t, "gs://zipline-snapshots/problem/1000.html", uri)
	require.NoError(t, store.Close())
}

// TestPutObjectServerError surfaces upload failures.
func TestPutObjectServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	store, err := New(newTestClient(t, handler), Config{Bucket: "zipline-snapshots"})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "problem/1000.html", "text/html", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.PutObject(context.Background(), " ", "text/html", strings.NewReader("x"))
	assert.Error(t, err)
}

// TestNewValidates requires a client and a bucket.
func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = New(&storage.Client{}, Config{})
	assert.Error(t, err)
}
