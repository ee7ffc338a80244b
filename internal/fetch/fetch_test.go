package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_LocalCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sample.sqlite")
	require.NoError(t, os.WriteFile(src, []byte("sqlite bytes"), 0o644))
	dest := filepath.Join(dir, "out", "AllPrintings.sqlite")

	res := New(Config{}).Fetch(context.Background(), src, dest)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, dest, res.Destination)
	assert.EqualValues(t, len("sqlite bytes"), res.Bytes)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "sqlite bytes", string(got))
}

func TestFetch_LocalMissing(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.sqlite")
	res := New(Config{}).Fetch(context.Background(), "/nonexistent/file.sqlite", dest)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Source file not found")
	_, err := os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "destination must not be created")
}

func TestFetch_URL(t *testing.T) {
	srv := serve(t, http.StatusOK, []byte("test data"))
	dest := filepath.Join(t.TempDir(), "AllPrintings.sqlite")

	res := New(Config{}).Fetch(context.Background(), srv.URL+"/AllPrintings.sqlite", dest)

	require.True(t, res.Success, res.Error)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "test data", string(got))
}

func TestFetch_HTTPError(t *testing.T) {
	srv := serve(t, http.StatusNotFound, nil)
	dest := filepath.Join(t.TempDir(), "AllPrintings.sqlite")
	require.NoError(t, os.WriteFile(dest, []byte("previous snapshot"), 0o644))

	res := New(Config{}).Fetch(context.Background(), srv.URL, dest)

	assert.False(t, res.Success)
	assert.Equal(t, "HTTP error: 404 Not Found", res.Error)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous snapshot", string(got), "failed fetch must not touch the destination")
}

func TestFetch_NetworkError(t *testing.T) {
	srv := serve(t, http.StatusOK, nil)
	url := srv.URL
	srv.Close()

	res := New(Config{}).Fetch(context.Background(), url, filepath.Join(t.TempDir(), "x.sqlite"))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Download failed: ")
}

func TestFetch_DefaultSource(t *testing.T) {
	srv := serve(t, http.StatusOK, []byte("mtgjson data"))
	dest := filepath.Join(t.TempDir(), "AllPrintings.sqlite")

	res := New(Config{DefaultSource: srv.URL}).Fetch(context.Background(), "", dest)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, srv.URL, res.Source)
	assert.Equal(t, DefaultSource, New(Config{}).defaultSource)
}

func TestFetch_Gunzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("decompressed"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	srv := serve(t, http.StatusOK, buf.Bytes())
	dir := t.TempDir()

	res := New(Config{}).Fetch(context.Background(), srv.URL+"/AllPrintings.sqlite.gz", filepath.Join(dir, "AllPrintings.sqlite"))
	require.True(t, res.Success, res.Error)
	got, err := os.ReadFile(filepath.Join(dir, "AllPrintings.sqlite"))
	require.NoError(t, err)
	assert.Equal(t, "decompressed", string(got))

	// Keeping the .gz extension keeps the archive as is.
	res = New(Config{}).Fetch(context.Background(), srv.URL+"/AllPrintings.sqlite.gz", filepath.Join(dir, "AllPrintings.sqlite.gz"))
	require.True(t, res.Success, res.Error)
	raw, err := os.ReadFile(filepath.Join(dir, "AllPrintings.sqlite.gz"))
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), raw)
}

func TestFetch_BadGzipLeavesNoPartialFile(t *testing.T) {
	srv := serve(t, http.StatusOK, []byte("not gzip"))
	dir := t.TempDir()

	res := New(Config{}).Fetch(context.Background(), srv.URL+"/x.sqlite.gz", filepath.Join(dir, "x.sqlite"))

	assert.False(t, res.Success)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_RequiresDestination(t *testing.T) {
	res := New(Config{}).Fetch(context.Background(), "/tmp/whatever", "")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}
