// Package fetch acquires catalog data files. A source is either an HTTP(S)
// URL or a local path; the file lands at the destination through a temp file
// and a rename, so a failed transfer never leaves a truncated destination.
//
// Fetch never returns an error. Every failure is reported in Result.Error and
// callers must check Result.Success.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultSource is the MTGJSON AllPrintings SQLite snapshot.
	DefaultSource = "https://mtgjson.com/api/v5/AllPrintings.sqlite"

	// DefaultTimeout bounds a whole download.
	DefaultTimeout = 10 * time.Minute
)

// Config holds fetcher configuration. Zero values take defaults.
type Config struct {
	DefaultSource string
	Timeout       time.Duration
	UserAgent     string
	Logger        *slog.Logger
}

// Result is the uniform outcome of a fetch.
type Result struct {
	Success     bool   `json:"success"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Bytes       int64  `json:"bytes,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Fetcher downloads or copies data files.
type Fetcher struct {
	client        *http.Client
	defaultSource string
	userAgent     string
	log           *slog.Logger
}

// New creates a Fetcher from cfg.
func New(cfg Config) *Fetcher {
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = DefaultSource
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cardvault"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:        &http.Client{Timeout: cfg.Timeout},
		defaultSource: cfg.DefaultSource,
		userAgent:     cfg.UserAgent,
		log:           logger,
	}
}

// Fetch places the file named by source at destination. An empty source
// means the configured default. Sources ending in .gz are decompressed
// unless destination also ends in .gz.
func (f *Fetcher) Fetch(ctx context.Context, source, destination string) Result {
	if source == "" {
		source = f.defaultSource
	}
	res := Result{Source: source}
	if destination == "" {
		res.Error = "Download failed: destination is required"
		return res
	}

	var err error
	if isURL(source) {
		res, err = f.download(ctx, source, destination)
	} else {
		res, err = f.copyLocal(source, destination)
	}
	if err != nil {
		res.Success = false
		res.Error = "Download failed: " + err.Error()
	}
	if res.Success {
		f.log.Info("catalog file fetched", "source", source, "destination", destination, "bytes", res.Bytes)
	} else {
		f.log.Warn("catalog file fetch failed", "source", source, "error", res.Error)
	}
	return res
}

func (f *Fetcher) download(ctx context.Context, url, destination string) (Result, error) {
	res := Result{Source: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return res, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Error = fmt.Sprintf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return res, nil
	}

	n, err := writeAtomic(destination, resp.Body, gunzipFor(url, destination))
	if err != nil {
		return res, err
	}
	res.Success, res.Destination, res.Bytes = true, destination, n
	return res, nil
}

func (f *Fetcher) copyLocal(source, destination string) (Result, error) {
	res := Result{Source: source}

	in, err := os.Open(source)
	if errors.Is(err, fs.ErrNotExist) {
		res.Error = "Source file not found: " + source
		return res, nil
	}
	if err != nil {
		return res, err
	}
	defer func() { _ = in.Close() }()

	n, err := writeAtomic(destination, in, gunzipFor(source, destination))
	if err != nil {
		return res, err
	}
	res.Success, res.Destination, res.Bytes = true, destination, n
	return res, nil
}

// writeAtomic streams r into a temp file next to destination, then renames
// it over destination.
func writeAtomic(destination string, r io.Reader, gunzip bool) (int64, error) {
	if gunzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return 0, fmt.Errorf("opening gzip: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating destination dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(destination)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("writing %s: %w", destination, err)
	}
	if err := os.Rename(tmpPath, destination); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("replacing %s: %w", destination, err)
	}
	return n, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func gunzipFor(source, destination string) bool {
	return strings.HasSuffix(source, ".gz") && !strings.HasSuffix(destination, ".gz")
}
