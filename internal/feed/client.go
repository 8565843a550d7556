// Package feed downloads bulk datasets from the vendor API and loads
// them into frames. The client owns freshness checks and rate
// limiting; parsing and header validation live in the loaders.
package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"fundata/internal/config"
	apierrors "fundata/internal/errors"
	"fundata/internal/infrastructure"
	"fundata/pkg/domain"
)

// maxErrorBody bounds how much of an error response is read for the
// vendor message.
const maxErrorBody = 4 << 10

// Client talks to the vendor bulk endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	downloadDir string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient builds a client from the configuration. A nil logger falls
// back to the process logger.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.API.BaseURL, "/"),
		apiKey:      cfg.API.Key,
		downloadDir: cfg.DownloadDir(),
		httpClient:  &http.Client{Timeout: cfg.API.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.Burst),
		logger:      logger,
	}
}

// LocalPath returns where a dataset download is stored.
func (c *Client) LocalPath(d domain.Dataset, v domain.Variant, m domain.Market) string {
	return filepath.Join(c.downloadDir, domain.Filename(d, v, m))
}

// bulkURL composes the download URL for a validated dataset selection.
func (c *Client) bulkURL(d domain.Dataset, v domain.Variant, m domain.Market) string {
	q := url.Values{}
	q.Set("dataset", string(d))
	if v != domain.VariantNone {
		q.Set("variant", string(v))
	}
	if m != domain.MarketNone {
		q.Set("market", string(m))
	}
	q.Set("api-key", c.apiKey)
	return c.baseURL + "/bulk?" + q.Encode()
}

// Download fetches the dataset unconditionally and installs it at its
// local path, returning that path. The response may be a zip archive
// holding one CSV or a bare CSV. Partial downloads never replace an
// existing file.
func (c *Client) Download(ctx context.Context, d domain.Dataset, v domain.Variant, m domain.Market) (string, error) {
	info, err := domain.Validate(d, v, m)
	if err != nil {
		return "", apierrors.NewValidationError("dataset selection", err)
	}

	ctx, span := infrastructure.StartSpan(ctx, "feed.download")
	defer span.End()

	jobID := uuid.NewString()
	logger := c.logger.With(
		slog.String("job_id", jobID),
		slog.String("dataset", string(d)),
		slog.String("variant", string(v)),
		slog.String("market", string(m)))

	logger.InfoContext(ctx, "downloading dataset",
		slog.String("description", info.Description))
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", apierrors.NewNetworkError("waiting for rate limiter", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bulkURL(d, v, m), nil)
	if err != nil {
		return "", apierrors.NewNetworkError("building request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierrors.NewNetworkError(
			fmt.Sprintf("downloading %s", domain.Filename(d, v, m)), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apierrors.NewServerError(resp.StatusCode, vendorMessage(resp.Body))
	}

	dest := c.LocalPath(d, v, m)
	size, err := c.install(resp.Body, dest)
	if err != nil {
		return "", err
	}

	logger.InfoContext(ctx, "dataset downloaded",
		slog.String("path", dest),
		slog.Int64("bytes", size),
		slog.Duration("elapsed", time.Since(start)))
	return dest, nil
}

// EnsureFresh downloads the dataset unless the local copy is younger
// than refreshDays. Zero forces a download, negative accepts any
// existing file. Returns the local path.
func (c *Client) EnsureFresh(ctx context.Context, d domain.Dataset, v domain.Variant, m domain.Market, refreshDays int) (string, error) {
	if _, err := domain.Validate(d, v, m); err != nil {
		return "", apierrors.NewValidationError("dataset selection", err)
	}

	path := c.LocalPath(d, v, m)
	if info, err := os.Stat(path); err == nil && refreshDays != 0 {
		age := time.Since(info.ModTime())
		if refreshDays < 0 || age <= time.Duration(refreshDays)*24*time.Hour {
			c.logger.DebugContext(ctx, "dataset is fresh",
				slog.String("path", path),
				slog.Duration("age", age))
			return path, nil
		}
	}
	return c.Download(ctx, d, v, m)
}

// Spec selects one dataset for DownloadAll.
type Spec struct {
	Dataset     domain.Dataset
	Variant     domain.Variant
	Market      domain.Market
	RefreshDays int
}

// DownloadAll warms several datasets concurrently, at most limit
// downloads in flight. Each dataset is attempted regardless of the
// others' outcome; the returned error joins every failure.
func (c *Client) DownloadAll(ctx context.Context, specs []Spec, limit int) error {
	if limit < 1 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	var failures []error
	for _, spec := range specs {
		g.Go(func() error {
			_, err := c.EnsureFresh(ctx, spec.Dataset, spec.Variant, spec.Market, spec.RefreshDays)
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w",
					domain.Filename(spec.Dataset, spec.Variant, spec.Market), err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if len(failures) > 0 {
		return apierrors.NewNetworkError(
			fmt.Sprintf("%d of %d datasets failed", len(failures), len(specs)),
			errors.Join(failures...))
	}
	return nil
}

// install writes the response body to a temp file, unwraps a zip
// archive when the payload is one, and renames the CSV into place.
func (c *Client) install(body io.Reader, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, apierrors.NewStorageError("creating download directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, apierrors.NewStorageError("creating temp file", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, apierrors.NewNetworkError("reading response body", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, apierrors.NewStorageError("closing temp file", err)
	}

	if isZip(tmpName) {
		extracted, n, err := extractCSV(tmpName)
		os.Remove(tmpName)
		if err != nil {
			return 0, err
		}
		tmpName, size = extracted, n
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return 0, apierrors.NewStorageError("installing dataset file", err)
	}
	return size, nil
}

// extractCSV streams the single CSV member of the zip archive at path
// into a sibling temp file and returns that file's name. The caller
// removes the archive.
func extractCSV(path string) (string, int64, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", 0, apierrors.NewParsingError("opening zip archive", err)
	}
	defer reader.Close()

	var member *zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			member = f
			break
		}
	}
	if member == nil {
		return "", 0, apierrors.NewParsingError("zip archive contains no csv", nil)
	}

	rc, err := member.Open()
	if err != nil {
		return "", 0, apierrors.NewParsingError("opening zip member", err)
	}
	defer rc.Close()

	out, err := os.CreateTemp(filepath.Dir(path), ".extract-*")
	if err != nil {
		return "", 0, apierrors.NewStorageError("creating extract file", err)
	}

	n, err := io.Copy(out, rc)
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", 0, apierrors.NewParsingError("extracting zip member", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", 0, apierrors.NewStorageError("closing extract file", err)
	}
	return out.Name(), n, nil
}

// isZip sniffs the local-file-header magic.
func isZip(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	return bytes.Equal(magic, []byte{'P', 'K', 0x03, 0x04})
}

// vendorMessage extracts the error message from a non-200 response,
// preferring the JSON error field the API uses and falling back to the
// raw body.
func vendorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return "no error details provided"
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return string(bytes.TrimSpace(data))
}
