package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/model"
)

const (
	maxRedirects  = 3
	maxAttempts   = 3
	retryBaseWait = 500 * time.Millisecond
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// Fetcher downloads documents named by URL
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	logger     *zap.Logger
}

// NewFetcher creates a fetcher. Bodies longer than maxBytes are rejected.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// FetchResult is a downloaded document
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
	Name        string // File name used to pick an extractor
}

// IsURL reports whether s names an http(s) document
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FetchWithRetry fetches rawURL, retrying transport errors, 429 and 5xx
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == maxAttempts || ctx.Err() != nil {
			break
		}
		f.logger.Debug("fetch failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		fetchSleepFunc(retryBaseWait * time.Duration(attempt))
	}
	return nil, lastErr
}

// Fetch retrieves one document
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,text/plain,text/markdown;q=0.9,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	// One extra byte tells an oversized body from one exactly at the limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, model.E(model.KindValidation, "extract.Fetch", "%s is larger than %d bytes", rawURL, f.maxBytes)
	}

	finalURL := resp.Request.URL.String()
	contentType := resp.Header.Get("Content-Type")
	return &FetchResult{
		Body:        body,
		ContentType: contentType,
		FinalURL:    finalURL,
		Name:        documentName(finalURL, contentType),
	}, nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	if model.IsKind(err, model.KindValidation) {
		return false
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}

// documentName derives a file name whose extension matches the content type
func documentName(rawURL, contentType string) string {
	name := "document"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return strings.TrimSuffix(name, path.Ext(name)) + ".html"
	case "text/markdown", "text/x-markdown":
		return strings.TrimSuffix(name, path.Ext(name)) + ".md"
	case "text/plain":
		if ext := path.Ext(name); ext != ".md" && ext != ".markdown" {
			return strings.TrimSuffix(name, ext) + ".txt"
		}
	case "application/pdf":
		return strings.TrimSuffix(name, path.Ext(name)) + ".pdf"
	}
	return name
}

// Load reads a document from a URL and extracts its text
func (r *Registry) Load(ctx context.Context, f *Fetcher, rawURL string) (Result, error) {
	res, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		if model.IsKind(err, model.KindValidation) {
			return Result{}, err
		}
		return Result{}, model.Wrap(err, model.KindValidation, "extract.Load")
	}
	return r.Extract(res.Name, res.Body)
}
