package storage

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	userAgent       = "community-ranker"
	contentEncoding = "gzip"
)

// HTTPStorage downloads workbooks published behind a URL.
type HTTPStorage struct {
	base       string
	HTTPClient *http.Client
	logger     *zap.Logger
}

func NewHTTP(base string, logger *zap.Logger) (*HTTPStorage, error) {
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid storage url %q", base)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPStorage{
		base:       strings.TrimSuffix(base, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

func (h *HTTPStorage) Store(context.Context, io.Reader, string) (Object, error) {
	return Object{}, ErrReadOnly
}

// Get downloads base/key, or base itself when key is empty.
func (h *HTTPStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	target := h.base
	if key != "" {
		target += "/" + strings.TrimPrefix(key, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	h.logger.Debug("make request", zap.String("url", target))
	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp.Body, nil
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &gzipBody{Reader: gz, body: resp.Body}, nil
}

type gzipBody struct {
	*gzip.Reader
	body io.Closer
}

func (g *gzipBody) Close() error {
	g.Reader.Close()
	return g.body.Close()
}
