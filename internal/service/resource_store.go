package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"pdf-workbench/internal/domain"
)

// ResourceStore reads and writes small resources by location, which is
// either an http(s) URL or a local file path.
type ResourceStore interface {
	Get(ctx context.Context, location string) ([]byte, error)
	Put(ctx context.Context, location string, data []byte) error
}

type resourceStore struct {
	client *http.Client
	logger domain.Logger
}

// NewResourceStore creates a store whose network calls give up after timeout.
func NewResourceStore(timeout time.Duration, logger domain.Logger) ResourceStore {
	return &resourceStore{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// IsURL reports whether location names an http or https resource.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (s *resourceStore) Get(ctx context.Context, location string) ([]byte, error) {
	if !IsURL(location) {
		data, err := os.ReadFile(location)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPublicKeyNotFound, location)
		}
		return data, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrPublicKeyNotFound, location)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", location, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s *resourceStore) Put(ctx context.Context, location string, data []byte) error {
	if !IsURL(location) {
		if dir := filepath.Dir(location); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		return os.WriteFile(location, data, 0o644)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, location, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-pem-file")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("upload to %s failed: status %d", location, resp.StatusCode)
	}
	s.logger.Debug("Resource uploaded", "location", location, "bytes", len(data))
	return nil
}
