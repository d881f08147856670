package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pdf-workbench/internal/domain"
)

// FileKeyRepository keeps public keys as files in one directory.
type FileKeyRepository struct {
	dir    string
	logger domain.Logger
}

// NewFileKeyRepository creates a repository rooted at dir.
func NewFileKeyRepository(dir string, logger domain.Logger) domain.KeyRepository {
	return &FileKeyRepository{dir: dir, logger: logger}
}

// Get reads a key. Names may point into subdirectories of the key
// directory but never outside of it.
func (r *FileKeyRepository) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, domain.NewValidationError("name", "invalid key name")
	}

	data, err := os.ReadFile(filepath.Join(r.dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPublicKeyNotFound, name)
		}
		return nil, fmt.Errorf("read key %s: %w", name, err)
	}
	return data, nil
}

// Put stores a key directly in the key directory.
func (r *FileKeyRepository) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKeyName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write key %s: %w", name, err)
	}
	r.logger.Info("Public key stored", "name", name)
	return nil
}

// checkKeyName rejects names that are empty or that would land in a
// subdirectory.
func checkKeyName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError("name", "key name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return domain.NewValidationError("name", "no subdirectories allowed")
	}
	return nil
}
