package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"RecordSync/internal/domain"
	"RecordSync/internal/ports"
)

// ErrCatalogMissing means no catalog has been written yet.
var ErrCatalogMissing = errors.New("catalog file does not exist")

// ErrCatalogCorrupt means the catalog file exists but cannot be decoded.
var ErrCatalogCorrupt = errors.New("catalog file is not valid json")

// CatalogFile keeps the issue catalog as one JSON array on disk.
type CatalogFile struct {
	path string
}

var _ ports.CatalogStore = (*CatalogFile)(nil)

// NewCatalogFile binds the store to a file path.
func NewCatalogFile(path string) *CatalogFile {
	return &CatalogFile{path: path}
}

// Path returns the backing file.
func (c *CatalogFile) Path() string {
	return c.path
}

// Load decodes the catalog. A missing file yields ErrCatalogMissing and an
// undecodable one ErrCatalogCorrupt, both wrapped.
func (c *CatalogFile) Load(ctx context.Context) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", c.path, err)
	}

	var issues []domain.Issue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogCorrupt, c.path, err)
	}
	return issues, nil
}

// Save replaces the catalog file in full.
func (c *CatalogFile) Save(ctx context.Context, issues []domain.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}

	raw, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create catalog dir: %w", err)
		}
	}
	if err := writeFileAtomic(c.path, append(raw, '\n')); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
