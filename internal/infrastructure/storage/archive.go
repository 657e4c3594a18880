package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"RecordSync/internal/domain"
	"RecordSync/internal/ports"
)

// FileArchive stores artifacts under root/congress_<n>/.
type FileArchive struct {
	root string
}

var _ ports.Archive = (*FileArchive)(nil)

// NewFileArchive binds the archive to its root directory.
func NewFileArchive(root string) *FileArchive {
	return &FileArchive{root: root}
}

// Root returns the archive root.
func (a *FileArchive) Root() string {
	return a.root
}

// EnsureRoot creates the archive root if needed and reports whether it had
// to be created.
func (a *FileArchive) EnsureRoot() (bool, error) {
	if _, err := os.Stat(a.root); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat archive root: %w", err)
	}
	if err := os.MkdirAll(a.root, 0o755); err != nil {
		return false, fmt.Errorf("create archive root: %w", err)
	}
	return true, nil
}

// CongressDir is the directory holding one congress' artifacts.
func (a *FileArchive) CongressDir(congress int) string {
	return filepath.Join(a.root, CongressDirName(congress))
}

// ContentPath is where the content file of an article lives.
func (a *FileArchive) ContentPath(article domain.Downloadable) string {
	return filepath.Join(a.CongressDir(article.Issue.Congress), ArtifactBaseName(article))
}

// HasCongress reports whether the congress directory exists.
func (a *FileArchive) HasCongress(congress int) (bool, error) {
	info, err := os.Stat(a.CongressDir(congress))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat congress dir: %w", err)
	}
	return info.IsDir(), nil
}

// EnsureCongress creates the congress directory if needed.
func (a *FileArchive) EnsureCongress(congress int) error {
	if err := os.MkdirAll(a.CongressDir(congress), 0o755); err != nil {
		return fmt.Errorf("create congress dir: %w", err)
	}
	return nil
}

// Exists reports whether the content file of the article is present.
func (a *FileArchive) Exists(article domain.Downloadable) bool {
	_, err := os.Stat(a.ContentPath(article))
	return err == nil
}

// Save writes content and sidecar. Both are staged first; the sidecar is
// moved into place before the content, so a visible content file always
// has its metadata next to it.
func (a *FileArchive) Save(article domain.Downloadable, content []byte, meta domain.ArtifactMetadata) (string, error) {
	contentPath := a.ContentPath(article)
	sidecarPath := SidecarPath(contentPath)

	rawMeta, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	contentTmp, err := stageFile(contentPath, content)
	if err != nil {
		return "", err
	}
	sidecarTmp, err := stageFile(sidecarPath, append(rawMeta, '\n'))
	if err != nil {
		_ = os.Remove(contentTmp)
		return "", err
	}

	if err := os.Rename(sidecarTmp, sidecarPath); err != nil {
		_ = os.Remove(contentTmp)
		_ = os.Remove(sidecarTmp)
		return "", fmt.Errorf("place metadata: %w", err)
	}
	if err := os.Rename(contentTmp, contentPath); err != nil {
		_ = os.Remove(contentTmp)
		_ = os.Remove(sidecarPath)
		return "", fmt.Errorf("place content: %w", err)
	}
	return contentPath, nil
}
