package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttachmentStore persists uploaded file bytes and hands back an opaque
// reference. The reference, not the bytes, is what the ticket model keeps.
type AttachmentStore interface {
	Save(fileName string, content io.Reader) (string, error)
}

// LocalStore writes attachments under a base directory, grouped by date.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save streams content to disk and returns the storage key relative to the
// base directory.
func (s *LocalStore) Save(fileName string, content io.Reader) (string, error) {
	sub := time.Now().UTC().Format("2006/01/02")
	if err := os.MkdirAll(filepath.Join(s.dir, sub), 0o755); err != nil {
		return "", fmt.Errorf("create attachment subdir: %w", err)
	}

	key := filepath.Join(sub, uuid.NewString()+"_"+sanitizeFileName(fileName))
	dst, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("create attachment file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return filepath.ToSlash(key), nil
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	replacer := strings.NewReplacer(" ", "_", string(os.PathSeparator), "_")
	name = replacer.Replace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}
