// Package receipts stores uploaded receipt files and renders printable
// receipt documents for settled months.
package receipts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"feeledger/internal/store"
)

// LocalUploader writes receipt files into a directory on disk. The returned
// reference is a path under /receipts/files/ that the HTTP server serves from
// the same directory.
type LocalUploader struct {
	dir string
}

var _ store.ReceiptUploader = (*LocalUploader)(nil)

// NewLocalUploader creates the directory if needed.
func NewLocalUploader(dir string) (*LocalUploader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("empty receipt directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipt directory: %w", err)
	}
	return &LocalUploader{dir: dir}, nil
}

// Upload stores the content under a random name, keeping only the original
// extension. Client-chosen filenames never touch the filesystem.
func (u *LocalUploader) Upload(_ context.Context, filename string, content io.Reader) (string, error) {
	ext := safeExtension(filename)
	name := uuid.NewString() + ext

	dst, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	return "/receipts/files/" + name, nil
}

// Dir returns the storage directory, for the HTTP file server.
func (u *LocalUploader) Dir() string {
	return u.dir
}

func safeExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf", ".png", ".jpg", ".jpeg", ".webp":
		return ext
	default:
		return ".bin"
	}
}
