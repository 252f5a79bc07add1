// Package fs stores product images on the local filesystem.
package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/b2bsync"
)

// Ensure ImageStore implements b2bsync.ImageStore at compile time.
var _ b2bsync.ImageStore = (*ImageStore)(nil)

// codeReplacer maps characters that are unsafe in file names to underscores.
var codeReplacer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeCode turns a product code into a safe file name stem.
func SanitizeCode(code string) string {
	s := codeReplacer.Replace(strings.TrimSpace(code))
	if s == "." || s == ".." {
		return strings.Repeat("_", len(s))
	}
	return s
}

// ImageStore keeps one image per product code under root/images/products.
// Paths returned by Find and Save are relative to root and use forward
// slashes.
type ImageStore struct {
	root string
}

// NewImageStore creates an ImageStore rooted at the data directory root.
func NewImageStore(root string) *ImageStore {
	return &ImageStore{root: root}
}

// Find returns the relative path of the stored image for code, trying each
// known extension. Returns ENOTFOUND when no image is stored.
func (s *ImageStore) Find(code string) (string, error) {
	stem := SanitizeCode(code)
	if stem == "" {
		return "", b2bsync.Errorf(b2bsync.EINVALID, "product code required")
	}

	for _, ext := range b2bsync.ImageExtensions {
		rel := b2bsync.ImagePath(stem, ext)
		info, err := os.Stat(s.abs(rel))
		if err == nil && !info.IsDir() {
			return rel, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", b2bsync.Errorf(b2bsync.ENOTFOUND, "no image for product %q", code)
}

// Save writes img for code and returns its relative path. The file is written
// to a temporary name first and renamed into place, so a reader never sees a
// partial image.
func (s *ImageStore) Save(code string, img *b2bsync.Image) (string, error) {
	stem := SanitizeCode(code)
	if stem == "" {
		return "", b2bsync.Errorf(b2bsync.EINVALID, "product code required")
	}
	if img == nil || len(img.Data) == 0 {
		return "", b2bsync.Errorf(b2bsync.EINVALID, "empty image for product %q", code)
	}

	rel := b2bsync.ImagePath(stem, b2bsync.ImageExtension(img.ContentType, img.URL))
	full := s.abs(rel)

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+stem+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(img.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return rel, nil
}

func (s *ImageStore) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}
