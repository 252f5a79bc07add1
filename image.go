package b2bsync

import (
	"context"
	"mime"
	"path"
	"strings"
)

// ImageDir is the directory, relative to the data root, holding product
// images.
const ImageDir = "images/products"

// ImageExtensions lists the file extensions an existing product image may
// have on disk.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"}

// Image is a downloaded product image.
type Image struct {
	URL         string
	ContentType string
	Data        []byte
}

// ImageFetcher downloads product images.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// ImageStore persists product images keyed by product code.
type ImageStore interface {
	// Find returns the relative path of the stored image for code.
	// Returns ENOTFOUND if no image exists under any known extension.
	Find(code string) (string, error)

	// Save writes img for code and returns its relative path.
	Save(code string, img *Image) (string, error)
}

// ImageExtension chooses the file extension for an image, preferring the
// response content type, then the URL path, then ".jpg".
func ImageExtension(contentType, url string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg", "image/jpg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/gif":
			return ".gif"
		case "image/webp":
			return ".webp"
		}
	}

	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	ext := strings.ToLower(path.Ext(url))
	for _, known := range ImageExtensions {
		if ext == known {
			return ext
		}
	}
	return ".jpg"
}

// ImagePath returns the relative path of a product image file.
func ImagePath(code, ext string) string {
	return ImageDir + "/" + code + ext
}
