// Package media stores product images and returns the public URL to keep on
// the product record.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Folders used for product images.
const (
	FolderProductMain       = "products/main"
	FolderProductThumbnails = "products/thumbnails"
	FolderProducts          = "products"
)

// maxImageBytes caps the size of a single decoded or downloaded image.
const maxImageBytes = 10 << 20

var ErrInvalidSource = errors.New("invalid image source")

// Uploader stores an image given as a URL or a base64 data URI and returns
// its public URL.
type Uploader interface {
	Upload(ctx context.Context, source, folder string) (string, error)
}

// Passthrough keeps image references as submitted.
type Passthrough struct{}

// Upload returns source unchanged.
func (Passthrough) Upload(_ context.Context, source, _ string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", ErrInvalidSource
	}
	return source, nil
}

// Image is a fully loaded image ready to be written to object storage.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// IsDataURI reports whether source is an inline base64 data URI.
func IsDataURI(source string) bool {
	return strings.HasPrefix(source, "data:")
}

// DecodeDataURI parses a "data:<mime>;base64,<payload>" URI. The content type
// is sniffed from the payload rather than trusted from the header.
func DecodeDataURI(source string) (*Image, error) {
	if !IsDataURI(source) {
		return nil, fmt.Errorf("%w: not a data URI", ErrInvalidSource)
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(source, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidSource)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data URIs are supported", ErrInvalidSource)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidSource)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidSource, maxImageBytes)
	}
	return newImage(data)
}

// Fetch downloads the image at a http(s) URL.
func Fetch(ctx context.Context, client *http.Client, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidSource, maxImageBytes)
	}
	return newImage(data)
}

func newImage(data []byte) (*Image, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %s", ErrInvalidSource, mt.String())
	}
	return &Image{Data: data, ContentType: mt.String(), Extension: mt.Extension()}, nil
}
