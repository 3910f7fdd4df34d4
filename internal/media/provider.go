package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MaxUploadBytes caps the size of a single image upload.
const MaxUploadBytes = 5 << 20

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ErrUnsupportedType is returned for uploads outside the image allowlist.
var ErrUnsupportedType = errors.New("media: unsupported content type")

// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
var ErrTooLarge = errors.New("media: file exceeds size limit")

// UploadInput carries a validated image payload to the hosting provider.
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Asset describes a hosted image returned by the provider.
type Asset struct {
	URL      string
	Width    int
	Height   int
	ByteSize int64
}

// Provider models an external image host.
type Provider interface {
	Upload(ctx context.Context, in UploadInput) (Asset, error)
	Delete(ctx context.Context, url string) error
}

// ValidateUpload enforces the content-type allowlist and size limit before any
// bytes leave the process.
func ValidateUpload(in UploadInput) error {
	ct := strings.ToLower(strings.TrimSpace(in.ContentType))
	if _, ok := allowedContentTypes[ct]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, in.ContentType)
	}
	if len(in.Data) == 0 {
		return errors.New("media: empty file")
	}
	if len(in.Data) > MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(in.Data))
	}
	return nil
}

// Mock is an in-memory provider useful for tests and local development.
type Mock struct {
	mu      sync.Mutex
	uploads []UploadInput
	deleted []string
	Err     error
}

func (m *Mock) Upload(_ context.Context, in UploadInput) (Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return Asset{}, m.Err
	}
	m.uploads = append(m.uploads, in)
	return Asset{
		URL:      fmt.Sprintf("https://img.example.test/%d/%s", len(m.uploads), in.FileName),
		ByteSize: int64(len(in.Data)),
	}, nil
}

func (m *Mock) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.deleted = append(m.deleted, url)
	return nil
}

// Deleted returns the URLs delete was called with.
func (m *Mock) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// UploadCount returns how many uploads the mock accepted.
func (m *Mock) UploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}
