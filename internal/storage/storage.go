package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is the reference prefix of every stored file; local files are served under /Prefix/.
const Prefix = "uploads"

var (
	// ErrUnsupportedType is returned when an upload is not an image
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyFile is returned for zero-byte uploads
	ErrEmptyFile = errors.New("file is empty")
)

// Upload is an inbound file as received from a multipart form
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// FileStore persists uploads and resolves stored references to public URLs
type FileStore interface {
	// Save stores the upload and returns its reference, e.g. "uploads/1700000000000-me.png".
	Save(ctx context.Context, up Upload) (string, error)
	// URL returns the absolute URL for a stored reference.
	URL(ref string) string
	// Delete removes a stored file; a missing file is not an error.
	Delete(ctx context.Context, ref string) error
}

// ObjectName namespaces the original filename by ingestion time in
// milliseconds and a random tag, so uploads in the same millisecond never
// share a name: "<ms>-<tag>-<name>".
func ObjectName(now time.Time, original string) string {
	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), tag, sanitizeFilename(original))
}

// SaveImage checks that the upload is an image and stores it
func SaveImage(ctx context.Context, store FileStore, up Upload) (string, error) {
	contentType, body, err := SniffImage(up.Body)
	if err != nil {
		return "", err
	}
	up.ContentType = contentType
	up.Body = body
	return store.Save(ctx, up)
}

// JoinURL joins a base URL and a stored reference
func JoinURL(base, ref string) string {
	if IsAbsolute(ref) {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// IsAbsolute reports whether ref is already a full URL
func IsAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
