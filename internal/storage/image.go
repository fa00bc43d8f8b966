package storage

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches mimetype's default read limit
const sniffLen = 3072

// SniffImage detects the content type from the leading bytes and rejects
// anything that is not an image. The returned reader yields the full body.
func SniffImage(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	if n == 0 {
		return "", nil, ErrEmptyFile
	}
	head = head[:n]

	mime := mimetype.Detect(head)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", nil, ErrUnsupportedType
	}

	contentType := mime.String()
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType, io.MultiReader(bytes.NewReader(head), body), nil
}
