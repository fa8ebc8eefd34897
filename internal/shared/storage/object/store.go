package object

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const sniffLen = 512

// ErrNotFound is returned when the named object does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored object and where clients can fetch it.
type Object struct {
	Name        string
	ContentType string
	SizeBytes   int64
	PublicURL   string
	Location    string
}

// Reader is an open object body and the content type recorded when it was stored.
type Reader struct {
	io.ReadCloser
	ContentType string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
// Put stores r under name, overwriting any existing object, and makes it publicly readable.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, name string) (*Reader, error)
	Delete(ctx context.Context, name string) error
}

// NewReader pairs rc with contentType, sniffing the leading bytes when no type was recorded.
func NewReader(rc io.ReadCloser, contentType string) *Reader {
	if strings.TrimSpace(contentType) != "" {
		return &Reader{ReadCloser: rc, ContentType: contentType}
	}
	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)
	return &Reader{
		ReadCloser:  sniffedBody{Reader: br, Closer: rc},
		ContentType: http.DetectContentType(head),
	}
}

type sniffedBody struct {
	io.Reader
	io.Closer
}

// MediaURL builds the URL under which the media route serves name.
func MediaURL(baseURL, name string) string {
	segments := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/media/" + strings.Join(segments, "/")
}

// ValidName reports whether name is safe to use as an object key.
func ValidName(name string) bool {
	if strings.TrimSpace(name) == "" || strings.HasPrefix(name, "/") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
