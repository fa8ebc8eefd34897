package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"photo-speech/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem.
// Objects are served publicly through the media route. Content types live in
// sidecar files under baseDir/.meta/bucket, outside the object tree.
type Store struct {
	root     string
	metaRoot string
	baseURL  string
}

// New creates a local object store rooted at baseDir/bucket.
func New(baseDir, bucket, publicBaseURL string) *Store {
	return &Store{
		root:     filepath.Join(baseDir, bucket),
		metaRoot: filepath.Join(baseDir, ".meta", bucket),
		baseURL:  publicBaseURL,
	}
}

// Put writes the reader to disk, replacing any existing object with the same name.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}
	fullPath, err := s.path(name)
	if err != nil {
		return object.Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return object.Object{}, fmt.Errorf("mkdir: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return object.Object{}, fmt.Errorf("create temp file: %w", err)
	}
	written, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return object.Object{}, fmt.Errorf("write body: %w", copyErr)
		}
		return object.Object{}, fmt.Errorf("close file: %w", closeErr)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return object.Object{}, fmt.Errorf("chmod: %w", err)
	}
	if err := s.writeContentType(name, contentType); err != nil {
		_ = os.Remove(tmp.Name())
		return object.Object{}, err
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		_ = os.Remove(tmp.Name())
		return object.Object{}, fmt.Errorf("rename: %w", err)
	}

	return object.Object{
		Name:        name,
		ContentType: contentType,
		SizeBytes:   written,
		PublicURL:   object.MediaURL(s.baseURL, name),
		Location:    "file://" + filepath.ToSlash(fullPath),
	}, nil
}

// Open opens a stored object for reading. Objects without a recorded type are sniffed.
func (s *Store) Open(ctx context.Context, name string) (*object.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, object.ErrNotFound
		}
		return nil, err
	}
	return object.NewReader(f, s.readContentType(name)), nil
}

// Delete removes a stored object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	if err := os.Remove(s.metaPath(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove content type: %w", err)
	}
	return nil
}

func (s *Store) writeContentType(name, contentType string) error {
	metaPath := s.metaPath(name)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		return fmt.Errorf("mkdir meta: %w", err)
	}
	if err := os.WriteFile(metaPath, []byte(strings.TrimSpace(contentType)), 0o644); err != nil {
		return fmt.Errorf("write content type: %w", err)
	}
	return nil
}

func (s *Store) readContentType(name string) string {
	data, err := os.ReadFile(s.metaPath(name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// metaPath expects a name already checked by path.
func (s *Store) metaPath(name string) string {
	return filepath.Join(s.metaRoot, filepath.FromSlash(name))
}

func (s *Store) path(name string) (string, error) {
	if !object.ValidName(name) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

var _ object.ObjectStore = (*Store)(nil)
