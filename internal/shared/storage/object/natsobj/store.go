// Package natsobj stores objects in a NATS JetStream object store bucket.
package natsobj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/nats-io/nats.go"

	"photo-speech/internal/shared/storage/object"
)

const contentTypeKey = "content-type"

var invalidBucketChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Store implements ObjectStore on top of JetStream. Objects are served publicly through the media route.
type Store struct {
	store   nats.ObjectStore
	bucket  string
	baseURL string
}

// BucketName maps an arbitrary bucket name onto the characters JetStream accepts.
func BucketName(name string) string {
	return invalidBucketChars.ReplaceAllString(name, "_")
}

// New binds to the named bucket, creating it when it does not exist yet.
func New(js nats.JetStreamContext, bucket, publicBaseURL string) (*Store, error) {
	name := BucketName(bucket)
	if name == "" {
		return nil, fmt.Errorf("nats bucket is required")
	}

	store, err := js.ObjectStore(name)
	if err != nil {
		store, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
			Bucket:      name,
			Description: fmt.Sprintf("Photos and synthesized audio for %s.", bucket),
			Storage:     nats.FileStorage,
			Replicas:    1,
		})
		if err != nil {
			return nil, fmt.Errorf("create object store bucket %q: %w", name, err)
		}
	}

	return &Store{store: store, bucket: name, baseURL: publicBaseURL}, nil
}

// Put saves an object, replacing any previous revision under the same name.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (object.Object, error) {
	if !object.ValidName(name) {
		return object.Object{}, fmt.Errorf("invalid object name %q", name)
	}
	info, err := s.store.Put(&nats.ObjectMeta{
		Name:     name,
		Metadata: map[string]string{contentTypeKey: contentType},
	}, r, nats.Context(ctx))
	if err != nil {
		return object.Object{}, fmt.Errorf("put object %q to bucket %q: %w", name, s.bucket, err)
	}

	return object.Object{
		Name:        name,
		ContentType: contentType,
		SizeBytes:   int64(info.Size),
		PublicURL:   object.MediaURL(s.baseURL, name),
		Location:    "nats://" + s.bucket + "/" + name,
	}, nil
}

// Open retrieves an object for reading with the content type stored in its metadata.
func (s *Store) Open(ctx context.Context, name string) (*object.Reader, error) {
	res, err := s.store.Get(name, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("get object %q from bucket %q: %w", name, s.bucket, err)
	}
	var contentType string
	if info, err := res.Info(); err == nil && info != nil {
		contentType = info.Metadata[contentTypeKey]
	}
	return object.NewReader(res, contentType), nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.Delete(name); err != nil && !errors.Is(err, nats.ErrObjectNotFound) {
		return fmt.Errorf("delete object %q from bucket %q: %w", name, s.bucket, err)
	}
	return nil
}

var _ object.ObjectStore = (*Store)(nil)
