package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"photo-speech/internal/shared/storage/object"
)

// Options configures the S3 store. Endpoint switches to path-style addressing for
// S3-compatible services such as MinIO.
type Options struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	PublicACL       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Store implements ObjectStore using Amazon S3.
type Store struct {
	client    *s3.Client
	bucket    string
	prefix    string
	region    string
	endpoint  string
	publicACL bool
}

// New creates a new S3-backed object store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:    client,
		bucket:    opts.Bucket,
		prefix:    normalizePrefix(opts.Prefix),
		region:    cfg.Region,
		endpoint:  endpoint,
		publicACL: opts.PublicACL,
	}, nil
}

// Put uploads the reader contents to S3, replacing any object with the same key.
func (s *Store) Put(ctx context.Context, name, contentType string, r io.Reader) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}
	if !object.ValidName(name) {
		return object.Object{}, fmt.Errorf("invalid object name %q", name)
	}

	body, size, err := seekable(r)
	if err != nil {
		return object.Object{}, fmt.Errorf("buffer body: %w", err)
	}

	objectKey := applyPrefix(s.prefix, name)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}
	if s.publicACL {
		input.ACL = s3types.ObjectCannedACLPublicRead
	}
	if s.endpoint == "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Object{}, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}

	return object.Object{
		Name:        name,
		ContentType: contentType,
		SizeBytes:   size,
		PublicURL:   s.publicURL(objectKey),
		Location:    "s3://" + s.bucket + "/" + objectKey,
	}, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, name string) (*object.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectKey := applyPrefix(s.prefix, name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, object.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return object.NewReader(out.Body, aws.ToString(out.ContentType)), nil
}

// Delete removes a stored object.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objectKey := applyPrefix(s.prefix, name)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func (s *Store) publicURL(objectKey string) string {
	escaped := escapeKey(objectKey)
	if s.endpoint != "" {
		return s.endpoint + "/" + s.bucket + "/" + escaped
	}
	region := s.region
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, region, escaped)
}

// seekable returns a body the SDK can rewind for signing and retries.
func seekable(r io.Reader) (io.ReadSeeker, int64, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		size, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return rs, size, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
