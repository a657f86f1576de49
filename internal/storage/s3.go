package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	appconfig "example.com/backstage/services/procurement/config"
	"example.com/backstage/services/procurement/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

// ObjectMetadata describes what the store holds under a key
type ObjectMetadata struct {
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStore is the contract for attachment blob storage
type ObjectStore interface {
	Upload(ctx context.Context, key domain.S3ObjectKey, content []byte, mimeType string) error
	Download(ctx context.Context, key domain.S3ObjectKey) ([]byte, error)
	Delete(ctx context.Context, key domain.S3ObjectKey) error
	Exists(ctx context.Context, key domain.S3ObjectKey) (bool, error)
	GetMetadata(ctx context.Context, key domain.S3ObjectKey) (*ObjectMetadata, error)
	PresignDownload(ctx context.Context, key domain.S3ObjectKey) (string, error)
	PresignUpload(ctx context.Context, key domain.S3ObjectKey, mimeType string) (string, error)
}

// S3Store implements ObjectStore against an S3 bucket
type S3Store struct {
	client   *s3.Client
	presign  *s3.PresignClient
	bucket   string
	cfg      appconfig.S3Config
}

// NewS3Store creates a new S3 backed object store
func NewS3Store(ctx context.Context, cfg appconfig.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client, s3.WithPresignExpires(cfg.PresignExpiry)),
		bucket:  cfg.Bucket,
		cfg:     cfg,
	}, nil
}

// Upload stores the content under the given key
func (s *S3Store) Upload(ctx context.Context, key domain.S3ObjectKey, content []byte, mimeType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key.String()),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return errors.Wrap(err, "failed to upload object")
	}
	return nil
}

// Download fetches the content stored under the given key
func (s *S3Store) Download(ctx context.Context, key domain.S3ObjectKey) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to download object")
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read object body")
	}
	return content, nil
}

// Delete removes the object stored under the given key
func (s *S3Store) Delete(ctx context.Context, key domain.S3ObjectKey) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete object")
	}
	return nil
}

// Exists reports whether an object is stored under the given key
func (s *S3Store) Exists(ctx context.Context, key domain.S3ObjectKey) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to check object existence")
	}
	return true, nil
}

// GetMetadata reports the stored object's content type, size and last
// modification time.
func (s *S3Store) GetMetadata(ctx context.Context, key domain.S3ObjectKey) (*ObjectMetadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get object metadata")
	}

	meta := &ObjectMetadata{
		MimeType:  aws.ToString(out.ContentType),
		SizeBytes: aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}
	return meta, nil
}

// PresignDownload returns a short-lived URL for fetching the object
func (s *S3Store) PresignDownload(ctx context.Context, key domain.S3ObjectKey) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to presign download")
	}
	return req.URL, nil
}

// PresignUpload returns a short-lived URL for storing the object
func (s *S3Store) PresignUpload(ctx context.Context, key domain.S3ObjectKey, mimeType string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key.String()),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to presign upload")
	}
	return req.URL, nil
}
