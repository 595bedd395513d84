package assets

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store keeps rendered images in an S3 bucket
type S3Store struct {
	bucket string
	prefix string
	client *s3.Client
}

// NewS3Store creates an S3 asset store
func NewS3Store(bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket name must not be empty")
	}
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Store{bucket: bucket, prefix: prefix, client: s3.NewFromConfig(cfg)}, nil
}

func (s *S3Store) key(slug string) string {
	name := slug + ".jpg"
	if s.prefix == "" {
		return name
	}
	// Ensure there is exactly one slash between prefix and name
	if strings.HasSuffix(s.prefix, "/") {
		return s.prefix + name
	}
	return s.prefix + "/" + name
}

// Put saves the rendered JPEG for a document
func (s *S3Store) Put(slug string, image []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(slug)),
		Body:        bytes.NewReader(image),
		ContentType: aws.String("image/jpeg"),
	})
	return err
}

// Remove deletes the rendered image for a document. S3 deletes are
// idempotent, so a missing object is not an error.
func (s *S3Store) Remove(slug string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(slug)),
	})
	return err
}
