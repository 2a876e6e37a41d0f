// Package storage keeps photo objects in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultUploadExpiry = 5 * time.Minute

// Options configures the bucket client
type Options struct {
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Endpoint      string // custom endpoint for S3-compatible hosts
	PublicBaseURL string
	UploadExpiry  time.Duration
}

// S3Storage presigns uploads and deletes objects
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
	opts    Options
}

// NewS3Storage creates a bucket client. Static credentials are used when
// an access key is set, otherwise the default AWS chain applies.
func NewS3Storage(ctx context.Context, opts Options) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if opts.UploadExpiry <= 0 {
		opts.UploadExpiry = defaultUploadExpiry
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:  client,
		presign: s3.NewPresignClient(client),
		opts:    opts,
	}, nil
}

// PresignUpload returns a URL the client can PUT the object to
func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string) (string, time.Duration, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(po *s3.PresignOptions) {
		po.Expires = s.opts.UploadExpiry
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}
	return req.URL, s.opts.UploadExpiry, nil
}

// ObjectURL returns the public URL of an object
func (s *S3Storage) ObjectURL(key string) string {
	switch {
	case s.opts.PublicBaseURL != "":
		return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/" + key
	case s.opts.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.opts.Endpoint, "/"), s.opts.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
	}
}

// DeleteObject removes an object from the bucket
func (s *S3Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
