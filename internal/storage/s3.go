package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures the S3 store
type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint points at an S3-compatible service instead of AWS.
	Endpoint string
	// PublicBase overrides the URL objects are served from.
	PublicBase string
}

// S3Store uploads files to an S3 bucket
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
	now        func() time.Time
}

// NewS3Store creates an S3 client from opts
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
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

	publicBase := opts.PublicBase
	if publicBase == "" {
		if opts.Endpoint != "" {
			publicBase = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
		}
	}

	return &S3Store{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: publicBase,
		now:        time.Now,
	}, nil
}

// Save uploads the file under the uploads/ key prefix
func (s *S3Store) Save(ctx context.Context, up Upload) (string, error) {
	// PutObject needs a seekable body to sign the payload
	data, err := io.ReadAll(up.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	key := Prefix + "/" + ObjectName(s.now(), up.Filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if up.ContentType != "" {
		input.ContentType = aws.String(up.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to s3: %w", err)
	}
	return key, nil
}

// URL returns the public URL of a stored object
func (s *S3Store) URL(ref string) string {
	return JoinURL(s.publicBase, ref)
}

// Delete removes the object behind ref
func (s *S3Store) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from s3: %w", err)
	}
	return nil
}
