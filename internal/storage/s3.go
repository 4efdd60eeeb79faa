package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/printqa/backend/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrObjectTooLarge = errors.New("object exceeds size limit")

// ObjectStore is the subset of bucket operations the upload pipeline needs.
type ObjectStore interface {
	PutFile(ctx context.Context, prefix, name, key string, file io.ReadSeeker) (string, error)
	GetFile(ctx context.Context, key string, maxSize int64) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// NewS3Client builds a path-style client from AWS_REGION, AWS_ENDPOINT,
// AWS_ACCESS_KEY and AWS_SECRET_KEY.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnvString("AWS_REGION", "us-east-1")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// Bucket stores uploads in a single S3 bucket.
type Bucket struct {
	client *s3.Client
	name   string
}

func NewBucket(client *s3.Client, name string) *Bucket {
	return &Bucket{client: client, name: name}
}

// ObjectKey returns "<prefix>/<key><ext>" where ext is the lower-cased
// extension of name.
func ObjectKey(prefix, name, key string) string {
	ext := strings.ToLower(path.Ext(name))
	if prefix == "" {
		return key + ext
	}
	return fmt.Sprintf("%s/%s%s", strings.TrimSuffix(prefix, "/"), key, ext)
}

// ContentType maps mesh extensions to their registered media types.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".stl":
		return "model/stl"
	case ".obj":
		return "model/obj"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (b *Bucket) PutFile(ctx context.Context, prefix, name, key string, file io.ReadSeeker) (string, error) {
	objectKey := ObjectKey(prefix, name, key)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.name),
		Key:         aws.String(objectKey),
		Body:        file,
		ContentType: aws.String(ContentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return objectKey, nil
}

// GetFile downloads key. Objects larger than maxSize fail with
// ErrObjectTooLarge; maxSize <= 0 disables the limit.
func (b *Bucket) GetFile(ctx context.Context, key string, maxSize int64) ([]byte, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer result.Body.Close()

	return readLimited(result.Body, maxSize)
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	if maxSize > 0 && int64(buf.Len()) > maxSize {
		return nil, ErrObjectTooLarge
	}
	return buf.Bytes(), nil
}

func (b *Bucket) DeleteFile(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}
