package mirror

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/zots0127/filedrop/internal/domain/entities"
)

// Config holds S3 mirror settings
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// S3Mirror uploads every received file to a bucket
type S3Mirror struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Mirror creates a session from cfg
func NewS3Mirror(cfg Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("mirror bucket is required")
	}

	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return NewS3MirrorWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

// NewS3MirrorWithClient wraps an existing S3 client
func NewS3MirrorWithClient(client s3iface.S3API, bucket, prefix string) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Key returns the object key used for a stored file
func (m *S3Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Replicate uploads the file at filePath under its stored name
func (m *S3Mirror) Replicate(ctx context.Context, file entities.StoredFile, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer f.Close()

	_, err = m.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(m.Key(file.Name)),
		Body:          f,
		ContentLength: aws.Int64(file.Size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("put %s to s3://%s: %w", file.Name, m.bucket, err)
	}
	return nil
}
