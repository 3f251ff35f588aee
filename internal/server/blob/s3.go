// Package blob copies imported files to S3-compatible object storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/google/uuid"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Settings locates the bucket. User and Password are static credentials
// (MinIO root user in development).
type Settings struct {
	Bucket   string
	Region   string
	Endpoint string
	User     string
	Password string
}

type S3Archiver struct {
	client putObjectAPI
	bucket string
	now    func() time.Time
}

func NewS3Archiver(ctx context.Context, s Settings) (*S3Archiver, error) {
	if s.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.User, s.Password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: s.Bucket, now: time.Now}, nil
}

// StorageKey returns a fresh object key partitioned by date.
func StorageKey(t time.Time) string {
	return fmt.Sprintf("datasets/%d/%d/%d/%v", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Put uploads body under a new key and returns that key. Failures are
// reported as common.ErrUpstreamUnavailable.
func (a *S3Archiver) Put(ctx context.Context, body io.Reader, size int64, contentType string) (string, error) {
	key := StorageKey(a.now())

	in := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := a.client.PutObject(ctx, in); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: put object: %v", common.ErrUpstreamUnavailable, err)
	}
	return key, nil
}
