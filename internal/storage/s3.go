package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Mirror copies finished artifacts to secondary storage.
type Mirror interface {
	Put(ctx context.Context, key, path string) error
	Delete(ctx context.Context, key string) error
}

// S3Mirror mirrors files into an S3-compatible bucket.
type S3Mirror struct {
	client *s3.Client
	bucket string
}

func NewS3Mirror(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string) (*S3Mirror, error) {
	if endpoint == "" || bucket == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing S3 configuration")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &S3Mirror{client: client, bucket: bucket}, nil
}

func (m *S3Mirror) Put(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/zip"),
	})
	return err
}

func (m *S3Mirror) Delete(ctx context.Context, key string) error {
	_, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	return err
}

// MirrorKey is the object key used for a file belonging to owner.
func MirrorKey(owner, name string) string {
	return "backups/" + owner + "/" + name
}
