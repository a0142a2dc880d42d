package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	config "tootsched/configs"
)

// StorageService mirrors uploaded media to an S3-compatible bucket so the
// display client can fetch images without reaching this host. The local
// upload dir stays the source of truth; mirroring is best-effort.
type StorageService struct {
	config config.Config
}

func NewStorageService(cfg config.Config) *StorageService {
	return &StorageService{config: cfg}
}

// Enabled reports whether a bucket is configured.
func (s *StorageService) Enabled() bool {
	return s.config.S3.BucketName != ""
}

func (s *StorageService) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.config.S3.AccessKey, s.config.S3.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.config.S3.AccountID))
	}), nil
}

// Upload stores the object and returns its public URL.
func (s *StorageService) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return fmt.Sprintf("%s/%s", s.config.S3.PublicURL, key), nil
}
