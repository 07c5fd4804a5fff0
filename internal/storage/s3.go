// Package storage presigns gift image uploads and downloads on an
// S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/hray3182/daymemory/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ErrNotConfigured is returned when no bucket is set up.
var ErrNotConfigured = fmt.Errorf("%w: image storage is not configured", common.ErrExternalService)

type Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string // empty for AWS, set for MinIO
	Bucket       string
	Expires      time.Duration
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// Upload is a presigned PUT for one object.
type Upload struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ImageStore struct {
	presign *s3.PresignClient
	bucket  string
	expires time.Duration
}

func NewImageStore(ctx context.Context, cfg Config) (*ImageStore, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	expires := cfg.Expires
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return &ImageStore{
		presign: newS3PresignClient(client),
		bucket:  cfg.Bucket,
		expires: expires,
	}, nil
}

// ImageKey returns a fresh object key for an image of a gift.
func ImageKey(userID, giftID uuid.UUID, contentType string) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %q", common.ErrValidation, contentType)
	}
	return fmt.Sprintf("gifts/%s/%s/%s%s", userID, giftID, uuid.New(), ext), nil
}

// PresignUpload signs a PUT for key. The client must send the same
// Content-Type header.
func (s *ImageStore) PresignUpload(ctx context.Context, key, contentType string) (*Upload, error) {
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		return nil, fmt.Errorf("%w: presign upload: %v", common.ErrExternalService, err)
	}

	return &Upload{
		Key:         key,
		URL:         req.URL,
		Method:      req.Method,
		ContentType: contentType,
		ExpiresAt:   time.Now().Add(s.expires),
	}, nil
}

func (s *ImageStore) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		return "", fmt.Errorf("%w: presign download: %v", common.ErrExternalService, err)
	}
	return req.URL, nil
}
