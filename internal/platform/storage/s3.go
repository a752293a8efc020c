// Package storage uploads binary assets to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	// MaxLogoSize caps branch logo uploads (2MB).
	MaxLogoSize = 2 * 1024 * 1024
	// FolderLogos is the object prefix for branch logos.
	FolderLogos = "logos"
)

// AllowedImageTypes maps accepted MIME types to object extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Config holds S3 client configuration.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader stores an object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// S3 implements Uploader on top of the AWS SDK upload manager.
type S3 struct {
	uploader *manager.Uploader
	cfg      Config
	logger   *slog.Logger
}

// NewS3 creates an S3 client. Static credentials are used when provided,
// otherwise the default credential chain applies.
func NewS3(ctx context.Context, cfg Config, logger *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket required")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else if logger != nil {
		logger.Warn("storage: using default aws credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Upload streams body to the configured bucket with public-read ACL.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return PublicURL(s.cfg, key), nil
}

// PublicURL resolves the public address of an object key.
func PublicURL(cfg Config, key string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, key)
}

// LogoKey returns logos/{organization}/{branch}{ext}.
func LogoKey(organizationID, branchID, contentType string) (string, bool) {
	ext, ok := AllowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return "", false
	}
	return path.Join(FolderLogos, organizationID, branchID+ext), true
}
