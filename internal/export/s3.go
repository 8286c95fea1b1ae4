// Package export uploads generated reports to S3-compatible object storage.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Config selects the bucket. Endpoint is empty for AWS itself and set for
// MinIO, R2 and similar providers.
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Exporter uploads report files under a key prefix.
type Exporter struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewS3Exporter builds an exporter. Without an access key the default AWS
// credential chain is used.
func NewS3Exporter(ctx context.Context, cfg Config, logger *zap.Logger) (*Exporter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("export: bucket is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("export: region is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("export: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
		// Several S3-compatible providers reject the default checksum trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &Exporter{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		logger:   logger.Named("export"),
	}, nil
}

// Key returns the object key used for name.
func (e *Exporter) Key(name string) string {
	if e.prefix == "" {
		return name
	}
	return path.Join(e.prefix, name)
}

// Put uploads body as name and returns the object key.
func (e *Exporter) Put(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	key := e.Key(name)
	_, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("export: upload %s: %w", key, err)
	}
	e.logger.Info("uploaded report", zap.String("bucket", e.bucket), zap.String("key", key), zap.Int("bytes", len(body)))
	return key, nil
}

// ContentType picks the MIME type for a report file by extension.
func ContentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}
