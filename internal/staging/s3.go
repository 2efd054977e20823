// Package staging uploads videos to S3-compatible object storage before a
// draft is created, so the API receives an object key instead of the file.
package staging

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"programme-studio/internal/logging"
	"programme-studio/internal/media"
)

const (
	EnvAccessKey = "STUDIO_S3_ACCESS_KEY"
	EnvSecretKey = "STUDIO_S3_SECRET_KEY"

	partSize = 16 * 1024 * 1024
)

type Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
	// UploadLimitMBps throttles the transfer; 0 disables throttling.
	UploadLimitMBps float64
}

type uploader interface {
	Upload(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Stager struct {
	bucket string
	prefix string
	limit  float64
	upl    uploader
	log    zerolog.Logger
	newID  func() string
}

func NewS3(ctx context.Context, cfg Config, log zerolog.Logger) (*S3Stager, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("staging bucket is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	access := strings.TrimSpace(os.Getenv(EnvAccessKey))
	secret := strings.TrimSpace(os.Getenv(EnvSecretKey))
	if access != "" && secret != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(access, secret, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// MinIO and most self-hosted stores only speak path-style.
			o.UsePathStyle = !strings.Contains(endpoint, "amazonaws.com")
		}
	})
	upl := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	return newS3Stager(cfg, upl, log), nil
}

func newS3Stager(cfg Config, upl uploader, log zerolog.Logger) *S3Stager {
	return &S3Stager{
		bucket: strings.TrimSpace(cfg.Bucket),
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		limit:  cfg.UploadLimitMBps,
		upl:    upl,
		log:    logging.WithComponent(log, "staging"),
		newID:  uuid.NewString,
	}
}

// Stage uploads video and returns its object key.
func (s *S3Stager) Stage(ctx context.Context, video media.File, progress *media.Progress) (string, error) {
	src, err := video.Reader()
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := s.objectKey(video.Name)
	body := media.NewThrottledReader(ctx, media.NewProgressReader(src, progress), s.limit)
	contentType := video.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	start := time.Now()
	out, err := s.upl.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("staging upload failed")
		return "", fmt.Errorf("stage %s to s3://%s/%s: %w", video.Name, s.bucket, key, err)
	}
	s.log.Info().Str("key", key).Str("location", out.Location).Dur("duration", time.Since(start)).Msg("video staged")
	return key, nil
}

func (s *S3Stager) objectKey(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "video"
	}
	if s.prefix == "" {
		return s.newID() + "/" + base
	}
	return s.prefix + "/" + s.newID() + "/" + base
}
