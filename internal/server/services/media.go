package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/npremz/astrobackoffice/internal/common"
	sc "github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/npremz/astrobackoffice/internal/server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// presignTTL bounds how long an upload URL stays usable.
const presignTTL = 15 * time.Minute

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
)

// allowedMediaTypes maps accepted content types to the object key extension.
var allowedMediaTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/avif":      ".avif",
	"video/mp4":       ".mp4",
	"application/pdf": ".pdf",
}

// MediaService hands out presigned PUT URLs so browsers upload media bytes
// straight to object storage.
type MediaService struct {
	config *sc.Config
	now    Clock
}

func NewMediaService(cfg *sc.Config) *MediaService {
	return &MediaService{config: cfg, now: time.Now}
}

// WithClock replaces the time source.
func (s *MediaService) WithClock(c Clock) *MediaService {
	s.now = c
	return s
}

// Enabled reports whether a bucket is configured.
func (s *MediaService) Enabled() bool {
	return s.config.S3Bucket != ""
}

// mediaKey builds a unique object key under the uploading user's prefix.
func mediaKey(userID string, d time.Time, ext string) string {
	return path.Join("media", userID, fmt.Sprintf("%d/%02d/%02d", d.Year(), d.Month(), d.Day()), uuid.NewString()+ext)
}

func (s *MediaService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns a presigned PUT for one file of contentType owned by
// userID. Unsupported types yield common.ErrorValidation and a missing
// bucket yields common.ErrStorageDisabled.
func (s *MediaService) PresignUpload(ctx context.Context, userID, contentType string) (*models.MediaUpload, error) {
	if !s.Enabled() {
		return nil, common.ErrStorageDisabled
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := allowedMediaTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", common.ErrorValidation, contentType)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	now := s.now()
	bucket := s.config.S3Bucket
	key := mediaKey(userID, now, ext)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &models.MediaUpload{
		Key:         key,
		URL:         req.URL,
		ContentType: contentType,
		ExpiresAt:   now.Add(presignTTL),
	}, nil
}
