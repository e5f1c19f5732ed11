package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/npremz/astrobackoffice/internal/common"
	sc "github.com/npremz/astrobackoffice/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaService() *MediaService {
	return NewMediaService(&sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "media",
	})
}

func stubPresign(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		require.NotNil(t, opts.BaseEndpoint)
		assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
		assert.True(t, opts.UsePathStyle)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestMediaService_PresignUpload(t *testing.T) {
	stubPresign(t)

	var gotBucket, gotKey, gotType string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey, gotType = *in.Bucket, *in.Key, *in.ContentType
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, presignTTL, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/put"}, nil
	}

	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	svc := newMediaService().WithClock(func() time.Time { return now })

	up, err := svc.PresignUpload(context.Background(), "u-1", " Image/PNG ")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/put", up.URL)
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, now.Add(presignTTL), up.ExpiresAt)
	assert.Equal(t, "media", gotBucket)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, up.Key, gotKey)
	assert.True(t, strings.HasPrefix(up.Key, "media/u-1/2026/03/07/"), up.Key)
	assert.True(t, strings.HasSuffix(up.Key, ".png"), up.Key)
}

func TestMediaService_Errors(t *testing.T) {
	disabled := NewMediaService(&sc.Config{})
	assert.False(t, disabled.Enabled())
	_, err := disabled.PresignUpload(context.Background(), "u-1", "image/png")
	assert.ErrorIs(t, err, common.ErrStorageDisabled)

	svc := newMediaService()
	_, err = svc.PresignUpload(context.Background(), "u-1", "text/html")
	assert.ErrorIs(t, err, common.ErrorValidation)

	stubPresign(t)
	presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("signer down")
	}
	_, err = svc.PresignUpload(context.Background(), "u-1", "image/jpeg")
	assert.ErrorContains(t, err, "presign put")

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = svc.PresignUpload(context.Background(), "u-1", "image/jpeg")
	assert.ErrorContains(t, err, "s3 config")
}
