// Package upload pushes finished gallery artifacts to S3.
package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/roxdl/internal/utils"
)

// PutObjectAPI is the subset of the S3 upload manager used here.
type PutObjectAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Uploader struct {
	api    PutObjectAPI
	bucket string
	prefix string
}

// New builds an uploader for target using the shared AWS config of target.Profile.
func New(ctx context.Context, target utils.UploadTarget) (*S3Uploader, error) {
	bucket, prefix, err := ParseS3URL(target.URL)
	if err != nil {
		return nil, err
	}
	profile := target.Profile
	if profile == "" {
		profile = "default"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(profile),
		config.WithRetryMode("adaptive"),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(cfg))
	return NewWithAPI(uploader, bucket, prefix), nil
}

func NewWithAPI(api PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{api: api, bucket: bucket, prefix: prefix}
}

// ParseS3URL splits s3://bucket/prefix into its parts. The prefix may be empty.
func ParseS3URL(url string) (string, string, error) {
	if !strings.HasPrefix(url, "s3://") {
		return "", "", fmt.Errorf("invalid S3 URL %q", url)
	}
	parts := strings.SplitN(strings.TrimPrefix(url, "s3://"), "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format")
	}
	prefix := ""
	if len(parts) > 1 {
		prefix = strings.Trim(parts[1], "/")
	}
	return parts[0], prefix, nil
}

// Key returns the object key a local file is uploaded under.
func (u *S3Uploader) Key(localPath string) string {
	return path.Join(u.prefix, filepath.Base(localPath))
}

// Upload uploads each file under the configured prefix, keyed by base name.
func (u *S3Uploader) Upload(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := u.uploadFile(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (u *S3Uploader) uploadFile(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer f.Close()
	key := u.Key(localPath)
	_, err = u.api.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("error uploading s3://%s/%s: %w", u.bucket, key, err)
	}
	log.Info().Str("op", "upload/s3").Msgf("uploaded %s to s3://%s/%s", localPath, u.bucket, key)
	return nil
}
