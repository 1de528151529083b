package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/mehrblog/backend/internal/config"
)

// StorageService stores blog images in an S3-compatible bucket.
type StorageService struct {
	client *s3.Client
	cfg    *config.Config
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.MediaS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.MediaS3AccessKeyID, cfg.MediaS3SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.MediaS3Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.MediaS3UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})

	return &StorageService{client: client, cfg: cfg}, nil
}

// UploadImage streams an image to the media bucket.
func (s *StorageService) UploadImage(ctx context.Context, key string, body io.Reader, contentType string) error {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.cfg.MediaImagesBucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
		ACL:         s3types.ObjectCannedACLPrivate,
	}, func(u *manager.Uploader) { u.PartSize = 10 * 1024 * 1024 })
	return err
}

// DeleteImage removes an image from the media bucket.
func (s *StorageService) DeleteImage(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.cfg.MediaImagesBucket,
		Key:    &key,
	})
	return err
}

// PresignImageGet returns a temporary download URL for an image.
func (s *StorageService) PresignImageGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	out, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.cfg.MediaImagesBucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

// ImageURL builds the public URL for a stored image.
func (s *StorageService) ImageURL(key string) string {
	if s.cfg.MediaPublicURL != "" {
		return fmt.Sprintf("%s/%s", s.cfg.MediaPublicURL, url.PathEscape(key))
	}
	e := s.client.Options().BaseEndpoint
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", aws.ToString(e), s.cfg.MediaImagesBucket, url.PathEscape(key))
}
