package persistent

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/uzzapchat/uzzap"
)

type AvatarStoreConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseUrl string
}

// AvatarStore uploads avatar images to an S3-compatible bucket. Keys are
// canonical per user, so an upload is an overwrite of the previous avatar.
type AvatarStore struct {
	Client        *s3.Client
	Bucket        string
	PublicBaseUrl string
}

var _ uzzap.AvatarStore = (*AvatarStore)(nil)

func NewAvatarStore(ctx context.Context, cfg AvatarStoreConfig) (*AvatarStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "")))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// MinIO-style endpoints resolve buckets by path, not vhost
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &AvatarStore{
		Client:        client,
		Bucket:        cfg.Bucket,
		PublicBaseUrl: strings.TrimSuffix(cfg.PublicBaseUrl, "/"),
	}, nil
}

func (s *AvatarStore) Upload(ctx context.Context, userId uzzap.UserId,
	content []byte, extensionHint string) (string, error) {
	key := uzzap.AvatarObjectKey(userId, extensionHint)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(avatarContentType(extensionHint)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object '%s': %v", uzzap.ErrAvatarUpload, key, err)
	}
	return s.PublicBaseUrl + "/" + key, nil
}

func avatarContentType(extensionHint string) string {
	contentType := mime.TypeByExtension("." + strings.TrimPrefix(extensionHint, "."))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return contentType
}
