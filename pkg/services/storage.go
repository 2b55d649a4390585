package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"go.uber.org/zap"

	"heirloom/pkg/config"
)

// FileStore keeps uploaded originals. Locations returned by Save are opaque
// keys that Delete and URL accept.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
	URL(location string) string
}

// NewFileStore uses the S3 bucket when one is configured and local disk otherwise.
func NewFileStore(cfg *config.Config, log *zap.Logger) (FileStore, error) {
	if cfg.S3.Enabled() {
		log.Info("document storage: s3", zap.String("bucket", cfg.S3.Bucket))
		return NewS3Store(cfg.S3)
	}
	log.Info("document storage: local", zap.String("dir", cfg.UploadDir))
	return NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
}

type LocalStore struct {
	basePath string
	baseURL  string
}

func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty storage key")
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *LocalStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	full, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return key, nil
}

func (s *LocalStore) Delete(ctx context.Context, location string) error {
	full, err := s.path(location)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(location string) string {
	if location == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimLeft(location, "/")
}

// S3Store writes to any S3-compatible bucket.
type S3Store struct {
	client    *s3.S3
	bucket    string
	endpoint  string
	publicURL string
}

func NewS3Store(cfg config.S3) (*S3Store, error) {
	awsCfg := &aws.Config{
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:      aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}
	return &S3Store{
		client:    s3.New(sess),
		bucket:    cfg.Bucket,
		endpoint:  cfg.Endpoint,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

func (s *S3Store) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, location string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(location),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *S3Store) URL(location string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + location
	}
	host := strings.TrimPrefix(strings.TrimPrefix(s.endpoint, "https://"), "http://")
	if host == "" {
		host = "s3.amazonaws.com"
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, host, location)
}
