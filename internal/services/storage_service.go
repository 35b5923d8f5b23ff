// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rfp-backend/internal/config"
)

const rawEmailContentType = "message/rfc822"

// StorageService archives the raw MIME of processed vendor replies, in S3
// when a bucket is configured and on local disk otherwise.
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
	localDir string
}

// ArchivedEmail points at a stored raw message.
type ArchivedEmail struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	service := &StorageService{
		bucket:   cfg.S3Bucket,
		localDir: cfg.RawEmailDir,
	}

	if cfg.S3Bucket == "" || cfg.AccessKeyID == "" {
		// Local archive only
		return service, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	service.s3Client = s3.New(sess)
	return service, nil
}

// NewS3StorageService wraps an existing S3 client.
func NewS3StorageService(client s3iface.S3API, bucket string) *StorageService {
	return &StorageService{s3Client: client, bucket: bucket}
}

func (s *StorageService) Enabled() bool {
	return s.s3Client != nil || s.localDir != ""
}

// ArchiveRawEmail stores raw and returns its object key. It returns an empty
// key when no archive is configured.
func (s *StorageService) ArchiveRawEmail(ctx context.Context, rfpID, vendorID uint, raw []byte) (string, error) {
	if !s.Enabled() || len(raw) == 0 {
		return "", nil
	}

	key := s.generateKey(rfpID, vendorID)

	if s.s3Client != nil {
		return key, s.uploadToS3(ctx, key, raw)
	}
	return key, s.writeToLocal(key, raw)
}

func (s *StorageService) uploadToS3(ctx context.Context, key string, raw []byte) error {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(raw),
		ContentType:   aws.String(rawEmailContentType),
		ContentLength: aws.Int64(int64(len(raw))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *StorageService) writeToLocal(key string, raw []byte) error {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write raw email: %w", err)
	}
	return nil
}

// PresignRawEmail returns a time-limited S3 URL for key, or the local file
// path when archiving to disk.
func (s *StorageService) PresignRawEmail(key string, expiration time.Duration) (*ArchivedEmail, error) {
	if key == "" || !s.Enabled() || strings.Contains(key, "..") {
		return nil, ErrArchiveUnavailable
	}

	if s.s3Client == nil {
		path := filepath.Join(s.localDir, filepath.FromSlash(key))
		if _, err := os.Stat(path); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Archived email missing on disk")
			return nil, ErrArchiveUnavailable
		}
		return &ArchivedEmail{Key: key, URL: path}, nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &ArchivedEmail{
		Key:       key,
		URL:       url,
		ExpiresAt: time.Now().Add(expiration),
	}, nil
}

func (s *StorageService) generateKey(rfpID, vendorID uint) string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("raw-emails/rfp-%d/vendor-%d/%s_%s.eml", rfpID, vendorID, timestamp, uuid.New().String()[:8])
}
