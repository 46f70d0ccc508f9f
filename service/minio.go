package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Gabriel-Santos7/zapsign-api/config"
)

// MinioService stores uploaded document PDFs. Objects are keyed
// company/documentID/filename, so one company's files never collide
// with another's and all files of a document form a single prefix that
// the delete cascade can sweep.
type MinioService struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewMinioService(cfg *config.MinioConfig) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// DocumentObjectName builds the bucket key for a document's uploaded
// file.
func DocumentObjectName(companyID, documentID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", companyID, documentID, filename)
}

func documentPrefix(companyID, documentID string) string {
	return fmt.Sprintf("%s/%s/", companyID, documentID)
}

// EnsureBucket creates the document bucket on startup if it doesn't
// exist yet.
func (s *MinioService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadDocumentPDF stores an uploaded PDF under the document's prefix.
// Everything in the bucket is a PDF; the content type is fixed here
// rather than trusted from the upload.
func (s *MinioService) UploadDocumentPDF(ctx context.Context, objectName string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("failed to upload pdf: %w", err)
	}
	return nil
}

// GetPresignedURL returns a time-limited download URL for an object.
// This URL becomes the document's source URL, readable by the signature
// provider and the extraction pipeline without bucket credentials.
func (s *MinioService) GetPresignedURL(ctx context.Context, objectName string) (string, error) {
	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// RemoveDocumentFiles removes every object under a document's prefix,
// as part of the document delete cascade.
func (s *MinioService) RemoveDocumentFiles(ctx context.Context, companyID, documentID string) error {
	prefix := documentPrefix(companyID, documentID)
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects under %s: %w", prefix, object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", object.Key, err)
		}
	}
	return nil
}

// GetPublicURL returns the direct URL for an object, usable when the
// bucket policy allows anonymous reads.
func (s *MinioService) GetPublicURL(objectName string) string {
	protocol := "http"
	if s.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.config.Endpoint, s.bucket, objectName)
}
