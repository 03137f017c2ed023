package database

import (
	"context"
	"fmt"
	"io"
	"path"

	"rony-server/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient wraps object storage for shared files.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(cfg *config.MinioConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOClient{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// PutObject stores the reader under a unique key and returns the key.
func (m *MinIOClient) PutObject(ctx context.Context, fileName, contentType string, size int64, r io.Reader) (string, error) {
	objectKey := path.Join("shares", uuid.New().String(), fileName)
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return objectKey, nil
}

// ObjectURL builds a plain URL for a stored object.
func (m *MinIOClient) ObjectURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", m.client.EndpointURL().String(), m.bucket, objectKey)
}
