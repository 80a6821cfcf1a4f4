package audiofilestore

import (
	"context"
	"fmt"
	"path"
	"strings"

	"audioguide/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig locates the bucket holding the audio objects.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// MinioSource reads audio objects from a MinIO / S3 bucket.
// A track's file_path is the object key; a leading "/" is ignored.
type MinioSource struct {
	client *minio.Client
	bucket string
}

func NewMinioSource(ctx context.Context, cfg MinioConfig) (*MinioSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("NewMinioSource: minio.New failed: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("NewMinioSource: BucketExists failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("NewMinioSource: bucket %q does not exist", cfg.Bucket)
	}

	logger.WithField("endpoint", cfg.Endpoint).
		WithField("bucket", cfg.Bucket).
		Info("NewMinioSource: connected")

	return &MinioSource{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(filePath string) string {
	return strings.TrimPrefix(filePath, "/")
}

func (m *MinioSource) Open(ctx context.Context, filePath string) (*Audio, error) {
	key := objectKey(filePath)

	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrAudioNotFound, filePath)
		}
		return nil, fmt.Errorf("MinioSource.Open: StatObject failed: %w", err)
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("MinioSource.Open: GetObject failed: %w", err)
	}

	return &Audio{ReadCloser: obj, Size: info.Size, Name: path.Base(key)}, nil
}

// DefaultTitle uses the object name: tags would need a download.
func (m *MinioSource) DefaultTitle(ctx context.Context, filePath string) string {
	return model.TitleFromPath(objectKey(filePath))
}
