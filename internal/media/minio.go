package media

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig locates the bucket images are written to.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOUploader writes images to an S3 compatible bucket.
type MinIOUploader struct {
	client     *minio.Client
	bucket     string
	publicBase string
	httpClient *http.Client
}

// NewMinIOUploader connects to the endpoint and makes sure the bucket exists.
func NewMinIOUploader(ctx context.Context, cfg MinIOConfig) (*MinIOUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &MinIOUploader{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Upload stores the image under folder with a generated object name.
func (u *MinIOUploader) Upload(ctx context.Context, source, folder string) (string, error) {
	var (
		img *Image
		err error
	)
	switch {
	case IsDataURI(source):
		img, err = DecodeDataURI(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		img, err = Fetch(ctx, u.httpClient, source)
	default:
		err = fmt.Errorf("%w: expected a URL or data URI", ErrInvalidSource)
	}
	if err != nil {
		return "", err
	}

	objectName := ObjectName(folder, img.Extension)
	_, err = u.client.PutObject(ctx, u.bucket, objectName, bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: img.ContentType})
	if err != nil {
		return "", fmt.Errorf("minio upload failed: %w", err)
	}
	return u.publicBase + "/" + objectName, nil
}

// ObjectName builds a unique object key inside folder.
func ObjectName(folder, extension string) string {
	name := uuid.NewString() + extension
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
