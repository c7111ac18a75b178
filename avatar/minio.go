// Package avatar stores profile pictures in S3 compatible object storage.
package avatar

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	accounts "github.com/goliatone/go-accounts"
)

// Config holds the object storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Folder    string
	UseSSL    bool
	// PublicURL prefixes object keys in returned URLs. Defaults to the
	// endpoint and bucket.
	PublicURL string
	MaxBytes  int64
}

// Store uploads avatars with a stable key per username so a new upload
// replaces the previous picture.
type Store struct {
	mc        *minio.Client
	bucket    string
	folder    string
	publicURL string
	maxBytes  int64
}

var _ accounts.AvatarStore = (*Store)(nil)

// New creates the minio client.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("avatar endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("avatar access_key and secret_key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newStore(mc, cfg), nil
}

func newStore(mc *minio.Client, cfg Config) *Store {
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "avatars"
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = "profiles"
	}

	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, bucket)
	}

	return &Store{
		mc:        mc,
		bucket:    bucket,
		folder:    folder,
		publicURL: public,
		maxBytes:  cfg.MaxBytes,
	}
}

// EnsureBucket creates the bucket when missing.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Upload implements accounts.AvatarStore.
func (s *Store) Upload(ctx context.Context, upload accounts.AvatarUpload, identifier string) (string, error) {
	if s.maxBytes > 0 && upload.Size > s.maxBytes {
		return "", fmt.Errorf("avatar of %d bytes exceeds limit of %d", upload.Size, s.maxBytes)
	}

	key := s.Key(identifier)
	_, err := s.mc.PutObject(ctx, s.bucket, key, upload.Reader, upload.Size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return s.URL(key), nil
}

// Key returns the object key for identifier.
func (s *Store) Key(identifier string) string {
	return path.Join(s.folder, "user_"+identifier)
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return s.publicURL + "/" + key
}
