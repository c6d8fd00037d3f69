package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxBookingImages = 3
	MaxImageBytes    = 5 * 1024 * 1024
)

// AllowedImageExt reports whether filename has a supported image extension.
func AllowedImageExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

// MediaStore persists uploaded booking images and returns their public URL.
type MediaStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

func storedName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
}

// LocalMediaStore writes images under dir and serves them from /uploads.
type LocalMediaStore struct {
	dir string
}

func NewLocalMediaStore(dir string) (*LocalMediaStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalMediaStore{dir: dir}, nil
}

func (s *LocalMediaStore) Dir() string { return s.dir }

func (s *LocalMediaStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	name := storedName(filename)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return "/uploads/" + name, nil
}

// CloudinaryMediaStore uploads images to a Cloudinary folder.
type CloudinaryMediaStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zap.Logger
}

func NewCloudinaryMediaStore(cloudinaryURL, folder string, log *zap.Logger) (*CloudinaryMediaStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("initialize cloudinary: %w", err)
	}
	return &CloudinaryMediaStore{cld: cld, folder: folder, log: log.Named("media")}, nil
}

func (s *CloudinaryMediaStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := storedName(filename)
	overwrite := false
	unique := true
	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Overwrite:      &overwrite,
		UniqueFilename: &unique,
		ResourceType:   "image",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	s.log.Debug("image uploaded", zap.String("url", res.SecureURL))
	return res.SecureURL, nil
}
