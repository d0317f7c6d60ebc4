package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ImageStore persists decoded image bytes and returns a public URL.
type ImageStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
}

// S3Store stores images in an S3 bucket with public-read objects.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(awsCfg), bucket: bucket}, nil
}

func (s *S3Store) Save(ctx context.Context, data []byte, ext string) (string, error) {
	key := fmt.Sprintf("recipe-images/%s%s", uuid.New().String(), ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeForExt(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}

// LocalStore writes images under a media directory served by the web
// runtime.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	name := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// ImageService decodes base64 recipe images and hands them to the store.
type ImageService struct {
	store ImageStore
}

func NewImageService(store ImageStore) *ImageService {
	return &ImageService{store: store}
}

// SaveBase64 accepts either a raw base64 payload or a data URI like
// "data:image/png;base64,...." and returns the stored image URL.
func (s *ImageService) SaveBase64(ctx context.Context, encoded string) (string, error) {
	ext := ".png"
	if strings.HasPrefix(encoded, "data:") {
		mediaType, rest, found := strings.Cut(strings.TrimPrefix(encoded, "data:"), ";base64,")
		if !found {
			return "", &ValidationError{Field: "image", Message: "invalid image encoding"}
		}
		ext = extForContentType(mediaType)
		encoded = rest
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &ValidationError{Field: "image", Message: "invalid base64 image data"}
	}
	if len(data) == 0 {
		return "", &ValidationError{Field: "image", Message: "image is empty"}
	}
	return s.store.Save(ctx, data, ext)
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".jpg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
