// Package storage re-hosts generated images so chats do not depend on
// short-lived upstream URLs.
package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// maxImageBytes caps how much of an upstream image is copied.
const maxImageBytes = 20 << 20

// ImageMirror copies an image to storage this service controls and returns its new URL.
type ImageMirror interface {
	Mirror(ctx context.Context, srcURL string) (string, error)
}

// Uploader is the part of *manager.Uploader the mirror uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config describes the target bucket. Empty keys fall back to the default AWS credential chain.
type S3Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	AccessKey     string
	SecretKey     string
}

// S3Mirror uploads images to an S3 bucket.
type S3Mirror struct {
	uploader Uploader
	http     *http.Client
	cfg      S3Config
}

// NewS3Mirror loads AWS configuration and returns a mirror for cfg.Bucket.
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket name not set")
	}
	if cfg.Region == "" {
		return nil, errors.New("S3 region not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg))
	return NewMirror(uploader, &http.Client{Timeout: time.Minute}, cfg), nil
}

// NewMirror builds a mirror from its parts.
func NewMirror(uploader Uploader, client *http.Client, cfg S3Config) *S3Mirror {
	return &S3Mirror{uploader: uploader, http: client, cfg: cfg}
}

// Mirror fetches srcURL (http(s) or a base64 data URL) and uploads it under images/.
func (m *S3Mirror) Mirror(ctx context.Context, srcURL string) (string, error) {
	data, contentType, err := m.fetch(ctx, srcURL)
	if err != nil {
		return "", err
	}

	key := "images/" + uuid.NewString() + extensionFor(contentType)
	_, err = m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return m.publicURL(key), nil
}

func (m *S3Mirror) publicURL(key string) string {
	if m.cfg.PublicBaseURL != "" {
		return strings.TrimRight(m.cfg.PublicBaseURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.cfg.Bucket, m.cfg.Region, key)
}

func (m *S3Mirror) fetch(ctx context.Context, srcURL string) ([]byte, string, error) {
	if strings.HasPrefix(srcURL, "data:") {
		return decodeDataURL(srcURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("could not create image request: %w", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("could not read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// decodeDataURL handles data:<type>;base64,<payload>.
func decodeDataURL(u string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("unsupported data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("could not decode data URL: %w", err)
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ""
}
