// Package upload compresses item photos and stores them in S3-compatible
// object storage.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxEdge     = 1280
	jpegQuality = 80
	// MaxUploadBytes bounds the raw request body.
	MaxUploadBytes = 10 << 20
	// MaxPixels bounds the decoded size; headers are checked before decoding.
	MaxPixels = 50_000_000
	keyPrefix = "images/"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("image upload is not configured")

// ErrUnsupportedImage is returned for bodies that are not JPEG, PNG or WebP.
var ErrUnsupportedImage = errors.New("unsupported image format")

// ErrImageTooLarge is returned when the image header claims more than
// MaxPixels pixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicURL is the base under which uploaded keys are publicly readable.
	PublicURL string
}

type Uploader struct {
	cfg    S3Config
	client s3Client
	logger *slog.Logger
}

func NewUploader(cfg S3Config, logger *slog.Logger) *Uploader {
	u := &Uploader{cfg: cfg, logger: logger.With("component", "upload")}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		u.client = newS3Client(cfg)
	}
	return u
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (u *Uploader) Enabled() bool {
	return u.client != nil
}

// Compress decodes an image, scales it so the long edge is at most maxEdge
// and re-encodes it as JPEG. A cancelled ctx aborts between steps.
func Compress(ctx context.Context, r io.Reader, maxEdge int) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, decodeError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrUnsupportedImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, ErrImageTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, decodeError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := scaledSize(b.Dx(), b.Dy(), maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeError(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return ErrUnsupportedImage
	}
	return fmt.Errorf("decode image: %w", err)
}

func scaledSize(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}

// Upload compresses r and stores it under images/<uuid>.jpg, returning the
// public URL.
func (u *Uploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	if u.client == nil {
		return "", ErrDisabled
	}

	data, err := Compress(ctx, r, MaxEdge)
	if err != nil {
		return "", err
	}

	key := keyPrefix + uuid.NewString() + ".jpg"
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("image/jpeg"),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	u.logger.Info("image uploaded", "key", key, "bytes", len(data))
	return u.PublicURL(key), nil
}

func (u *Uploader) PublicURL(key string) string {
	return strings.TrimRight(u.cfg.PublicURL, "/") + "/" + key
}

// Delete removes an image previously returned by Upload. URLs that do not
// point into this bucket, such as product images from a lookup, are ignored.
func (u *Uploader) Delete(ctx context.Context, url string) error {
	if u.client == nil || url == "" {
		return nil
	}
	base := strings.TrimRight(u.cfg.PublicURL, "/") + "/"
	key, ok := strings.CutPrefix(url, base)
	if !ok || !strings.HasPrefix(key, keyPrefix) {
		return nil
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
