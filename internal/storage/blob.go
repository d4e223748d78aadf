package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"strings"

	cfg "github.com/Akash01010101/threadcraft/configs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
)

// BlobStore is the object-storage collaborator the media resolver talks
// to. Locators are the public URLs stored on content units.
type BlobStore interface {
	Fetch(ctx context.Context, locator string) ([]byte, string, error)
	DeleteIfExists(ctx context.Context, locator string) error
}

type R2Store struct {
	config cfg.Config
}

func NewR2Store(cfg cfg.Config) *R2Store {
	return &R2Store{config: cfg}
}

func (r *R2Store) client() *s3.Client {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.R2.AccessKey, r.config.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		log.Fatal(err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.R2.AccountID))
	})
}

// Fetch downloads the object named by locator and returns its bytes and
// content type. When storage reports no content type the bytes are
// sniffed instead.
func (r *R2Store) Fetch(ctx context.Context, locator string) ([]byte, string, error) {
	container, key, err := ParseLocator(locator)
	if err != nil {
		return nil, "", err
	}

	out, err := r.client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, "", fmt.Errorf("error fetching object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading object body: %w", err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			contentType = kind.MIME.Value
		}
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return data, contentType, nil
}

// DeleteIfExists removes the object named by locator. Deleting an absent
// object is not an error.
func (r *R2Store) DeleteIfExists(ctx context.Context, locator string) error {
	container, key, err := ParseLocator(locator)
	if err != nil {
		return err
	}

	_, err = r.client().DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error deleting object %s: %w", key, err)
	}

	return nil
}

// ParseLocator splits a stored object URL into container and path: the
// first path segment names the container, the rest is the object key.
func ParseLocator(locator string) (container, key string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("invalid media locator %q: %w", locator, err)
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("media locator %q has no container/path", locator)
	}

	key, err = url.PathUnescape(parts[1])
	if err != nil {
		return "", "", fmt.Errorf("invalid media locator path %q: %w", parts[1], err)
	}

	return parts[0], key, nil
}
