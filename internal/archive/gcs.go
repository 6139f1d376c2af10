// Package archive stores JSON reports in Cloud Storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type Archiver interface {
	Archive(ctx context.Context, name string, at time.Time, payload interface{}) (string, error)
}

type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSArchiver(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket, prefix: prefix}, nil
}

// Archive writes payload as JSON and returns the gs:// URL of the object.
func (a *GCSArchiver) Archive(ctx context.Context, name string, at time.Time, payload interface{}) (string, error) {
	objectPath := ObjectPath(a.prefix, name, at)
	w := a.client.Bucket(a.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = "application/json"
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, objectPath), nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ObjectPath lays reports out by day: <prefix>/2024/03/01/<name>.json
func ObjectPath(prefix, name string, at time.Time) string {
	return path.Join(strings.Trim(prefix, "/"), at.UTC().Format("2006/01/02"), name+".json")
}
