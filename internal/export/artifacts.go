package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver keeps a copy of every generated export in object storage,
// keyed by plan and version so historical artifacts stay retrievable.
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver connects to a MinIO (or S3-compatible) endpoint and
// makes sure the bucket exists.
func NewArchiver(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Archiver{client: client, bucket: bucket}, nil
}

// Archive uploads the artifact in the background. Failures are logged,
// never surfaced: the caller already holds the bytes it asked for.
func (a *Archiver) Archive(planUUID string, versionNumber int, result *Result) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		key := ObjectKey(planUUID, versionNumber, result.Filename)
		_, err := a.client.PutObject(ctx, a.bucket, key,
			bytes.NewReader(result.Data), int64(len(result.Data)),
			minio.PutObjectOptions{ContentType: result.MimeType})
		if err != nil {
			log.Printf("export: archive %s: %v", key, err)
		}
	}()
}

// ObjectKey builds the storage key for an exported artifact.
func ObjectKey(planUUID string, versionNumber int, filename string) string {
	return fmt.Sprintf("plans/%s/v%d/%s", planUUID, versionNumber, filename)
}
