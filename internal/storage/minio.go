package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client uploads finished backup archives to an S3-compatible bucket so the
// run's output also lands in the lake alongside the local files.
type Client struct {
	mc     *minio.Client
	bucket string
}

func NewMinIO(endpoint, access, secret string, useTLS bool, bucket string) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc, bucket: bucket}, nil
}

func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// UploadFile streams one local archive into the bucket.
func (c *Client) UploadFile(ctx context.Context, objectName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = c.mc.PutObject(ctx, c.bucket, objectName, f, fi.Size(), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

// BuildObjectPath partitions backups by run date and run id, so repeated
// runs never overwrite each other in the bucket.
func BuildObjectPath(basePath string, t time.Time, runID, file string) string {
	return fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/run=%s/%s",
		basePath, t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), runID, file)
}
