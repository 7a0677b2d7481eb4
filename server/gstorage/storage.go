package gstorage

import (
	"context"
	"errors"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"github.com/IMINABO1/Vault/server/blob"
	"google.golang.org/api/option"
)

// GStorage is a blob.Store backed by a Google Cloud Storage bucket.
type GStorage struct {
	storageClient *storage.Client
	bucket        string
	prefix        string
}

func NewGStorage(ctx context.Context, credentialsFilePath, bucket, prefix string, opts ...option.ClientOption) (*GStorage, error) {
	if credentialsFilePath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFilePath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads data as an object.
func (gs *GStorage) Put(ctx context.Context, key, contentType string, data []byte) (blob.Object, error) {
	objectName := gs.objectName(key)

	wc := gs.storageClient.Bucket(gs.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return blob.Object{}, fmt.Errorf("Writer.Write: %v", err)
	}
	if err := wc.Close(); err != nil {
		return blob.Object{}, fmt.Errorf("Writer.Close: %v", err)
	}

	logg.Infof("Blob %v uploaded to %v", objectName, gs.bucket)
	return blob.Object{Key: key, URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", gs.bucket, objectName)}, nil
}

// Delete removes an object. A missing object is not an error.
func (gs *GStorage) Delete(ctx context.Context, key string) error {
	err := gs.storageClient.Bucket(gs.bucket).Object(gs.objectName(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("Object(%q).Delete: %v", key, err)
	}

	return nil
}

func (gs *GStorage) Close() error {
	return gs.storageClient.Close()
}

func (gs *GStorage) objectName(key string) string {
	return path.Join(gs.prefix, key)
}
