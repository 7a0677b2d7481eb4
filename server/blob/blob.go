package blob

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/IMINABO1/Vault/server/models"
)

// Object is a stored payload. Key is empty when the payload lives inside
// URL itself.
type Object struct {
	Key string
	URL string
}

// Store holds document images and store backups.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (Object, error)
	Delete(ctx context.Context, key string) error
}

var extensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/webp":       ".webp",
	"image/heic":       ".heic",
	"image/heif":       ".heif",
	"application/json": ".json",
}

// DocumentKey returns a fresh object key for a document image. Each call
// yields a new key, so a replacement never overwrites the object it
// replaces. The ids are escaped, so the key always stays under documents/.
func DocumentKey(userID, documentID, contentType string) string {
	return path.Join("documents", pathSegment(userID), pathSegment(documentID), models.NewID()+extensions[contentType])
}

// pathSegment escapes s into a single path element.
func pathSegment(s string) string {
	escaped := url.PathEscape(s)
	if strings.Trim(escaped, ".") == "" {
		return strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}

// BackupKey returns the object key for a store backup taken at stamp.
func BackupKey(stamp string) string {
	return path.Join("backups", fmt.Sprintf("vault-%s.json", strings.NewReplacer(":", "-", ".", "-").Replace(stamp)))
}

// DataURIStore embeds payloads into the record itself as data URIs.
type DataURIStore struct{}

func (DataURIStore) Put(ctx context.Context, key, contentType string, data []byte) (Object, error) {
	return Object{URL: DataURI(contentType, data)}, nil
}

func (DataURIStore) Delete(ctx context.Context, key string) error {
	return nil
}

func DataURI(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
