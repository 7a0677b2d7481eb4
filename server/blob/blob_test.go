package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURIStore(t *testing.T) {
	obj, err := DataURIStore{}.Put(context.Background(), "ignored", "image/png", []byte("hello"))
	require.Nil(t, err)

	assert.Equal(t, "data:image/png;base64,aGVsbG8=", obj.URL)
	assert.Empty(t, obj.Key)
	assert.Nil(t, DataURIStore{}.Delete(context.Background(), ""))
}

func TestDocumentKeyIsFreshPerCall(t *testing.T) {
	first := DocumentKey("u1", "d1", "image/jpeg")
	second := DocumentKey("u1", "d1", "image/jpeg")

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "documents/u1/d1/"))
	assert.True(t, strings.HasSuffix(first, ".jpg"))
}

func TestDocumentKeyStaysUnderDocuments(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		documentID string
		prefix     string
	}{
		{"parent directory", "..", "d1", "documents/%2E%2E/d1/"},
		{"current directory", ".", "d1", "documents/%2E/d1/"},
		{"traversal with slashes", "../../etc", "d1", "documents/..%2F..%2Fetc/d1/"},
		{"backslashes", `..\x`, "d1", "documents/..%5Cx/d1/"},
		{"traversal in the document id", "u1", "../../u2", "documents/u1/..%2F..%2Fu2/"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			key := DocumentKey(tc.userID, tc.documentID, "image/png")

			assert.True(t, strings.HasPrefix(key, tc.prefix), key)
			assert.Equal(t, 4, len(strings.Split(key, "/")), key)
		})
	}
}

func TestBackupKey(t *testing.T) {
	assert.Equal(t, "backups/vault-2026-10-16T09-30-00Z.json", BackupKey("2026-10-16T09:30:00Z"))
}
