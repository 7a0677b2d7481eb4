package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "data", "db.json"))
	require.Nil(t, err)

	sqliteStore, err := NewSqliteStore("passphrase", t.TempDir())
	require.Nil(t, err)

	mr := miniredis.RunT(t)
	redisStore := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "vault:test")

	stores := map[string]Store{
		"file":   fileStore,
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}

	t.Cleanup(func() {
		for _, st := range stores {
			st.Close()
		}
	})

	return stores
}

func TestEmptyStoreLoadsEmptyCollections(t *testing.T) {
	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			db, err := st.Load(context.Background())
			require.Nil(t, err)

			assert.NotNil(t, db.Documents)
			assert.NotNil(t, db.EmergencyContacts)
			assert.NotNil(t, db.Pins)
			assert.NotNil(t, db.Beacons)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			db := models.NewDatabase()
			db.Pins["u1"] = "hash"
			db.Documents = append(db.Documents, models.Document{ID: "d1", UserID: "u1", Type: models.Visa, KeyFields: []models.KeyField{}})

			require.Nil(t, st.Save(ctx, db))

			loaded, err := st.Load(ctx)
			require.Nil(t, err)
			assert.Equal(t, "hash", loaded.Pins["u1"])
			require.Len(t, loaded.Documents, 1)
			assert.Equal(t, models.Visa, loaded.Documents[0].Type)
		})
	}
}

func TestConcurrentUpdatesAreSerialised(t *testing.T) {
	const writers = 25

	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			wg := sync.WaitGroup{}

			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := st.Update(ctx, func(db *models.Database) error {
						db.AddContact("u1", models.Contact{ID: fmt.Sprint(i), Name: fmt.Sprintf("contact %d", i)})
						return nil
					})
					assert.Nil(t, err)
				}(i)
			}
			wg.Wait()

			db, err := st.Load(ctx)
			require.Nil(t, err)
			assert.Len(t, db.ContactsFor("u1"), writers, "no update may be lost")
		})
	}
}

func TestUpdateAbortsOnMutateError(t *testing.T) {
	errNope := apperrors.New(apperrors.NotFound, "Document not found.")

	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			err := st.Update(ctx, func(db *models.Database) error {
				db.Pins["u1"] = "changed"
				return errNope
			})
			assert.Equal(t, errNope, err, "mutate errors are returned unchanged")

			db, err := st.Load(ctx)
			require.Nil(t, err)
			assert.Empty(t, db.Pins)
		})
	}
}

func TestUpdateWithCancelledContextWritesNothing(t *testing.T) {
	for name, st := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())

			err := st.Update(ctx, func(db *models.Database) error {
				db.Pins["u1"] = "hash"
				cancel()
				return nil
			})
			assert.NotNil(t, err)

			db, err := st.Load(context.Background())
			require.Nil(t, err)
			assert.Empty(t, db.Pins)
		})
	}
}

func TestFileStoreCorruptFileIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.Nil(t, os.WriteFile(path, []byte("{not json"), 0600))

	st, err := NewFileStore(path)
	require.Nil(t, err)

	_, err = st.Load(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.StorageUnavailable))

	err = st.Update(context.Background(), func(db *models.Database) error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.StorageUnavailable))

	data, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Equal(t, "{not json", string(data), "a failed update must not overwrite the file")
}

func TestFileStoreMissingCollectionsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.Nil(t, os.WriteFile(path, []byte(`{"documents":[{"id":"1","userId":"u1"}]}`), 0600))

	st, err := NewFileStore(path)
	require.Nil(t, err)

	db, err := st.Load(context.Background())
	require.Nil(t, err)
	assert.Len(t, db.Documents, 1)
	assert.NotNil(t, db.EmergencyContacts)
}

func TestMemoryStoreFailWith(t *testing.T) {
	st := NewMemoryStore()
	st.FailWith(errors.New("disk unplugged"))

	_, err := st.Load(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.StorageUnavailable))

	st.FailWith(nil)
	_, err = st.Load(context.Background())
	assert.Nil(t, err)
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	st := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "vault:test")
	mr.Close()

	assert.True(t, apperrors.Is(st.Ping(context.Background()), apperrors.StorageUnavailable))

	_, err := st.Load(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.StorageUnavailable))

	err = st.Update(context.Background(), func(db *models.Database) error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.StorageUnavailable))
}
