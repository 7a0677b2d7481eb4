package store

import (
	"context"
	"sync"

	"github.com/IMINABO1/Vault/server/models"
)

// MemoryStore keeps the database in process. Every Load returns a deep
// copy, matching the isolation of the persistent stores.
type MemoryStore struct {
	mu     sync.Mutex
	db     *models.Database
	failed error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: models.NewDatabase()}
}

// FailWith makes every following call fail as if the backing medium
// were unreachable. Pass nil to recover.
func (ms *MemoryStore) FailWith(err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.failed = err
}

func (ms *MemoryStore) Load(ctx context.Context) (*models.Database, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.load()
}

func (ms *MemoryStore) Save(ctx context.Context, db *models.Database) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return ms.save(db)
}

func (ms *MemoryStore) Update(ctx context.Context, mutate MutateFunc) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	db, err := ms.load()
	if err != nil {
		return err
	}

	if err := mutate(db); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return ms.save(db)
}

func (ms *MemoryStore) Close() error {
	return nil
}

func (ms *MemoryStore) load() (*models.Database, error) {
	if ms.failed != nil {
		return nil, unavailable(ms.failed, "load memory store")
	}

	db, err := ms.db.Clone()
	if err != nil {
		return nil, unavailable(err, "copy database")
	}

	return db, nil
}

func (ms *MemoryStore) save(db *models.Database) error {
	if ms.failed != nil {
		return unavailable(ms.failed, "save memory store")
	}

	clone, err := db.Clone()
	if err != nil {
		return unavailable(err, "copy database")
	}
	ms.db = clone

	return nil
}
