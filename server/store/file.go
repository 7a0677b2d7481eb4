package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/utils"
)

// FileStore keeps the database in a single JSON file. Writes go to a
// temporary file that is renamed over the original, so a crash leaves
// either the old or the new state on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := utils.CreateDirIfNotExist(filepath.Dir(path)); err != nil {
		return nil, unavailable(err, "create store directory")
	}

	fs := &FileStore{path: path}

	exists, err := utils.FileExist(path)
	if err != nil {
		return nil, unavailable(err, "stat store file")
	}

	if !exists {
		logg.Infof("Creating empty record store at %v", path)
		if err := fs.write(models.NewDatabase()); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

func (fs *FileStore) Load(ctx context.Context) (*models.Database, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.read()
}

func (fs *FileStore) Save(ctx context.Context, db *models.Database) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fs.write(db)
}

func (fs *FileStore) Update(ctx context.Context, mutate MutateFunc) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	db, err := fs.read()
	if err != nil {
		return err
	}

	if err := mutate(db); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return fs.write(db)
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) read() (*models.Database, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, unavailable(err, "read store file")
	}

	db, err := decode(data)
	if err != nil {
		return nil, unavailable(err, "parse store file")
	}

	return db, nil
}

func (fs *FileStore) write(db *models.Database) error {
	data, err := encode(db)
	if err != nil {
		return unavailable(err, "encode database")
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".vault-*.json")
	if err != nil {
		return unavailable(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return unavailable(err, "write temp file")
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return unavailable(err, "sync temp file")
	}

	if err := tmp.Close(); err != nil {
		return unavailable(err, "close temp file")
	}

	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return unavailable(err, "replace store file")
	}

	return nil
}
