package store

import (
	"context"
	"encoding/json"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/pkg/errors"
)

var logg = logger.NewLogger("store")

// MutateFunc changes db in place. An error aborts the update and is
// returned unchanged to the caller.
type MutateFunc func(db *models.Database) error

// Store persists the whole Database as one unit.
//
// Update is the only safe way to change state: implementations run the
// load, mutate and save steps as one serialised unit so concurrent
// updates never lose each other's writes.
type Store interface {
	Load(ctx context.Context) (*models.Database, error)
	Save(ctx context.Context, db *models.Database) error
	Update(ctx context.Context, mutate MutateFunc) error
	Close() error
}

func unavailable(err error, msg string) error {
	return apperrors.Wrap(apperrors.StorageUnavailable, errors.Wrap(err, msg), "record store unavailable")
}

func encode(db *models.Database) ([]byte, error) {
	return json.MarshalIndent(db, "", "  ")
}

func decode(data []byte) (*models.Database, error) {
	db := &models.Database{}
	if err := json.Unmarshal(data, db); err != nil {
		return nil, err
	}
	db.Normalize()

	return db, nil
}
