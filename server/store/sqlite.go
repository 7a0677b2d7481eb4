package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

const snapshotID = 1

// snapshot is the single row holding the encoded database.
type snapshot struct {
	ID        uint   `gorm:"primarykey"`
	Data      string `gorm:"not null"`
	UpdatedAt time.Time
}

func (snapshot) TableName() string {
	return "vault_snapshots"
}

// SqliteStore keeps the database as one row of an encrypted sqlite file.
type SqliteStore struct {
	db   *gorm.DB
	path string
}

func NewSqliteStore(passPhrase, dir string) (*SqliteStore, error) {
	if err := utils.CreateDirIfNotExist(dir); err != nil {
		return nil, unavailable(err, "create sqlite directory")
	}

	path := filepath.Join(dir, "vault.db")
	dsn := fmt.Sprintf("file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL", path, passPhrase)

	db, err := gorm.Open(sqliteEncrypt.Open(dsn), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, unavailable(err, "open sqlite")
	}

	// one connection serialises every transaction on the file
	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable(err, "sqlite handle")
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&snapshot{}); err != nil {
		return nil, unavailable(err, "migrate sqlite")
	}

	logg.Infof("Using sqlite record store at %v", path)
	return &SqliteStore{db: db, path: path}, nil
}

func (ss *SqliteStore) Load(ctx context.Context) (*models.Database, error) {
	return ss.load(ss.db.WithContext(ctx))
}

func (ss *SqliteStore) Save(ctx context.Context, db *models.Database) error {
	return ss.save(ss.db.WithContext(ctx), db)
}

func (ss *SqliteStore) Update(ctx context.Context, mutate MutateFunc) error {
	var mutateErr error

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		db, err := ss.load(tx)
		if err != nil {
			return err
		}

		if mutateErr = mutate(db); mutateErr != nil {
			return mutateErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		return ss.save(tx, db)
	})

	if mutateErr != nil {
		return mutateErr
	}

	return err
}

func (ss *SqliteStore) Close() error {
	sqlDB, err := ss.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (ss *SqliteStore) load(tx *gorm.DB) (*models.Database, error) {
	row := snapshot{}
	err := tx.First(&row, snapshotID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewDatabase(), nil
	}

	if err != nil {
		return nil, unavailable(err, "read snapshot")
	}

	db, err := decode([]byte(row.Data))
	if err != nil {
		return nil, unavailable(err, "parse snapshot")
	}

	return db, nil
}

func (ss *SqliteStore) save(tx *gorm.DB, db *models.Database) error {
	data, err := encode(db)
	if err != nil {
		return unavailable(err, "encode database")
	}

	row := snapshot{ID: snapshotID, Data: string(data), UpdatedAt: models.Now()}
	err = tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return unavailable(err, "write snapshot")
	}

	return nil
}
