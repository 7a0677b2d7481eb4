package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IMINABO1/Vault/server/blob"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/work"
)

const (
	backupJobHandler = "backupStore"
	backupTimeout    = 2 * time.Minute
)

func (app *App) registerJobHandlers() error {
	if err := app.notifier.RegisterHandlers(app.workers); err != nil {
		return err
	}

	return app.workers.Register(backupJobHandler, app.backupStore)
}

func (app *App) enqueueJobs() error {
	if !app.config.Blob.Backup.Enabled {
		return nil
	}

	logg.Infof("Scheduling store backups '%v'", app.config.Blob.Backup.Schedule)
	return app.workers.PeriodicallyPerform(app.config.Blob.Backup.Schedule, work.JobParams{
		Name:    backupJobHandler,
		Handler: backupJobHandler,
		Args:    map[string]interface{}{},
	})
}

// backupStore uploads a snapshot of the whole record store next to the
// document payloads.
func (app *App) backupStore(map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	db, err := app.store.Load(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}

	object, err := app.blobs.Put(ctx, blob.BackupKey(models.Now().Format(time.RFC3339)), "application/json", data)
	if err != nil {
		return err
	}

	logg.Infof("Store backed up to %v", object.Key)
	return nil
}
