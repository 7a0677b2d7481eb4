package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/IMINABO1/Vault/server/auth/key"
	"github.com/IMINABO1/Vault/server/blob"
	"github.com/IMINABO1/Vault/server/contacts"
	"github.com/IMINABO1/Vault/server/gstorage"
	"github.com/IMINABO1/Vault/server/intake"
	"github.com/IMINABO1/Vault/server/lockdown"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/server/mailer"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/IMINABO1/Vault/server/oracle"
	"github.com/IMINABO1/Vault/server/s3storage"
	"github.com/IMINABO1/Vault/server/safety"
	"github.com/IMINABO1/Vault/server/store"
	"github.com/IMINABO1/Vault/server/twilio"
	"github.com/IMINABO1/Vault/server/work"
	"github.com/IMINABO1/Vault/shared"
	"github.com/IMINABO1/Vault/utils"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

var logg = logger.NewLogger("server")

// App holds every component the HTTP surface talks to.
type App struct {
	config   *shared.ServerConfig
	store    store.Store
	blobs    blob.Store
	keyPair  *key.KeyPair
	workers  *work.WorkerPoolAdapter
	notifier *safety.Notifier

	pipeline *intake.Pipeline
	contacts *contacts.Registry
	beacons  *safety.BeaconService
	gate     *lockdown.Gate

	// demoOwner is the caller for requests without a token, when enabled
	demoOwner *models.Owner
}

func Start(config *viper.Viper, devMode bool) {
	serverConfig := &shared.ServerConfig{}
	fatalOnError(config.Unmarshal(serverConfig))
	fatalOnError(serverConfig.Validate())

	app, err := newApp(context.Background(), serverConfig, devMode)
	fatalOnError(err)

	fatalOnError(app.registerJobHandlers())
	app.workers.Start()
	fatalOnError(app.enqueueJobs())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", serverConfig.Vault.Listener.Port),
		Handler:           app.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go serve(server)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cleanup(app, server)
}

// newApp connects to the configured backends and wires the components.
func newApp(ctx context.Context, config *shared.ServerConfig, devMode bool) (*App, error) {
	st, err := newStore(ctx, config, devMode)
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(ctx, config)
	if err != nil {
		st.Close()
		return nil, err
	}

	keyPair, err := loadKeyPair(config.Vault.PrivateKeyPem)
	if err != nil {
		st.Close()
		return nil, err
	}

	analyzer := oracle.NewGeminiClient(oracle.GeminiConfig{
		BaseURL:    config.Oracle.BaseURL,
		Model:      config.Oracle.Model,
		APIKey:     config.Oracle.APIKey,
		Timeout:    config.Oracle.Timeout,
		RetryCount: config.Oracle.RetryCount,
	})
	if config.Oracle.APIKey == "" {
		logg.Warn("oracle.apiKey is not set, every upload will fail until it is")
	}

	workers := work.NewWorkerAdapter(config.Cron.TimeZone, work.Options{
		Concurrency: config.Notifications.Workers,
		MaxFails:    config.Notifications.MaxAttempts,
		QueueSize:   config.Notifications.QueueSize,
	})

	app := buildApp(config, st, analyzer, blobs, workers, keyPair)
	app.workers = workers
	app.notifier = newNotifier(config)

	return app, nil
}

// buildApp wires the domain components on top of already connected backends.
func buildApp(config *shared.ServerConfig, st store.Store, analyzer oracle.Analyzer, blobs blob.Store, dispatcher safety.Dispatcher, keyPair *key.KeyPair) *App {
	app := &App{
		config:  config,
		store:   st,
		blobs:   blobs,
		keyPair: keyPair,
		pipeline: intake.NewPipeline(st, analyzer, blobs, intake.Options{
			DefaultIssuingCountry: config.Vault.DefaultIssuingCountry,
			OracleTimeout:         config.Oracle.Timeout,
		}),
		contacts: contacts.NewRegistry(st),
		beacons:  safety.NewBeaconService(st, dispatcher),
		gate:     lockdown.NewGate(st, config.Vault.BcryptCost),
	}

	if demo := config.Vault.DemoUser; demo.Enabled {
		app.demoOwner = &models.Owner{ID: demo.ID, FullName: demo.FullName, Email: demo.Email}
	}

	return app
}

func newStore(ctx context.Context, config *shared.ServerConfig, devMode bool) (store.Store, error) {
	switch config.Store.Driver {
	case "sqlite":
		dir := config.Store.Sqlite.Dir
		if dir == "" {
			dataDir, err := utils.DataDirectory(devMode)
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(dataDir, "db")
		}

		return store.NewSqliteStore(config.Store.Sqlite.PassPhrase, dir)

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     config.Store.Redis.Addr,
			Password: config.Store.Redis.Password,
			DB:       config.Store.Redis.DB,
		})

		redisStore := store.NewRedisStore(client, config.Store.Redis.Key)
		if err := redisStore.Ping(ctx); err != nil {
			redisStore.Close()
			return nil, err
		}

		logg.Infof("Using redis store at %v", config.Store.Redis.Addr)
		return redisStore, nil

	default:
		path := config.Store.File.Path
		if path == "" {
			dataDir, err := utils.DataDirectory(devMode)
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dataDir, "db.json")
		}

		logg.Infof("Using file store at %v", path)
		return store.NewFileStore(path)
	}
}

func newBlobStore(ctx context.Context, config *shared.ServerConfig) (blob.Store, error) {
	switch config.Blob.Driver {
	case "gcs":
		return gstorage.NewGStorage(
			ctx,
			config.Google.ApplicationCredentials,
			config.Google.Storage.Bucket,
			config.Google.Storage.Prefix,
		)

	case "s3":
		return s3storage.New(ctx, s3storage.Config{
			Region:          config.AWS.Region,
			Bucket:          config.AWS.Bucket,
			Prefix:          config.AWS.Prefix,
			Endpoint:        config.AWS.Endpoint,
			AccessKeyID:     config.AWS.AccessKeyID,
			SecretAccessKey: config.AWS.SecretAccessKey,
		})

	default:
		return blob.DataURIStore{}, nil
	}
}

func loadKeyPair(privateKeyPem string) (*key.KeyPair, error) {
	if privateKeyPem != "" {
		return key.NewKeyPairFromRSAPrivateKeyPem([]byte(privateKeyPem))
	}

	logg.Warn("vault.privateKeyPem is not set, signing tokens with a throwaway key")
	return key.GenerateKeyPair()
}

func newNotifier(config *shared.ServerConfig) *safety.Notifier {
	var emailSender safety.EmailSender
	var smsSender safety.SMSSender

	if config.Sendgrid.APIKey != "" {
		emailSender = mailer.NewMailer(config.Sendgrid.APIKey, config.Sendgrid.FromEmail, config.Sendgrid.FromName)
	} else {
		logg.Warn("sendgrid.apiKey is not set, beacon e-mails are disabled")
	}

	if config.Twilio.AccountSid != "" {
		smsSender = twilio.NewClient(config.Twilio)
	} else {
		logg.Warn("twilio.accountSid is not set, beacon sms are disabled")
	}

	return safety.NewNotifier(emailSender, smsSender)
}

func closeBlobStore(blobs blob.Store) {
	if closer, ok := blobs.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logg.Error(err)
		}
	}
}
