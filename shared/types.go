package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Vault         VaultConfig         `mapstructure:"vault" validate:"required"`
	Store         StoreConfig         `mapstructure:"store" validate:"required"`
	Oracle        OracleConfig        `mapstructure:"oracle" validate:"required"`
	Blob          BlobConfig          `mapstructure:"blob"`
	Google        GoogleConfig        `mapstructure:"google"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Sendgrid      SendgridConfig      `mapstructure:"sendgrid"`
	Twilio        TwilioConfig        `mapstructure:"twilio"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Cron          CronConfig          `mapstructure:"cron" validate:"required"`
}

type VaultConfig struct {
	PrivateKeyPem         string         `mapstructure:"privateKeyPem"`
	Listener              ListenerConfig `mapstructure:"listener" validate:"required"`
	CorsOrigin            string         `mapstructure:"corsOrigin"`
	MaxUploadBytes        int64          `mapstructure:"maxUploadBytes" validate:"min=1"`
	DefaultIssuingCountry string         `mapstructure:"defaultIssuingCountry" validate:"required"`
	BcryptCost            int            `mapstructure:"bcryptCost" validate:"min=4,max=31"`
	DemoUser              DemoUserConfig `mapstructure:"demoUser"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type DemoUserConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ID       string `mapstructure:"id" validate:"required_with=Enabled"`
	FullName string `mapstructure:"fullName" validate:"required_with=Enabled"`
	Email    string `mapstructure:"email"`
}

type StoreConfig struct {
	Driver string           `mapstructure:"driver" validate:"oneof=file sqlite redis"`
	File   FileStoreConfig  `mapstructure:"file"`
	Sqlite SqliteConfig     `mapstructure:"sqlite"`
	Redis  RedisStoreConfig `mapstructure:"redis"`
}

type FileStoreConfig struct {
	Path string `mapstructure:"path"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase"`
	Dir        string `mapstructure:"dir"`
}

type RedisStoreConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Key      string `mapstructure:"key"`
}

type OracleConfig struct {
	BaseURL    string        `mapstructure:"baseUrl" validate:"required,url"`
	Model      string        `mapstructure:"model" validate:"required"`
	APIKey     string        `mapstructure:"apiKey"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"required"`
	RetryCount int           `mapstructure:"retryCount" validate:"min=0,max=5"`
}

type BlobConfig struct {
	Driver string       `mapstructure:"driver" validate:"oneof=datauri gcs s3"`
	Backup BackupConfig `mapstructure:"backup"`
}

type BackupConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_with=Enabled"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
}

type SendgridConfig struct {
	APIKey    string `mapstructure:"apiKey"`
	FromEmail string `mapstructure:"fromEmail" validate:"omitempty,email"`
	FromName  string `mapstructure:"fromName"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
	From                string `mapstructure:"from"`
}

type NotificationsConfig struct {
	Workers     int `mapstructure:"workers" validate:"min=1"`
	MaxAttempts int `mapstructure:"maxAttempts" validate:"min=1"`
	QueueSize   int `mapstructure:"queueSize" validate:"min=1"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

// SetServerDefaults registers the value of every optional key.
func SetServerDefaults(config *viper.Viper) {
	config.SetDefault("vault.listener.port", 3001)
	config.SetDefault("vault.maxUploadBytes", 10<<20)
	config.SetDefault("vault.defaultIssuingCountry", "USA")
	config.SetDefault("vault.bcryptCost", 10)
	config.SetDefault("vault.demoUser.enabled", false)
	config.SetDefault("vault.demoUser.id", "demo-user-001")
	config.SetDefault("vault.demoUser.fullName", "Demo User")
	config.SetDefault("vault.demoUser.email", "demo@vault.app")

	config.SetDefault("store.driver", "file")
	config.SetDefault("store.redis.key", "vault:db")

	config.SetDefault("oracle.baseUrl", "https://generativelanguage.googleapis.com")
	config.SetDefault("oracle.model", "gemini-2.5-flash-lite")
	config.SetDefault("oracle.timeout", "30s")
	config.SetDefault("oracle.retryCount", 1)

	config.SetDefault("blob.driver", "datauri")
	config.SetDefault("blob.backup.enabled", false)
	config.SetDefault("blob.backup.schedule", "0 */6 * * *")

	config.SetDefault("sendgrid.fromName", "Vault Safety")

	config.SetDefault("notifications.workers", 2)
	config.SetDefault("notifications.maxAttempts", 4)
	config.SetDefault("notifications.queueSize", 256)

	config.SetDefault("cron.timeZone", "UTC")
}

// Validate checks struct tags and the settings each selected driver needs.
func (c *ServerConfig) Validate() error {
	problems := []string{}

	if err := validator.New().Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s failed '%s' validation", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Sqlite.PassPhrase == "" {
			problems = append(problems, "store.sqlite.passPhrase is required for the sqlite store")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			problems = append(problems, "store.redis.addr is required for the redis store")
		}
	}

	switch c.Blob.Driver {
	case "gcs":
		if c.Google.Storage.Bucket == "" {
			problems = append(problems, "google.storage.bucket is required for the gcs blob driver")
		}
	case "s3":
		if c.AWS.Bucket == "" || c.AWS.Region == "" {
			problems = append(problems, "aws.bucket and aws.region are required for the s3 blob driver")
		}
	}

	if c.Blob.Backup.Enabled && c.Blob.Driver == "datauri" {
		problems = append(problems, "blob.backup.enabled needs a gcs or s3 blob driver")
	}

	if c.Twilio.AccountSid != "" && c.Twilio.MessagingServiceSid == "" && c.Twilio.From == "" {
		problems = append(problems, "twilio.messagingServiceSid or twilio.from is required to send sms")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid server config:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}
