package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kashifkhan1020/KamiNewMods/internal/store"

	"gopkg.in/yaml.v3"
)

// EnvPrefix scopes every environment override, e.g. KAMIX_ADMIN_SECRET.
const EnvPrefix = "KAMIX"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Admin    AdminConfig    `yaml:"admin"`
	Telegram TelegramConfig `yaml:"telegram"`
	Session  SessionConfig  `yaml:"session"`
	Import   ImportConfig   `yaml:"import"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxUploadMB caps multipart bodies on /upload and /api/items.
	MaxUploadMB  int64         `yaml:"max_upload_mb"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type StorageConfig struct {
	BadgerPath string     `yaml:"badger_path"`
	Blobs      BlobConfig `yaml:"blobs"`
}

type BlobConfig struct {
	Backend string         `yaml:"backend"` // badger, disk, s3
	Dir     string         `yaml:"dir"`
	S3      store.S3Config `yaml:"s3"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdminConfig struct {
	Secret string `yaml:"secret"`
	// SecretHash is an argon2id PHC string; it wins over Secret when set.
	SecretHash string `yaml:"secret_hash"`
	UserID     int64  `yaml:"user_id"`
}

type TelegramConfig struct {
	Token       string        `yaml:"token"`
	BaseURL     string        `yaml:"base_url"`
	Mode        string        `yaml:"mode"` // webhook, poll, off
	PollTimeout time.Duration `yaml:"poll_timeout"`

	// WebhookSecret, when set, must match X-Telegram-Bot-Api-Secret-Token
	// on webhook calls. Pass the same value as secret_token to setWebhook.
	WebhookSecret string `yaml:"webhook_secret"`
}

type SessionConfig struct {
	Backend string        `yaml:"backend"` // redis, memory
	TTL     time.Duration `yaml:"ttl"`
}

type ImportConfig struct {
	Workers int `yaml:"workers"`
}

type LogConfig struct {
	Format string `yaml:"format"` // console, json
	Level  string `yaml:"level"`
}

// Default returns the settings used when nothing else is provided.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MaxUploadMB:  100,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			BadgerPath: "./badger-data",
			Blobs: BlobConfig{
				Backend: "badger",
				Dir:     "files",
			},
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Telegram: TelegramConfig{
			Mode:        "off",
			PollTimeout: 25 * time.Second,
		},
		Session: SessionConfig{Backend: "redis"},
		Import:  ImportConfig{Workers: 1},
		Log:     LogConfig{Format: "console", Level: "info"},
	}
}

// Load reads defaults, then the YAML file at path (if any), then KAMIX_*
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(NewLoader(EnvPrefix))
	return cfg, nil
}

func (c *Config) applyEnv(l Loader) {
	c.Server.Addr = l.String("ADDR", c.Server.Addr)
	c.Server.MaxUploadMB = l.Int64("MAX_UPLOAD_MB", c.Server.MaxUploadMB)

	c.Storage.BadgerPath = l.String("BADGER_PATH", c.Storage.BadgerPath)
	c.Storage.Blobs.Backend = l.String("BLOB_BACKEND", c.Storage.Blobs.Backend)
	c.Storage.Blobs.Dir = l.String("BLOB_DIR", c.Storage.Blobs.Dir)
	s3 := &c.Storage.Blobs.S3
	s3.Endpoint = l.String("S3_ENDPOINT", s3.Endpoint)
	s3.Region = l.String("S3_REGION", s3.Region)
	s3.Bucket = l.String("S3_BUCKET", s3.Bucket)
	s3.Prefix = l.String("S3_PREFIX", s3.Prefix)
	s3.AccessKey = l.String("S3_ACCESS_KEY", s3.AccessKey)
	s3.SecretKey = l.String("S3_SECRET_KEY", s3.SecretKey)
	s3.PathStyle = l.Bool("S3_PATH_STYLE", s3.PathStyle)

	c.Redis.Addr = l.String("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = l.String("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = l.Int("REDIS_DB", c.Redis.DB)

	c.Admin.Secret = l.String("ADMIN_SECRET", c.Admin.Secret)
	c.Admin.SecretHash = l.String("ADMIN_SECRET_HASH", c.Admin.SecretHash)
	c.Admin.UserID = l.Int64("ADMIN_USER_ID", c.Admin.UserID)

	c.Telegram.Token = l.String("TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.BaseURL = l.String("TELEGRAM_BASE_URL", c.Telegram.BaseURL)
	c.Telegram.Mode = l.String("TELEGRAM_MODE", c.Telegram.Mode)
	c.Telegram.PollTimeout = l.Duration("TELEGRAM_POLL_TIMEOUT", c.Telegram.PollTimeout)
	c.Telegram.WebhookSecret = l.String("TELEGRAM_WEBHOOK_SECRET", c.Telegram.WebhookSecret)

	c.Session.Backend = l.String("SESSION_BACKEND", c.Session.Backend)
	c.Session.TTL = l.Duration("SESSION_TTL", c.Session.TTL)

	c.Import.Workers = l.Int("IMPORT_WORKERS", c.Import.Workers)

	c.Log.Format = l.String("LOG_FORMAT", c.Log.Format)
	c.Log.Level = l.String("LOG_LEVEL", c.Log.Level)
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("invalid server.addr: must not be empty")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid server.max_upload_mb: %d", c.Server.MaxUploadMB)
	}
	switch c.Storage.Blobs.Backend {
	case "badger":
	case "disk":
		if c.Storage.Blobs.Dir == "" {
			return errors.New("invalid storage.blobs.dir: required for the disk backend")
		}
	case "s3":
		if c.Storage.Blobs.S3.Bucket == "" {
			return errors.New("invalid storage.blobs.s3.bucket: required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid storage.blobs.backend: %q", c.Storage.Blobs.Backend)
	}
	switch c.Session.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid session.backend: %q", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("invalid session.ttl: %s", c.Session.TTL)
	}
	switch c.Telegram.Mode {
	case "off":
	case "webhook", "poll":
		if c.Telegram.Token == "" {
			return fmt.Errorf("invalid telegram.token: required in %s mode", c.Telegram.Mode)
		}
		if c.Admin.UserID == 0 {
			return errors.New("invalid admin.user_id: the bot needs an admin to answer to")
		}
	default:
		return fmt.Errorf("invalid telegram.mode: %q", c.Telegram.Mode)
	}
	if c.Import.Workers < 0 {
		return fmt.Errorf("invalid import.workers: %d", c.Import.Workers)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}
	return nil
}
