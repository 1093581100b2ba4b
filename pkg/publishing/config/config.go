package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/obscura-press/obscura/pkg/publishing"
	fsstore "github.com/obscura-press/obscura/pkg/publishing/assetstore/fs"
	memorystore "github.com/obscura-press/obscura/pkg/publishing/assetstore/memory"
	s3store "github.com/obscura-press/obscura/pkg/publishing/assetstore/s3"
	smtpnotify "github.com/obscura-press/obscura/pkg/publishing/notify/smtp"
	"github.com/obscura-press/obscura/pkg/publishing/repo/memory"
	repopg "github.com/obscura-press/obscura/pkg/publishing/repo/postgres"
)

// ServerConfig represents server configuration for the publishing service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DBSchema     string `env:"DB_SCHEMA" env-default:"publishing"`

	// Asset store configuration
	AssetStoreType string `env:"ASSET_STORE_TYPE" env-default:"memory"` // "memory", "fs", "s3"

	FSBaseDir   string `env:"FS_BASE_DIR" env-default:"./data/assets"`
	FSURLPrefix string `env:"FS_URL_PREFIX" env-default:"http://localhost:8080/assets"`

	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET" env-default:""`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL" env-default:""`
	S3CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-default:"false"`

	// Notifier configuration; moderation mail is disabled when the host
	// is empty
	SMTPHost     string `env:"SMTP_HOST" env-default:""`
	SMTPPort     int    `env:"SMTP_PORT" env-default:"587"`
	SMTPUsername string `env:"SMTP_USERNAME" env-default:""`
	SMTPPassword string `env:"SMTP_PASSWORD" env-default:""`
	SMTPFrom     string `env:"SMTP_FROM" env-default:""`

	// Lifecycle options
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" env-default:"60s"`
	TickDeadline      time.Duration `env:"TICK_DEADLINE" env-default:"45s"`
	UploadTimeout     time.Duration `env:"UPLOAD_TIMEOUT" env-default:"30s"`
	GalleryLimit      int           `env:"GALLERY_LIMIT" env-default:"4"`
}

// Load reads the server configuration from the environment
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.AssetStoreType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("fs_base_dir is required when using fs asset store")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3_bucket is required when using s3 asset store")
		}
	default:
		return errors.New("asset_store_type must be 'memory', 'fs' or 's3'")
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return errors.New("smtp_from is required when smtp is configured")
	}
	if c.GalleryLimit <= 0 {
		return errors.New("gallery_limit must be positive")
	}
	return nil
}

// BuildRepository creates a Repository based on the configuration
func (c *ServerConfig) BuildRepository() (publishing.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			// set search_path for this session
			_, err := conn.Exec(ctx, searchPathQuery(schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// searchPathQuery builds the session search_path statement with the
// schema name quoted as an identifier, since it comes from the
// environment.
func searchPathQuery(schema string) string {
	return "SET search_path TO " + pgx.Identifier{schema}.Sanitize()
}

// BuildAssetStore creates an AssetStore based on the configuration
func (c *ServerConfig) BuildAssetStore() (publishing.AssetStore, error) {
	switch c.AssetStoreType {
	case "memory":
		return memorystore.New(), nil
	case "fs":
		return fsstore.New(fsstore.Config{
			BaseDir:   c.FSBaseDir,
			URLPrefix: c.FSURLPrefix,
		})
	case "s3":
		return s3store.New(s3store.Config{
			Region:                 c.S3Region,
			Bucket:                 c.S3Bucket,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               c.S3Endpoint,
			UsePathStyle:           c.S3UsePathStyle,
			PublicBaseURL:          c.S3PublicBaseURL,
			CreateBucketIfNotExist: c.S3CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported asset store type: %s", c.AssetStoreType)
	}
}

// BuildNotifier creates a Notifier based on the configuration
func (c *ServerConfig) BuildNotifier() (publishing.Notifier, error) {
	if c.SMTPHost == "" {
		return publishing.NewNoopNotifier(), nil
	}
	return smtpnotify.New(smtpnotify.Config{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	})
}

// BuildService creates the lifecycle engine from the server configuration.
// The repository is returned alongside the service because the scheduler
// polls it directly.
func (c *ServerConfig) BuildService(log *slog.Logger) (publishing.Service, publishing.Repository, error) {
	repo, err := c.BuildRepository()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.BuildAssetStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build asset store: %w", err)
	}

	notifier, err := c.BuildNotifier()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build notifier: %w", err)
	}

	svc, err := publishing.New(
		publishing.WithRepository(repo),
		publishing.WithAssetStore(store),
		publishing.WithNotifier(notifier),
		publishing.WithLogger(log),
		publishing.WithUploadTimeout(c.UploadTimeout),
		publishing.WithGalleryLimit(c.GalleryLimit),
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, repo, nil
}

// BuildScheduler creates the polling publisher over a built service
func (c *ServerConfig) BuildScheduler(svc publishing.Service, repo publishing.Repository, log *slog.Logger) *publishing.Scheduler {
	return publishing.NewScheduler(svc, repo,
		publishing.WithPollInterval(c.SchedulerInterval),
		publishing.WithTickDeadline(c.TickDeadline),
		publishing.WithSchedulerLogger(log),
	)
}
