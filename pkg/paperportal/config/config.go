package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
	repomem "github.com/studyarchive/paper-portal/pkg/paperportal/repo/memory"
	repopg "github.com/studyarchive/paper-portal/pkg/paperportal/repo/postgres"
	fsstorage "github.com/studyarchive/paper-portal/pkg/paperportal/storage/fs"
	memorystorage "github.com/studyarchive/paper-portal/pkg/paperportal/storage/memory"
	pgstorage "github.com/studyarchive/paper-portal/pkg/paperportal/storage/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseType:   "memory",
		MaxUploadBytes: paperportal.DefaultMaxUploadBytes,
	}
}

// ServerConfig represents server configuration for the paper-portal service.
//
// DatabaseType selects both the record repository and the primary blob
// backend: "memory" keeps everything in-process, "postgres" stores records
// and bytes in the database. LegacyDir, when set, mounts the pre-migration
// filesystem artifacts as a read fallback.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	LegacyDir      string
	MaxUploadBytes int64

	// JWTSecret verifies caller identity tokens. The portal only reads the
	// caller_id and is_admin claims; issuing tokens is the identity
	// provider's job.
	JWTSecret string
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
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (paperportal.Service, error) {
	var repo paperportal.Repository
	var primary paperportal.BlobStore

	switch c.DatabaseType {
	case "memory":
		repo = repomem.New()
		primary = memorystorage.New()

	case "postgres":
		pool, err := newPool(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo = repopg.NewWithPool(pool)
		primary = pgstorage.NewWithPool(pool)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	storeOpts := []paperportal.StoreOption{
		paperportal.WithMaxUploadBytes(c.MaxUploadBytes),
	}
	if c.LegacyDir != "" {
		legacy, err := fsstorage.New(fsstorage.Config{BaseDir: c.LegacyDir})
		if err != nil {
			return nil, fmt.Errorf("failed to build legacy backend: %w", err)
		}
		storeOpts = append(storeOpts, paperportal.WithLegacyStore(legacy))
	}

	store, err := paperportal.NewContentStore(primary, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build content store: %w", err)
	}

	return paperportal.New(
		paperportal.WithRepository(repo),
		paperportal.WithContentStore(store),
	)
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database connect failed: %w", err)
	}
	defer conn.Close(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Ping(pingCtx)
}
