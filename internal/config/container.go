package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"pdf-form-drafts/internal/domain"
	"pdf-form-drafts/internal/export"
	"pdf-form-drafts/internal/infra/supabase"
	"pdf-form-drafts/internal/repository"
	"pdf-form-drafts/internal/service"
	"pdf-form-drafts/internal/storage"
	"pdf-form-drafts/pkg/logger"
)

// templateSaver is implemented by the repositories that can be seeded from
// disk (memory and SQL).
type templateSaver interface {
	Save(ctx context.Context, t *domain.Template) error
}

// Container holds all application dependencies
type Container struct {
	Config             domain.Config
	Logger             domain.Logger
	SupabaseClient     domain.SupabaseClient
	FileStore          *storage.LocalFileStore
	DraftRepository    domain.DraftRepository
	TemplateRepository domain.TemplateRepository
	DraftService       domain.DraftService
	AuthService        domain.AuthService

	db    *sql.DB
	redis *redis.Client
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context) (*Container, error) {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())
	c := &Container{Config: config, Logger: appLogger}

	files, err := storage.NewLocalFileStore(config.GetStorageRoot(), appLogger)
	if err != nil {
		return nil, err
	}
	c.FileStore = files

	if config.GetSupabaseURL() != "" && config.GetSupabaseKey() != "" {
		client := supabase.NewSupabaseClient(config, appLogger)
		if err := client.Initialize(); err != nil {
			return nil, err
		}
		c.SupabaseClient = client
	}

	if err := c.initRepositories(ctx); err != nil {
		c.Close()
		return nil, err
	}

	guard, err := c.versionGuard(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	opts := []service.DraftServiceOption{service.WithVersionGuard(guard)}
	if bucket := config.GetExportBucket(); bucket != "" && c.SupabaseClient != nil {
		opts = append(opts, service.WithArtifactMirror(
			storage.NewSupabaseMirror(config.GetSupabaseURL(), config.GetSupabaseKey(), bucket)))
		appLogger.Info("Export mirror enabled", "bucket", bucket)
	}

	c.DraftService = service.NewDraftService(
		c.DraftRepository,
		c.TemplateRepository,
		files,
		export.NewPDFExporter(files, appLogger),
		appLogger,
		opts...,
	)

	if config.GetAuthMode() == AuthModeSupabase {
		if c.SupabaseClient == nil {
			c.Close()
			return nil, fmt.Errorf("AUTH_MODE=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
		c.AuthService = service.NewAuthService(c.SupabaseClient, appLogger)
	}

	return c, nil
}

func (c *Container) initRepositories(ctx context.Context) error {
	driver := c.Config.GetDBDriver()
	switch driver {
	case DriverMemory:
		templates := repository.NewMemoryTemplateRepository()
		c.DraftRepository = repository.NewMemoryDraftRepository()
		c.TemplateRepository = templates
		return c.seedTemplates(ctx, templates)

	case DriverSupabase:
		if c.SupabaseClient == nil {
			return fmt.Errorf("DB_DRIVER=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
		c.DraftRepository = repository.NewSupabaseDraftRepository(c.SupabaseClient, c.Logger)
		c.TemplateRepository = repository.NewSupabaseTemplateRepository(c.SupabaseClient)
		return nil
	}

	dialect, err := repository.DialectFor(driver)
	if err != nil {
		return err
	}
	db, err := repository.OpenDB(ctx, dialect, c.Config.GetDBDSN(), c.Config.GetDBMaxConns())
	if err != nil {
		return err
	}
	c.db = db
	if c.Config.GetAutoMigrate() {
		if err := repository.EnsureSchema(ctx, db, dialect, c.Logger); err != nil {
			return err
		}
	}

	templates := repository.NewSQLTemplateRepository(db, dialect)
	c.DraftRepository = repository.NewSQLDraftRepository(db, dialect, c.Logger)
	c.TemplateRepository = templates
	c.Logger.Info("Database connected", "driver", dialect.Name)
	return c.seedTemplates(ctx, templates)
}

// seedTemplates registers every PDF under <storage>/templates, using the file
// name without extension as template id.
func (c *Container) seedTemplates(ctx context.Context, repo templateSaver) error {
	dir := filepath.Join(c.FileStore.Root(), "templates")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read templates dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		t := &domain.Template{ID: id, Name: id, StoredPath: filepath.Join(dir, e.Name())}
		if err := repo.Save(ctx, t); err != nil {
			return err
		}
		n++
	}
	c.Logger.Info("Templates registered", "count", n, "dir", dir)
	return nil
}

func (c *Container) versionGuard(ctx context.Context) (domain.VersionGuard, error) {
	switch c.Config.GetVersionGuard() {
	case GuardNone, "":
		c.Logger.Warn("Draft version assignment is unguarded; concurrent creates may share a version")
		return service.NoGuard{}, nil
	case GuardLocal:
		return service.NewLocalGuard(), nil
	case GuardRedis:
		client := redis.NewClient(&redis.Options{Addr: c.Config.GetRedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redis = client
		return service.NewRedisGuard(client, c.Logger), nil
	}
	return nil, fmt.Errorf("unknown VERSION_GUARD %q", c.Config.GetVersionGuard())
}

// Close releases database and redis connections.
func (c *Container) Close() {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.Logger.Error("Failed to close database", err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Logger.Error("Failed to close redis", err)
		}
	}
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// GetSupabaseClient returns the Supabase client instance
func (c *Container) GetSupabaseClient() domain.SupabaseClient {
	return c.SupabaseClient
}
