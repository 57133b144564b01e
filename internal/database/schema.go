package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted in DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do for a configuration.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// schemaPolicy decides which schema steps run. AutoMigrate never runs
// implicitly in a protected environment.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch mode := normalizedSchemaMode(cfg); mode {
	case SchemaModeHybrid:
		runSQL, runAuto = true, !protected
	case SchemaModeSQL:
		runSQL = true
	case SchemaModeAuto:
		if protected && !cfg.DBAutoMigrateAllowDestructive {
			err = fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
			break
		}
		runAuto = true
	default:
		err = fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return runSQL, runAuto, err
}

// AutoMigrate creates or updates tables for every persistent model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}
	mode := normalizedSchemaMode(cfg)

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !runAuto {
		return nil
	}

	if mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.WarnContext(ctx, "automigrate forced in a protected environment", slog.String("env", cfg.Env))
	}
	middleware.Logger.InfoContext(ctx, "running automigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema policy and, when SQL migrations are in
// play, which embedded migrations are still pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	if status.AppliedVersions, err = NewMigrationStore(db).GetAppliedMigrations(ctx); err != nil {
		return nil, err
	}
	for _, m := range GetMigrations() {
		if !slices.Contains(status.AppliedVersions, m.Version) {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
