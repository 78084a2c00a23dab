package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

// MigrationManager applies versioned schema migrations through a store executor.
type MigrationManager struct {
	exec       store.Executor
	dialect    Dialect
	logger     *slog.Logger
	migrations map[int][]string
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(logger *slog.Logger, exec store.Executor, dialect Dialect, migrations map[int][]string) *MigrationManager {
	return &MigrationManager{
		exec:       exec,
		dialect:    dialect,
		logger:     logger,
		migrations: migrations,
	}
}

// RunMigrations creates the schema_migrations table and applies every pending version in order.
// Each version and its bookkeeping row are written in one batch.
func (m *MigrationManager) RunMigrations(ctx context.Context) (int, error) {
	m.logger.InfoContext(ctx, "Starting database migrations")

	_, err := m.exec.Query(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at %s)",
		m.dialect.timestamp(),
	))
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion, err := m.currentVersion(ctx)
	if err != nil {
		return 0, err
	}

	m.logger.InfoContext(ctx, "Current schema version", "version", currentVersion)

	versions := make([]int, 0, len(m.migrations))
	for version := range m.migrations {
		versions = append(versions, version)
	}

	sort.Ints(versions)

	applied := 0

	for _, version := range versions {
		if version <= currentVersion {
			continue
		}

		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		statements := make([]store.Statement, 0, len(m.migrations[version])+1)
		for _, sql := range m.migrations[version] {
			statements = append(statements, store.Statement{SQL: sql})
		}

		statements = append(statements, store.Statement{
			SQL:    "INSERT INTO schema_migrations (version) VALUES (?)",
			Params: []any{version},
		})

		if _, err := m.exec.Batch(ctx, statements); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		applied++
		currentVersion = version

		m.logger.InfoContext(ctx, "Migration applied successfully", "version", version)
	}

	m.logger.InfoContext(ctx, "Database migrations completed", "version", currentVersion)

	return applied, nil
}

func (m *MigrationManager) currentVersion(ctx context.Context) (int, error) {
	result, err := m.exec.Query(ctx, "SELECT COALESCE(MAX(version), 0) AS version FROM schema_migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return int(result.First().Int64("version")), nil
}

func migrations(d Dialect) map[int][]string {
	return map[int][]string{
		1: {
			`CREATE TABLE IF NOT EXISTS forms (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at ` + d.timestamp() + `,
				updated_at ` + d.timestamp() + `
			)`,
			`CREATE TABLE IF NOT EXISTS form_fields (
				id ` + d.serial() + `,
				form_id TEXT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
				elementor_id TEXT NOT NULL,
				label TEXT NOT NULL,
				type TEXT NOT NULL DEFAULT 'text',
				required ` + d.boolean(false) + `,
				position INTEGER NOT NULL DEFAULT 0,
				UNIQUE (form_id, elementor_id)
			)`,
			`CREATE TABLE IF NOT EXISTS contacts (
				id ` + d.serial() + `,
				phone_number TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				company TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				created_at ` + d.timestamp() + `,
				updated_at ` + d.timestamp() + `
			)`,
			`CREATE TABLE IF NOT EXISTS form_numbers (
				id ` + d.serial() + `,
				form_id TEXT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
				phone_number TEXT NOT NULL,
				label TEXT NOT NULL DEFAULT '',
				contact_id ` + d.bigint() + ` REFERENCES contacts(id) ON DELETE SET NULL
			)`,
			`CREATE TABLE IF NOT EXISTS webhook_logs (
				id ` + d.serial() + `,
				request_id TEXT NOT NULL DEFAULT '',
				form_id TEXT NOT NULL,
				status TEXT NOT NULL,
				status_code INTEGER NOT NULL DEFAULT 0,
				request TEXT NOT NULL DEFAULT '',
				response TEXT NOT NULL DEFAULT '',
				duration_ms INTEGER NOT NULL DEFAULT 0,
				created_at ` + d.timestamp() + `
			)`,
			`CREATE INDEX IF NOT EXISTS idx_form_fields_form_id ON form_fields(form_id)`,
			`CREATE INDEX IF NOT EXISTS idx_form_numbers_form_id ON form_numbers(form_id)`,
			`CREATE INDEX IF NOT EXISTS idx_form_numbers_contact_id ON form_numbers(contact_id)`,
			`CREATE INDEX IF NOT EXISTS idx_webhook_logs_created_at ON webhook_logs(created_at)`,
		},
		2: {
			`CREATE TABLE IF NOT EXISTS monitoring_state (
				provider TEXT PRIMARY KEY,
				connected ` + d.boolean(false) + `,
				session ` + d.boolean(false) + `,
				raw TEXT NOT NULL DEFAULT '',
				last_changed ` + d.timestamp() + `
			)`,
			`CREATE TABLE IF NOT EXISTS monitoring_history (
				id ` + d.serial() + `,
				provider TEXT NOT NULL,
				connected ` + d.boolean(false) + `,
				session ` + d.boolean(false) + `,
				raw TEXT NOT NULL DEFAULT '',
				recorded_at ` + d.timestamp() + `
			)`,
			`CREATE INDEX IF NOT EXISTS idx_monitoring_history_provider ON monitoring_history(provider, id)`,
		},
	}
}
