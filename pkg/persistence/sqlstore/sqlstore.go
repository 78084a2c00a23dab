// Package sqlstore implements the persistence layer over a store.Executor, serving both
// Cloudflare D1 (SQLite dialect) and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store/sqldb"
)

// Persistence implements persistence.Persistence on top of a SQL executor.
type Persistence struct {
	exec    store.Executor
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes the persistence layer.
type Option func(*Persistence)

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Persistence) {
		p.now = now
	}
}

// NewPersistence wraps an executor. Migrations are not applied; call Migrate.
func NewPersistence(logger *slog.Logger, exec store.Executor, dialect Dialect, opts ...Option) *Persistence {
	p := &Persistence{
		exec:    exec,
		dialect: dialect,
		logger:  logger.With("module", "sqlstore"),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewPostgresPersistence connects to PostgreSQL and runs migrations.
func NewPostgresPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := NewPersistence(logger, sqldb.New(database, logger), DialectPostgres)

	if _, err := p.Migrate(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return p, nil
}

// Migrate applies pending schema migrations and returns how many were applied.
func (p *Persistence) Migrate(ctx context.Context) (int, error) {
	return NewMigrationManager(p.logger, p.exec, p.dialect, migrations(p.dialect)).RunMigrations(ctx)
}

// HealthCheck verifies the store is reachable.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.exec.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping store: %w", err)
	}

	return nil
}

// Close releases the executor when it holds resources.
func (p *Persistence) Close(_ context.Context) error {
	if closer, ok := p.exec.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close store connection: %w", err)
		}
	}

	return nil
}

func (p *Persistence) timestamp() time.Time {
	return p.now().UTC().Truncate(time.Second)
}

// isUniqueViolation recognizes unique constraint failures from both SQLite and PostgreSQL.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	msg := strings.ToUpper(err.Error())

	return strings.Contains(msg, "UNIQUE CONSTRAINT") || strings.Contains(msg, "DUPLICATE KEY")
}

func rawOrNil(raw string) []byte {
	if raw == "" {
		return nil
	}

	return []byte(raw)
}
