// Package cmd holds the factories shared by the relay server and the admin CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence/sqlstore"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store/d1"
)

const (
	DriverD1       = "d1"
	DriverPostgres = "postgres"
)

var supportedStoreDrivers = []string{DriverD1, DriverPostgres}

// StoreConfig selects and configures the configuration store.
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	D1          d1.Config
	AutoMigrate bool
}

// MissingConfigError lists the environment keys required by the selected driver.
type MissingConfigError struct {
	Driver string
	Keys   []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s store is missing configuration: %s", e.Driver, strings.Join(e.Keys, ", "))
}

// ParseStoreDriver resolves an explicit driver, otherwise infers it from the database URL.
func ParseStoreDriver(driver, databaseURL string) (string, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))

	if driver == "" {
		if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
			return DriverPostgres, nil
		}

		return DriverD1, nil
	}

	if driver == "postgresql" {
		driver = DriverPostgres
	}

	for _, supported := range supportedStoreDrivers {
		if driver == supported {
			return driver, nil
		}
	}

	return "", fmt.Errorf("unsupported store driver '%s', expected one of %s", driver, strings.Join(supportedStoreDrivers, ", "))
}

func NewPersistence(ctx context.Context, logger *slog.Logger, cfg StoreConfig) (*sqlstore.Persistence, error) {
	driver, err := ParseStoreDriver(cfg.Driver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, &MissingConfigError{Driver: driver, Keys: []string{"DATABASE_URL"}}
		}

		return sqlstore.NewPostgresPersistence(ctx, logger, cfg.DatabaseURL)
	default:
		if missing := cfg.D1.Missing(); len(missing) > 0 {
			return nil, &MissingConfigError{Driver: driver, Keys: missing}
		}

		p := sqlstore.NewPersistence(logger, d1.New(cfg.D1), sqlstore.DialectSQLite)

		if cfg.AutoMigrate {
			if _, err := p.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		return p, nil
	}
}
