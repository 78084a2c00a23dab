package sqlstore

import "fmt"

// Dialect selects the DDL flavour used by migrations.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect validates a dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case DialectSQLite, DialectPostgres:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

func (d Dialect) serial() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}

	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d Dialect) timestamp() string {
	if d == DialectPostgres {
		return "TIMESTAMPTZ NOT NULL DEFAULT NOW()"
	}

	return "DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP"
}

func (d Dialect) boolean(def bool) string {
	switch {
	case d == DialectPostgres && def:
		return "BOOLEAN NOT NULL DEFAULT TRUE"
	case d == DialectPostgres:
		return "BOOLEAN NOT NULL DEFAULT FALSE"
	case def:
		return "BOOLEAN NOT NULL DEFAULT 1"
	default:
		return "BOOLEAN NOT NULL DEFAULT 0"
	}
}

func (d Dialect) bigint() string {
	if d == DialectPostgres {
		return "BIGINT"
	}

	return "INTEGER"
}
