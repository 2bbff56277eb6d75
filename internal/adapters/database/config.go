// Package database manages connections, transactions and statement
// execution against the supported backends.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "github.com/mattn/go-sqlite3"    // registers "sqlite3"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/satishbabariya/schemakit/internal/core/dialect"
	"github.com/satishbabariya/schemakit/internal/debug"
)

// Config holds database connection configuration.
type Config struct {
	// Dialect is derived from Driver or URL when empty.
	Dialect string
	// Driver is the database/sql driver name; each dialect has a default.
	Driver         string
	URL            string
	MaxConnections int
	MaxIdleTime    int // seconds
	ConnectTimeout int // seconds
}

var defaultDrivers = map[string]string{
	"sqlite":   "sqlite3",
	"mysql":    "mysql",
	"postgres": "postgres",
}

var driverDialects = map[string]string{
	"sqlite3":  "sqlite",
	"sqlite":   "sqlite",
	"mysql":    "mysql",
	"postgres": "postgres",
	"pgx":      "postgres",
}

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{"sqlite3", "sqlite", "mysql", "postgres", "pgx"}
}

// DetectDialect guesses the dialect from a connection URL.
func DetectDialect(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(lower, "@tcp("), strings.Contains(lower, "@unix("):
		return "mysql"
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"),
		strings.HasSuffix(lower, ".sqlite3"), lower == ":memory:":
		return "sqlite"
	}
	return ""
}

// resolve fills in the dialect and driver and validates the combination.
func (c Config) resolve() (Config, dialect.Dialect, error) {
	if c.URL == "" {
		return c, nil, fmt.Errorf("database url is required")
	}
	if c.Dialect == "" {
		c.Dialect = driverDialects[c.Driver]
	}
	if c.Dialect == "" {
		c.Dialect = DetectDialect(c.URL)
	}
	d, err := dialect.For(c.Dialect)
	if err != nil {
		return c, nil, err
	}
	if c.Driver == "" {
		c.Driver = defaultDrivers[d.Name()]
	}
	if driverDialects[c.Driver] != d.Name() {
		return c, nil, fmt.Errorf("driver %q cannot serve dialect %s", c.Driver, d.Name())
	}
	return c, d, nil
}

// sqliteForeignKeys switches key enforcement on for every connection the
// driver opens, including replacements for recycled ones.
var sqliteForeignKeys = map[string]string{
	"sqlite3": "_foreign_keys=on",
	"sqlite":  "_pragma=foreign_keys(1)",
}

// dsn adapts the URL to what the driver expects.
func (c Config) dsn() (string, error) {
	if param, ok := sqliteForeignKeys[c.Driver]; ok {
		if strings.Contains(strings.ToLower(c.URL), "foreign_keys") {
			return c.URL, nil
		}
		sep := "?"
		if strings.Contains(c.URL, "?") {
			sep = "&"
		}
		return c.URL + sep + param, nil
	}
	if c.Driver != "mysql" {
		return c.URL, nil
	}
	url := strings.TrimPrefix(c.URL, "mysql://")
	cfg, err := mysql.ParseDSN(url)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Open connects to the configured database and returns an idle session.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	cfg, d, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.Name() == "sqlite" {
		// SQLite allows one writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Second)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeout)*time.Second)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	debug.Debug("Opened database", "dialect", d.Name(), "driver", cfg.Driver)
	return &Session{db: db, dialect: d, driver: cfg.Driver}, nil
}
