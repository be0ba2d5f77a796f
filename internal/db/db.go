package db

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DB wraps the postgres connection pool. DSN is the connection string that
// actually connected, which listeners reuse.
type DB struct {
	*sql.DB
	DSN string
}

// New opens a connection pool. When the first ping fails and the connection
// string says nothing about sslmode, it retries once with SSL disabled.
func New(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is required")
	}

	sqlDB, err := open(ctx, dsn)
	if err != nil && !strings.Contains(strings.ToLower(dsn), "sslmode") {
		log.Warn().Err(err).Msg("retrying database connection with SSL disabled")
		dsn = withSSLDisabled(dsn)
		sqlDB, err = open(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{DB: sqlDB, DSN: dsn}, nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return sqlDB, nil
}

func withSSLDisabled(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=disable"
	}
	if strings.Contains(dsn, "://") {
		return dsn + "?sslmode=disable"
	}
	// key=value form
	return dsn + " sslmode=disable"
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// RunMigrations applies every numbered .sql file in dir that has not been
// recorded in schema_migrations, each in its own transaction.
func (db *DB) RunMigrations(ctx context.Context, dir string) (int, error) {
	migrations, err := ReadMigrations(dir)
	if err != nil {
		return 0, errors.Wrap(err, "read migrations")
	}
	if len(migrations) == 0 {
		log.Info().Str("dir", dir).Msg("no migrations found")
		return 0, nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`); err != nil {
		return 0, errors.Wrap(err, "create migration table")
	}

	applied := 0
	for _, m := range migrations {
		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", m.Number).Scan(&count); err != nil {
			return applied, errors.Wrap(err, "check migration status")
		}
		if count > 0 {
			log.Debug().Int("version", m.Number).Msg("migration already applied, skipping")
			continue
		}

		log.Info().Int("version", m.Number).Str("name", m.Name).Msg("applying migration")
		if err := db.apply(ctx, m); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "execute migration %d", m.Number)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Number, m.Name); err != nil {
		tx.Rollback()
		return errors.Wrapf(err, "record migration %d", m.Number)
	}
	return errors.Wrapf(tx.Commit(), "commit migration %d", m.Number)
}

type Migration struct {
	Number int
	Name   string
	SQL    string
}

// ReadMigrations loads files named like 001_initial_schema.sql, sorted by
// number. Files without a numeric prefix are ignored.
func ReadMigrations(dir string) ([]Migration, error) {
	var migrations []Migration

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		parts := strings.SplitN(d.Name(), "_", 2)
		if len(parts) < 2 {
			return nil
		}
		number, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read migration file %s", d.Name())
		}
		migrations = append(migrations, Migration{
			Number: number,
			Name:   strings.TrimSuffix(parts[1], ".sql"),
			SQL:    string(b),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Number < migrations[j].Number
	})
	return migrations, nil
}
