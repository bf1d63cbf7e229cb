package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/medrecords/internal/common"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// ConfigFrom copies the store section of the application config.
func ConfigFrom(c common.StoreConfig) Config {
	return Config{
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		DialTimeout:     c.DialTimeout,
	}
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Open connects to the database named by cfg.DSN and makes sure the schema
// exists. "postgres://" and "postgresql://" DSNs go through a pgx pool;
// "sqlite:<path>" (or a bare path) uses the pure-Go SQLite driver.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		db   *sql.DB
		pool *pgxpool.Pool
		d    dialect
		err  error
	)
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		d = dialectPostgres
		pool, err = openPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		db = stdlib.OpenDBFromPool(pool)
	default:
		d = dialectSQLite
		db, err = openSQLite(cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
	}

	store := &SQLStore{db: db, pool: pool, dialect: d, logger: logger}
	if err := store.migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "driver", d.String())
	return store, nil
}

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

func openPool(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "parse dsn", common.ErrDatabase)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "medrecords"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.NewAppError(common.CodeStorage, "connect", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	return pool, nil
}

func openSQLite(dsn string, logger *slog.Logger) (*sql.DB, error) {
	path := strings.TrimPrefix(dsn, "sqlite:")
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		path = ":memory:"
	}
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !memory && !strings.Contains(path, "?") {
		path += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	}
	logger.Info("connecting to database", "driver", "sqlite", "path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "open sqlite", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Dialect names the backing database, "sqlite" or "postgres".
func (s *SQLStore) Dialect() string { return s.dialect.String() }

// HealthCheck pings the database within timeout.
func (s *SQLStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.logger.Debug("pinging database")
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.db.PingContext(ctx)
}

// Close releases the connections.
func (s *SQLStore) Close() error {
	s.logger.Info("closing database connections")
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
