// Package db is the connection and transaction layer of the blog.
//
// THE PIECES:
//
//	Engine  → owns the connection pool and knows how to open one physical connection
//	Session → one per worker (an HTTP request, a CLI command); holds at most one
//	          lazily opened connection plus the transaction depth
//	Record  → an ordered column → value container for rows
//
// A Session is never shared between goroutines. Everything it needs is local to
// the worker that created it, so no locks are taken anywhere in this package
// except around the process-wide default engine.
//
// SCOPES:
// Session.WithConnection and Session.Transaction are the only ways to hold a
// connection across several statements. Both release on every exit path,
// including panics. The query primitives (Select, SelectOne, Exec, ...) open
// their own connection scope, so they also work without an enclosing one.
//
// PLACEHOLDERS:
// Callers always write '?' for bound parameters. The engine's Dialect rewrites
// them to the driver's native form ($1 for postgres) before execution.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"

	// Drivers register themselves with database/sql.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Engine wraps the connection pool. It is safe for concurrent use; the
// Sessions it hands out are not.
type Engine struct {
	pool    *sqlx.DB
	dialect Dialect
	connect Connector
	logger  *slog.Logger
}

// Open creates an engine from cfg and verifies that the database is reachable.
func Open(cfg Config, logger *slog.Logger) (*Engine, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMySQL
	}

	pool, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: opening %s pool: %w", driver, err)
	}
	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: pinging %s: %w", driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	e := &Engine{
		pool:    pool,
		dialect: DialectFor(driver),
		logger:  logger,
	}
	autocommit := cfg.autocommit()
	e.connect = func(ctx context.Context) (Conn, error) {
		conn, err := e.pool.Connx(ctx)
		if err != nil {
			return nil, err
		}
		return &sqlConn{conn: conn, autocommit: autocommit}, nil
	}

	logger.Info("database engine ready",
		slog.String("driver", driver),
		slog.String("database", cfg.Database),
		slog.Bool("autocommit", autocommit),
	)
	return e, nil
}

// Close closes the pool. Sessions must not be used afterwards.
func (e *Engine) Close() error {
	return e.pool.Close()
}

// DB exposes the pool for tooling that needs a plain handle (migrations).
func (e *Engine) DB() *sqlx.DB {
	return e.pool
}

// Dialect returns the placeholder and quoting rules of the engine's driver.
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// NewSession returns a fresh Session. It holds no connection until first use.
func (e *Engine) NewSession() *Session {
	return &Session{engine: e, logger: e.logger}
}

// Session returns the Session carried by ctx when it belongs to this engine,
// or a fresh one otherwise.
func (e *Engine) Session(ctx context.Context) *Session {
	if s, ok := SessionFromContext(ctx); ok && s.engine == e {
		return s
	}
	return e.NewSession()
}

var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// CreateEngine opens the process-wide engine. It may be called once; a second
// call fails with ErrEngineInitialized.
func CreateEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultEngine != nil {
		return nil, ErrEngineInitialized
	}
	e, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	defaultEngine = e
	return e, nil
}

// Default returns the engine created by CreateEngine.
func Default() (*Engine, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultEngine == nil {
		return nil, ErrEngineNotInitialized
	}
	return defaultEngine, nil
}
