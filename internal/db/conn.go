package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Conn is one physical database connection.
//
// A Conn is owned by exactly one Session and is never used from two
// goroutines at once. Commit and Rollback resolve whatever work the connection
// has done since the previous Commit/Rollback; with nothing pending they are
// no-ops.
type Conn interface {
	Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
	Close() error
}

// Connector opens a new physical connection.
type Connector func(ctx context.Context) (Conn, error)

// statementRunner is the part of *sqlx.Conn and *sqlx.Tx that sqlConn uses.
type statementRunner interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ statementRunner = (*sqlx.Conn)(nil)
	_ statementRunner = (*sqlx.Tx)(nil)
)

// sqlConn is a Conn backed by a connection checked out of the engine's pool.
//
// Unless autocommit is set, the first statement opens a transaction that stays
// open until Commit or Rollback. database/sql does not allow switching a pooled
// connection's autocommit mode, so the implicit transaction is how the
// connection gets "autocommit off" semantics on every driver.
type sqlConn struct {
	conn       *sqlx.Conn
	tx         *sqlx.Tx
	autocommit bool
}

func (c *sqlConn) runner(ctx context.Context) (statementRunner, error) {
	if c.autocommit {
		return c.conn, nil
	}
	if c.tx == nil {
		tx, err := c.conn.BeginTxx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("db: beginning transaction: %w", err)
		}
		c.tx = tx
	}
	return c.tx, nil
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	r, err := c.runner(ctx)
	if err != nil {
		return nil, err
	}
	return r.QueryxContext(ctx, query, args...)
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r, err := c.runner(ctx)
	if err != nil {
		return nil, err
	}
	return r.ExecContext(ctx, query, args...)
}

func (c *sqlConn) Commit() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit()
}

func (c *sqlConn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Close discards any pending work and returns the connection to the pool.
func (c *sqlConn) Close() error {
	return errors.Join(c.Rollback(), c.conn.Close())
}
