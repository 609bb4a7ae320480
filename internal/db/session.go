package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
)

// lazyConn opens the physical connection on first use.
type lazyConn struct {
	connect Connector
	conn    Conn
	id      string
	logger  *slog.Logger
}

func (l *lazyConn) get(ctx context.Context) (Conn, error) {
	if l.conn == nil {
		conn, err := l.connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("db: connecting: %w", err)
		}
		l.id = xid.New().String()
		l.logger.Info("open connection", slog.String("conn", l.id))
		l.conn = conn
	}
	return l.conn, nil
}

func (l *lazyConn) commit() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Commit()
}

func (l *lazyConn) rollback() error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Rollback()
}

func (l *lazyConn) cleanup() error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	l.logger.Info("close connection", slog.String("conn", l.id))
	return conn.Close()
}

// Session is the per-worker database context: zero or one lazily opened
// connection plus the depth of nested transaction scopes.
//
// A Session must only be used by the goroutine that owns it.
type Session struct {
	engine       *Engine
	conn         *lazyConn
	transactions int
	logger       *slog.Logger
}

// Dialect returns the dialect of the session's engine.
func (s *Session) Dialect() Dialect {
	return s.engine.dialect
}

// Depth returns the number of open transaction scopes.
func (s *Session) Depth() int {
	return s.transactions
}

// Active reports whether a connection scope is open. It does not imply that a
// physical connection has been opened yet.
func (s *Session) Active() bool {
	return s.conn != nil
}

func (s *Session) init() {
	s.logger.Debug("open lazy connection")
	s.conn = &lazyConn{connect: s.engine.connect, logger: s.logger}
	s.transactions = 0
}

func (s *Session) cleanup() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.cleanup()
	s.conn = nil
	return err
}

// connScope is the token handed out by acquire. Only the token that created
// the connection holder tears it down.
type connScope struct {
	s     *Session
	owner bool
}

func (s *Session) acquire() *connScope {
	if s.conn != nil {
		return &connScope{s: s}
	}
	s.init()
	return &connScope{s: s, owner: true}
}

func (c *connScope) release() error {
	if !c.owner {
		return nil
	}
	return c.s.cleanup()
}

// WithConnection runs fn inside a connection scope. Every statement issued
// through the session while fn runs shares one physical connection, opened on
// the first statement. The connection is closed when fn returns or panics,
// unless an outer scope owns it.
func (s *Session) WithConnection(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	scope := s.acquire()
	defer func() {
		if relErr := scope.release(); relErr != nil {
			err = errors.Join(err, fmt.Errorf("db: closing connection: %w", relErr))
		}
	}()
	return fn(ctx)
}

// Tx is one transaction scope. Scopes nest: only the outermost one commits or
// rolls back; inner ones join it.
type Tx struct {
	s         *Session
	closeConn bool
	done      bool
}

// Begin opens a transaction scope, opening a connection scope first when none
// is active. Every Begin must be matched by exactly one End.
func (s *Session) Begin() *Tx {
	tx := &Tx{s: s}
	if s.conn == nil {
		s.init()
		tx.closeConn = true
	}
	s.transactions++
	if s.transactions == 1 {
		s.logger.Info("begin transaction")
	} else {
		s.logger.Info("join current transaction", slog.Int("depth", s.transactions))
	}
	return tx
}

// End closes the scope. When it is the outermost scope, a nil cause commits
// and a non-nil cause rolls back. If Begin opened the connection, End closes
// it afterwards, whatever the outcome of the commit or rollback.
func (t *Tx) End(cause error) (err error) {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	s := t.s

	if t.closeConn {
		defer func() {
			if clErr := s.cleanup(); clErr != nil {
				err = errors.Join(err, fmt.Errorf("db: closing connection: %w", clErr))
			}
		}()
	}

	s.transactions--
	if s.transactions > 0 {
		return nil
	}
	if cause == nil {
		return s.commit()
	}
	return s.rollback()
}

func (s *Session) commit() error {
	s.logger.Info("commit transaction")
	err := s.conn.commit()
	if err == nil {
		s.logger.Info("commit ok")
		return nil
	}

	s.logger.Warn("commit failed, rolling back", slog.String("error", err.Error()))
	if rbErr := s.conn.rollback(); rbErr != nil {
		s.logger.Error("rollback after failed commit failed",
			slog.String("commit_error", err.Error()),
			slog.String("error", rbErr.Error()),
		)
		return fmt.Errorf("db: rollback after failed commit (%v): %w", err, rbErr)
	}
	return fmt.Errorf("db: commit: %w", err)
}

func (s *Session) rollback() error {
	s.logger.Warn("rollback transaction")
	if err := s.conn.rollback(); err != nil {
		return fmt.Errorf("db: rollback: %w", err)
	}
	s.logger.Info("rollback ok")
	return nil
}

// Transaction runs fn inside a transaction scope. fn's error (or panic) rolls
// the outermost transaction back; success commits it. The returned error is
// fn's error joined with any commit, rollback or close failure.
func (s *Session) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx := s.Begin()
	defer func() {
		if p := recover(); p != nil {
			if endErr := tx.End(fmt.Errorf("db: panic in transaction: %v", p)); endErr != nil {
				s.logger.Error("ending transaction after panic", slog.String("error", endErr.Error()))
			}
			panic(p)
		}
	}()

	err = fn(ctx)
	if endErr := tx.End(err); endErr != nil {
		return errors.Join(err, endErr)
	}
	return err
}
