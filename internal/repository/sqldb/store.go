// Package sqldb implements the repository interfaces on top of the orm
// mappings in package model and the db engine.
//
// WHY NOT A *sql.DB PER REPOSITORY?
// Every call goes through a db.Session. The session is taken from the context
// when the caller put one there (the per-request middleware, or
// WithinTransaction), so all repository calls made while handling one request
// share one lazily opened connection and, inside WithinTransaction, one
// transaction. A call made with a bare context gets a fresh session that
// opens and closes its own connection around the single statement.
//
// The store works with any driver the engine supports (MySQL, Postgres,
// SQLite): the orm quotes identifiers and the engine rewrites placeholders
// for the dialect.
package sqldb

import (
	"context"
	"log/slog"

	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/repository"
)

// compile-time checks that the store satisfies the repository contracts
var (
	_ repository.Transactor        = (*Store)(nil)
	_ repository.UserRepository    = (*UserRepo)(nil)
	_ repository.BlogRepository    = (*BlogRepo)(nil)
	_ repository.CommentRepository = (*CommentRepo)(nil)
)

// Store groups the repositories that share one engine.
type Store struct {
	engine   *db.Engine
	logger   *slog.Logger
	users    *UserRepo
	blogs    *BlogRepo
	comments *CommentRepo
}

// New creates a Store. The engine must already be open; the schema is managed
// by package migrate.
func New(engine *db.Engine, logger *slog.Logger) *Store {
	s := &Store{engine: engine, logger: logger}
	s.users = &UserRepo{store: s}
	s.blogs = &BlogRepo{store: s}
	s.comments = &CommentRepo{store: s}
	return s
}

func (s *Store) Users() *UserRepo       { return s.users }
func (s *Store) Blogs() *BlogRepo       { return s.blogs }
func (s *Store) Comments() *CommentRepo { return s.comments }

func (s *Store) session(ctx context.Context) *db.Session {
	return s.engine.Session(ctx)
}

// WithinTransaction runs fn in a transaction on the context's session. The
// session travels in the ctx handed to fn, so repository calls inside fn
// join the transaction. Nested calls join the outermost one.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess := s.session(ctx)
	ctx = db.ContextWithSession(ctx, sess)
	return sess.Transaction(ctx, fn)
}
