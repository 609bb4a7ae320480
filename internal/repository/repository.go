// Package repository declares the storage contracts the service layer depends
// on. The services never import a concrete store: sqldb implements these
// interfaces on the orm, and the service tests implement them in memory.
package repository

import (
	"context"

	"github.com/sakif/awesome-blog/internal/model"
)

// Page size bounds applied by ListOptions.Normalize.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps Limit to (0, MaxLimit], defaulting to DefaultLimit, and
// Offset to >= 0.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// All lookups return an error wrapping apperror.ErrNotFound when the row does
// not exist; Update and Delete do the same when no row matched.

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type BlogRepository interface {
	Create(ctx context.Context, blog *model.Blog) error
	GetByID(ctx context.Context, id string) (*model.Blog, error)
	List(ctx context.Context, opts ListOptions) ([]model.Blog, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, blog *model.Blog) error
	Delete(ctx context.Context, id string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	ListByBlog(ctx context.Context, blogID string, opts ListOptions) ([]model.Comment, error)
	Delete(ctx context.Context, id string) error
	// DeleteByBlog removes every comment of a blog and returns how many
	// there were. Zero is not an error.
	DeleteByBlog(ctx context.Context, blogID string) (int64, error)
}

// Transactor runs fn as one unit of work. Repository calls made with the ctx
// passed to fn join the transaction; fn's error rolls it back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
