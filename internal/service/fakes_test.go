package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes instead of a mock framework: each one is a map plus a
// counter, and an optional error to simulate a database failure.

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	existing, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	existing.PasswordHash = user.PasswordHash
	existing.Admin = user.Admin
	existing.Name = user.Name
	existing.Image = user.Image
	return nil
}

type fakeBlogRepo struct {
	blogs  map[string]*model.Blog
	nextID int
	err    error
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{blogs: make(map[string]*model.Blog), nextID: 1}
}

func (f *fakeBlogRepo) Create(ctx context.Context, blog *model.Blog) error {
	if f.err != nil {
		return f.err
	}
	blog.ID = fmt.Sprintf("blog-%03d", f.nextID)
	f.nextID++
	blog.CreatedAt = time.Now()
	copied := *blog
	f.blogs[blog.ID] = &copied
	return nil
}

func (f *fakeBlogRepo) GetByID(ctx context.Context, id string) (*model.Blog, error) {
	b, ok := f.blogs[id]
	if !ok {
		return nil, apperror.NotFound("blog", id)
	}
	copied := *b
	return &copied, nil
}

// List orders by id descending; ids are zero-padded so that is newest first.
func (f *fakeBlogRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	var all []model.Blog
	for _, b := range f.blogs {
		all = append(all, *b)
	}
	slices.SortFunc(all, func(a, b model.Blog) int { return -strings.Compare(a.ID, b.ID) })
	return page(all, opts), nil
}

func (f *fakeBlogRepo) Count(ctx context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.blogs)), nil
}

func (f *fakeBlogRepo) Update(ctx context.Context, blog *model.Blog) error {
	if f.err != nil {
		return f.err
	}
	existing, ok := f.blogs[blog.ID]
	if !ok {
		return apperror.NotFound("blog", blog.ID)
	}
	existing.Name = blog.Name
	existing.Summary = blog.Summary
	existing.Content = blog.Content
	return nil
}

func (f *fakeBlogRepo) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.blogs[id]; !ok {
		return apperror.NotFound("blog", id)
	}
	delete(f.blogs, id)
	return nil
}

type fakeCommentRepo struct {
	comments map[string]*model.Comment
	nextID   int
	err      error
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment), nextID: 1}
}

func (f *fakeCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	if f.err != nil {
		return f.err
	}
	c.ID = fmt.Sprintf("comment-%03d", f.nextID)
	f.nextID++
	c.CreatedAt = time.Now()
	copied := *c
	f.comments[c.ID] = &copied
	return nil
}

func (f *fakeCommentRepo) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCommentRepo) ListByBlog(ctx context.Context, blogID string, opts repository.ListOptions) ([]model.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Comment
	for _, c := range f.comments {
		if c.BlogID == blogID {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b model.Comment) int { return strings.Compare(a.ID, b.ID) })
	return page(out, opts), nil
}

func (f *fakeCommentRepo) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.comments[id]; !ok {
		return apperror.NotFound("comment", id)
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeCommentRepo) DeleteByBlog(ctx context.Context, blogID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for id, c := range f.comments {
		if c.BlogID == blogID {
			delete(f.comments, id)
			n++
		}
	}
	return n, nil
}

// fakeTx runs fn directly and records how it ended. It does not undo writes;
// tests that need rollback use the sqldb store.
type fakeTx struct {
	calls  int
	failed int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.failed++
		return err
	}
	return nil
}

func page[T any](all []T, opts repository.ListOptions) []T {
	opts = opts.Normalize()
	if opts.Offset >= len(all) {
		return nil
	}
	end := min(opts.Offset+opts.Limit, len(all))
	return all[opts.Offset:end]
}
