package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository"
)

type BlogRepo struct {
	store *Store
}

func (r *BlogRepo) Create(ctx context.Context, blog *model.Blog) error {
	e := blog.Entity()
	if err := e.Insert(ctx, r.store.session(ctx)); err != nil {
		return fmt.Errorf("sqldb: inserting blog: %w", err)
	}
	*blog = *model.BlogFromEntity(e)
	return nil
}

func (r *BlogRepo) GetByID(ctx context.Context, id string) (*model.Blog, error) {
	e, err := model.Blogs.Get(ctx, r.store.session(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting blog %s: %w", id, err)
	}
	if e == nil {
		return nil, apperror.NotFound("blog", id)
	}
	return model.BlogFromEntity(e), nil
}

// List returns blogs newest first.
func (r *BlogRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Blog, error) {
	opts = opts.Normalize()
	es, err := model.Blogs.FindBy(ctx, r.store.session(ctx),
		"order by create_at desc, id desc limit ? offset ?", opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing blogs: %w", err)
	}
	blogs := make([]model.Blog, 0, len(es))
	for _, e := range es {
		blogs = append(blogs, *model.BlogFromEntity(e))
	}
	return blogs, nil
}

func (r *BlogRepo) Count(ctx context.Context) (int64, error) {
	n, err := model.Blogs.CountAll(ctx, r.store.session(ctx))
	if err != nil {
		return 0, fmt.Errorf("sqldb: counting blogs: %w", err)
	}
	return n, nil
}

func (r *BlogRepo) Update(ctx context.Context, blog *model.Blog) error {
	n, err := blog.Entity().Update(ctx, r.store.session(ctx))
	if err != nil {
		return fmt.Errorf("sqldb: updating blog %s: %w", blog.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("blog", blog.ID)
	}
	return nil
}

func (r *BlogRepo) Delete(ctx context.Context, id string) error {
	n, err := model.Blogs.New().MustSet("id", id).Delete(ctx, r.store.session(ctx))
	if err != nil {
		return fmt.Errorf("sqldb: deleting blog %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("blog", id)
	}
	return nil
}
