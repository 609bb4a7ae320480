package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/model"
	"github.com/sakif/awesome-blog/internal/repository"
)

type CommentRepo struct {
	store *Store
}

func (r *CommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	e := comment.Entity()
	if err := e.Insert(ctx, r.store.session(ctx)); err != nil {
		return fmt.Errorf("sqldb: inserting comment on blog %s: %w", comment.BlogID, err)
	}
	*comment = *model.CommentFromEntity(e)
	return nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	e, err := model.Comments.Get(ctx, r.store.session(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting comment %s: %w", id, err)
	}
	if e == nil {
		return nil, apperror.NotFound("comment", id)
	}
	return model.CommentFromEntity(e), nil
}

// ListByBlog returns a blog's comments oldest first.
func (r *CommentRepo) ListByBlog(ctx context.Context, blogID string, opts repository.ListOptions) ([]model.Comment, error) {
	opts = opts.Normalize()
	es, err := model.Comments.FindBy(ctx, r.store.session(ctx),
		"where blog_id=? order by create_at, id limit ? offset ?", blogID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing comments of blog %s: %w", blogID, err)
	}
	comments := make([]model.Comment, 0, len(es))
	for _, e := range es {
		comments = append(comments, *model.CommentFromEntity(e))
	}
	return comments, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id string) error {
	n, err := model.Comments.New().MustSet("id", id).Delete(ctx, r.store.session(ctx))
	if err != nil {
		return fmt.Errorf("sqldb: deleting comment %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

func (r *CommentRepo) DeleteByBlog(ctx context.Context, blogID string) (int64, error) {
	sess := r.store.session(ctx)
	d := sess.Dialect()
	n, err := sess.Exec(ctx,
		fmt.Sprintf("delete from %s where %s=?", d.Quote(model.Comments.Table()), d.Quote("blog_id")), blogID)
	if err != nil {
		return 0, fmt.Errorf("sqldb: deleting comments of blog %s: %w", blogID, err)
	}
	return n, nil
}
