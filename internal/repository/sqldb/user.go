package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/awesome-blog/internal/apperror"
	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/model"
)

type UserRepo struct {
	store *Store
}

// Create inserts user. The id and create_at defaults are filled in and
// copied back onto user. A taken email is reported as apperror.Conflict.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	e := user.Entity()
	if err := e.Insert(ctx, r.store.session(ctx)); err != nil {
		if db.IsUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqldb: inserting user %s: %w", user.Email, err)
	}
	*user = *model.UserFromEntity(e)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	e, err := model.Users.Get(ctx, r.store.session(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting user %s: %w", id, err)
	}
	if e == nil {
		return nil, apperror.NotFound("user", id)
	}
	return model.UserFromEntity(e), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	e, err := model.Users.FindFirst(ctx, r.store.session(ctx), "where email=?", email)
	if err != nil {
		return nil, fmt.Errorf("sqldb: getting user by email %s: %w", email, err)
	}
	if e == nil {
		return nil, apperror.NotFound("user", email)
	}
	return model.UserFromEntity(e), nil
}

// Update rewrites the updatable columns. email and create_at keep their
// stored values whatever user carries.
func (r *UserRepo) Update(ctx context.Context, user *model.User) error {
	n, err := user.Entity().Update(ctx, r.store.session(ctx))
	if err != nil {
		return fmt.Errorf("sqldb: updating user %s: %w", user.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}
