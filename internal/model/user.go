package model

import (
	"time"

	"github.com/sakif/awesome-blog/internal/orm"
)

// Users maps the users table.
//
// email is unique and not updatable: it is the login name and the key
// GitHub sign-in matches on. password holds a bcrypt hash, so it is wider than the 50
// characters the other short columns use.
var Users = orm.NewMapping("User").
	Table("users").
	Field("id", idField()).
	Field("email", orm.StringField(orm.NotUpdatable(), orm.Unique(), orm.DDL("varchar(50)"))).
	Field("password", orm.StringField(orm.DDL("varchar(100)"))).
	Field("admin", orm.BooleanField()).
	Field("name", orm.StringField(orm.DDL("varchar(50)"))).
	Field("image", orm.StringField(orm.DDL("varchar(500)"))).
	Field("create_at", createdField()).
	MustBuild()

// User is a registered account.
//
// PasswordHash is tagged `json:"-"` so it can never leak through an API
// response, even if a handler writes the struct directly.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Admin        bool      `json:"admin"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Entity converts u into a Users entity.
func (u *User) Entity() *orm.Entity {
	e := Users.New()
	set(e, "id", u.ID)
	e.MustSet("email", u.Email)
	e.MustSet("password", u.PasswordHash)
	e.MustSet("admin", u.Admin)
	e.MustSet("name", u.Name)
	e.MustSet("image", u.Image)
	if !u.CreatedAt.IsZero() {
		e.MustSet("create_at", epoch(u.CreatedAt))
	}
	return e
}

// UserFromEntity reads a Users entity back into a User.
func UserFromEntity(e *orm.Entity) *User {
	r := e.Record()
	return &User{
		ID:           r.String("id"),
		Email:        r.String("email"),
		PasswordHash: r.String("password"),
		Admin:        r.Bool("admin"),
		Name:         r.String("name"),
		Image:        r.String("image"),
		CreatedAt:    fromEpoch(r.Float64("create_at")),
	}
}
