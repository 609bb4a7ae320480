package model

import (
	"time"

	"github.com/sakif/awesome-blog/internal/orm"
)

// Blogs maps the blogs table. The author's name and image are copied onto the
// row when it is written so listing blogs never needs a join.
var Blogs = orm.NewMapping("Blog").
	Table("blogs").
	Field("id", idField()).
	Field("user_id", orm.StringField(orm.NotUpdatable(), orm.DDL("varchar(50)"))).
	Field("user_name", orm.StringField(orm.DDL("varchar(50)"))).
	Field("user_image", orm.StringField(orm.DDL("varchar(500)"))).
	Field("name", orm.StringField(orm.DDL("varchar(50)"))).
	Field("summary", orm.StringField(orm.DDL("varchar(200)"))).
	Field("content", orm.TextField()).
	Field("create_at", createdField()).
	MustBuild()

// Blog is one post.
type Blog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserImage string    `json:"userImage"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *Blog) Entity() *orm.Entity {
	e := Blogs.New()
	set(e, "id", b.ID)
	e.MustSet("user_id", b.UserID)
	e.MustSet("user_name", b.UserName)
	e.MustSet("user_image", b.UserImage)
	e.MustSet("name", b.Name)
	e.MustSet("summary", b.Summary)
	e.MustSet("content", b.Content)
	if !b.CreatedAt.IsZero() {
		e.MustSet("create_at", epoch(b.CreatedAt))
	}
	return e
}

func BlogFromEntity(e *orm.Entity) *Blog {
	r := e.Record()
	return &Blog{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		UserName:  r.String("user_name"),
		UserImage: r.String("user_image"),
		Name:      r.String("name"),
		Summary:   r.String("summary"),
		Content:   r.String("content"),
		CreatedAt: fromEpoch(r.Float64("create_at")),
	}
}
