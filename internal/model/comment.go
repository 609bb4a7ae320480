package model

import (
	"time"

	"github.com/sakif/awesome-blog/internal/orm"
)

// Comments maps the comments table.
var Comments = orm.NewMapping("Comment").
	Table("comments").
	Field("id", idField()).
	Field("blog_id", orm.StringField(orm.NotUpdatable(), orm.DDL("varchar(50)"))).
	Field("user_id", orm.StringField(orm.NotUpdatable(), orm.DDL("varchar(50)"))).
	Field("user_name", orm.StringField(orm.DDL("varchar(50)"))).
	Field("content", orm.TextField()).
	Field("create_at", createdField()).
	MustBuild()

// Comment is a reply to a blog.
type Comment struct {
	ID        string    `json:"id"`
	BlogID    string    `json:"blogId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) Entity() *orm.Entity {
	e := Comments.New()
	set(e, "id", c.ID)
	e.MustSet("blog_id", c.BlogID)
	e.MustSet("user_id", c.UserID)
	e.MustSet("user_name", c.UserName)
	e.MustSet("content", c.Content)
	if !c.CreatedAt.IsZero() {
		e.MustSet("create_at", epoch(c.CreatedAt))
	}
	return e
}

func CommentFromEntity(e *orm.Entity) *Comment {
	r := e.Record()
	return &Comment{
		ID:        r.String("id"),
		BlogID:    r.String("blog_id"),
		UserID:    r.String("user_id"),
		UserName:  r.String("user_name"),
		Content:   r.String("content"),
		CreatedAt: fromEpoch(r.Float64("create_at")),
	}
}
