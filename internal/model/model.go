// Package model defines the blog's entities: users, blogs and comments.
//
// Each entity has two halves:
//
//   - an orm.Mapping (Users, Blogs, Comments) that describes the table and is
//     the only thing the database layer knows about, and
//   - a plain struct (User, Blog, Comment) with `json:"..."` tags that the
//     service and handler layers pass around.
//
// The To/From helpers convert between the two. Keeping the structs free of
// database types means a handler never has to know how a row is stored.
package model

import (
	"math"
	"time"

	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/orm"
)

// WHY float seconds for create_at?
// The column is a `real` holding Unix seconds with a fractional part, so rows
// written by any client sort by creation time without a driver-specific
// timestamp type. The structs expose it as time.Time.

func epoch(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func fromEpoch(f float64) time.Time {
	return time.UnixMicro(int64(math.Round(f * 1e6))).UTC()
}

func nextID() any { return db.NextID() }

func now() any { return epoch(time.Now()) }

// idField is the primary key shared by every table.
func idField() orm.Field {
	return orm.StringField(orm.PrimaryKey(), orm.DefaultFunc(nextID), orm.DDL("varchar(50)"))
}

// createdField is stamped on insert and never rewritten.
func createdField() orm.Field {
	return orm.FloatField(orm.NotUpdatable(), orm.DefaultFunc(now))
}

// set copies v onto e unless it is the zero value, so Insert fills the
// column's default instead.
func set[T comparable](e *orm.Entity, name string, v T) {
	var zero T
	if v == zero {
		return
	}
	e.MustSet(name, v)
}

// All returns the mappings of this package in dependency order.
func All() []*orm.Mapping {
	return []*orm.Mapping{Users, Blogs, Comments}
}
