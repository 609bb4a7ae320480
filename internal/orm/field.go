// Package orm maps entity declarations onto tables.
//
// An entity is declared once, at package init, with the Mapping builder:
//
//	var Users = orm.NewMapping("User").
//		Table("users").
//		Field("id", orm.StringField(orm.PrimaryKey(), orm.DefaultFunc(newID), orm.DDL("varchar(50)"))).
//		Field("name", orm.StringField(orm.DDL("varchar(50)"))).
//		MustBuild()
//
// Build checks the declaration (exactly one primary key, no duplicate
// columns) and fails immediately; MustBuild turns that failure into a panic so
// a broken declaration stops the process at start-up, never at first use.
//
// The resulting *Mapping is immutable and safe to share between goroutines.
// Entities created from it are not: each belongs to the worker using it.
package orm

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// declared hands out the declaration-order counter.
var declared atomic.Int64

// Field describes one mapped column.
type Field struct {
	Name       string
	PrimaryKey bool
	Nullable   bool
	Updatable  bool
	Insertable bool
	Unique     bool
	DDL        string

	kind  string
	def   any
	order int64
}

// Option adjusts a Field while it is being declared.
type Option func(*Field)

// Named sets the column name explicitly instead of taking the declaration key.
func Named(name string) Option { return func(f *Field) { f.Name = name } }

// PrimaryKey marks the column as the entity's primary key.
func PrimaryKey() Option { return func(f *Field) { f.PrimaryKey = true } }

// NotNull makes the column non-nullable.
func NotNull() Option { return func(f *Field) { f.Nullable = false } }

// Unique adds a unique constraint to the column.
func Unique() Option { return func(f *Field) { f.Unique = true } }

// NotUpdatable keeps the column out of UPDATE statements.
func NotUpdatable() Option { return func(f *Field) { f.Updatable = false } }

// NotInsertable keeps the column out of INSERT statements.
func NotInsertable() Option { return func(f *Field) { f.Insertable = false } }

// DDL overrides the column type fragment.
func DDL(ddl string) Option { return func(f *Field) { f.DDL = ddl } }

// Default sets a literal default value.
func Default(v any) Option { return func(f *Field) { f.def = v } }

// DefaultFunc sets a producer that is called for a fresh value every time a
// default is needed.
func DefaultFunc(fn func() any) Option { return func(f *Field) { f.def = fn } }

func newField(kind string, def any, ddl string, opts []Option) Field {
	f := Field{
		Nullable:   true,
		Updatable:  true,
		Insertable: true,
		DDL:        ddl,
		kind:       kind,
		def:        def,
		order:      declared.Add(1),
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// StringField is a varchar(255) column defaulting to "".
func StringField(opts ...Option) Field { return newField("StringField", "", "varchar(255)", opts) }

// IntegerField is a bigint column defaulting to 0.
func IntegerField(opts ...Option) Field { return newField("IntegerField", int64(0), "bigint", opts) }

// FloatField is a real column defaulting to 0.0.
func FloatField(opts ...Option) Field { return newField("FloatField", 0.0, "real", opts) }

// BooleanField is a bool column defaulting to false.
func BooleanField(opts ...Option) Field { return newField("BooleanField", false, "bool", opts) }

// TextField is a text column defaulting to "".
func TextField(opts ...Option) Field { return newField("TextField", "", "text", opts) }

// BlobField is a blob column defaulting to "".
func BlobField(opts ...Option) Field { return newField("BlobField", "", "blob", opts) }

// VersionField is a bigint counter starting at 0.
func VersionField(opts ...Option) Field { return newField("VersionField", int64(0), "bigint", opts) }

// Kind returns the constructor name, e.g. "StringField".
func (f Field) Kind() string { return f.kind }

// Order returns the declaration-order counter.
func (f Field) Order() int64 { return f.order }

// DefaultValue resolves the default: producers are invoked, literals returned
// as they are.
func (f Field) DefaultValue() any {
	if fn, ok := f.def.(func() any); ok {
		return fn()
	}
	return f.def
}

func (f Field) String() string {
	var b strings.Builder
	def := f.def
	if _, ok := def.(func() any); ok {
		def = "func"
	}
	fmt.Fprintf(&b, "<%s:%s,%s,default(%v),", f.kind, f.Name, f.DDL, def)
	if f.Nullable {
		b.WriteByte('N')
	}
	if f.Updatable {
		b.WriteByte('U')
	}
	if f.Insertable {
		b.WriteByte('I')
	}
	b.WriteByte('>')
	return b.String()
}
