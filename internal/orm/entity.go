package orm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/awesome-blog/internal/db"
)

// Querier is the statement surface the CRUD operations run on. *db.Session
// implements it.
type Querier interface {
	SelectOne(ctx context.Context, query string, args ...any) (*db.Record, error)
	Select(ctx context.Context, query string, args ...any) ([]*db.Record, error)
	SelectInt(ctx context.Context, query string, args ...any) (int64, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Insert(ctx context.Context, table string, values *db.Record) (int64, error)
	Dialect() db.Dialect
}

var _ Querier = (*db.Session)(nil)

// Entity is one instance of a mapped type: a Record restricted to the
// mapping's columns on assignment.
type Entity struct {
	m   *Mapping
	rec *db.Record
}

// New returns an empty entity. Unset fields are filled with their defaults on
// Insert or Update.
func (m *Mapping) New() *Entity {
	return &Entity{m: m, rec: db.NewRecord(nil, nil)}
}

// FromRecord wraps a row read from the mapping's table.
func (m *Mapping) FromRecord(r *db.Record) *Entity {
	return &Entity{m: m, rec: r}
}

func (e *Entity) Mapping() *Mapping  { return e.m }
func (e *Entity) Record() *db.Record { return e.rec }

// Get returns the value of a column and whether it is set.
func (e *Entity) Get(name string) (any, bool) { return e.rec.Get(name) }

// Set assigns a mapped column. Unmapped names fail with db.ErrNoSuchAttribute.
func (e *Entity) Set(name string, value any) error {
	if _, ok := e.m.byName[name]; !ok {
		return fmt.Errorf("%w: %s.%s", db.ErrNoSuchAttribute, e.m.name, name)
	}
	e.rec.Set(name, value)
	return nil
}

// MustSet is Set for names known to be mapped.
func (e *Entity) MustSet(name string, value any) *Entity {
	if err := e.Set(name, value); err != nil {
		panic(err)
	}
	return e
}

// PK returns the primary-key value.
func (e *Entity) PK() any {
	v, _ := e.rec.Get(e.m.pk.Name)
	return v
}

// resolve returns the current value of f, writing the default back when unset.
func (e *Entity) resolve(f *Field) any {
	if v, ok := e.rec.Get(f.Name); ok {
		return v
	}
	v := f.DefaultValue()
	e.rec.Set(f.Name, v)
	return v
}

// ===== READ =====

// Get loads the row whose primary key equals pk; nil when there is none.
func (m *Mapping) Get(ctx context.Context, q Querier, pk any) (*Entity, error) {
	d := q.Dialect()
	r, err := q.SelectOne(ctx,
		fmt.Sprintf("select * from %s where %s=?", d.Quote(m.table), d.Quote(m.pk.Name)), pk)
	if err != nil || r == nil {
		return nil, err
	}
	return m.FromRecord(r), nil
}

// FindFirst returns the first row matching where, e.g. "where email=?";
// nil when there is none.
func (m *Mapping) FindFirst(ctx context.Context, q Querier, where string, args ...any) (*Entity, error) {
	r, err := q.SelectOne(ctx, m.selectFrom(q.Dialect(), where), args...)
	if err != nil || r == nil {
		return nil, err
	}
	return m.FromRecord(r), nil
}

// FindAll returns every row of the table.
func (m *Mapping) FindAll(ctx context.Context, q Querier) ([]*Entity, error) {
	return m.FindBy(ctx, q, "")
}

// FindBy returns every row matching where. The clause is appended verbatim and
// may carry order by / limit.
func (m *Mapping) FindBy(ctx context.Context, q Querier, where string, args ...any) ([]*Entity, error) {
	rs, err := q.Select(ctx, m.selectFrom(q.Dialect(), where), args...)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, len(rs))
	for i, r := range rs {
		out[i] = m.FromRecord(r)
	}
	return out, nil
}

func (m *Mapping) CountAll(ctx context.Context, q Querier) (int64, error) {
	return m.CountBy(ctx, q, "")
}

func (m *Mapping) CountBy(ctx context.Context, q Querier, where string, args ...any) (int64, error) {
	d := q.Dialect()
	query := fmt.Sprintf("select count(%s) from %s", d.Quote(m.pk.Name), d.Quote(m.table))
	return q.SelectInt(ctx, withWhere(query, where), args...)
}

func (m *Mapping) selectFrom(d db.Dialect, where string) string {
	return withWhere("select * from "+d.Quote(m.table), where)
}

func withWhere(query, where string) string {
	if where = strings.TrimSpace(where); where == "" {
		return query
	}
	return query + " " + where
}

// ===== WRITE =====

// Insert writes every insertable column. Unset columns take their default,
// which is also stored on the entity.
func (e *Entity) Insert(ctx context.Context, q Querier) error {
	if e.m.preInsert != nil {
		if err := e.m.preInsert(e); err != nil {
			return fmt.Errorf("orm: pre-insert %s: %w", e.m.name, err)
		}
	}
	values := db.NewRecord(nil, nil)
	for _, f := range e.m.fields {
		if f.Insertable {
			values.Set(f.Name, e.resolve(f))
		}
	}
	if _, err := q.Insert(ctx, e.m.table, values); err != nil {
		return fmt.Errorf("orm: insert %s: %w", e.m.name, err)
	}
	return nil
}

// Update rewrites the updatable columns of the row with the entity's primary
// key and returns the number of rows changed.
func (e *Entity) Update(ctx context.Context, q Querier) (int64, error) {
	if e.m.preUpdate != nil {
		if err := e.m.preUpdate(e); err != nil {
			return 0, fmt.Errorf("orm: pre-update %s: %w", e.m.name, err)
		}
	}
	d := q.Dialect()
	var (
		sets []string
		args []any
	)
	for _, f := range e.m.fields {
		if !f.Updatable {
			continue
		}
		sets = append(sets, d.Quote(f.Name)+"=?")
		args = append(args, e.resolve(f))
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, e.PK())
	query := fmt.Sprintf("update %s set %s where %s=?",
		d.Quote(e.m.table), strings.Join(sets, ","), d.Quote(e.m.pk.Name))
	n, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("orm: update %s: %w", e.m.name, err)
	}
	return n, nil
}

// Delete removes the row with the entity's primary key and returns the number
// of rows removed.
func (e *Entity) Delete(ctx context.Context, q Querier) (int64, error) {
	if e.m.preDelete != nil {
		if err := e.m.preDelete(e); err != nil {
			return 0, fmt.Errorf("orm: pre-delete %s: %w", e.m.name, err)
		}
	}
	d := q.Dialect()
	n, err := q.Exec(ctx,
		fmt.Sprintf("delete from %s where %s=?", d.Quote(e.m.table), d.Quote(e.m.pk.Name)), e.PK())
	if err != nil {
		return 0, fmt.Errorf("orm: delete %s: %w", e.m.name, err)
	}
	return n, nil
}
