package orm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/awesome-blog/internal/db"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func now() any {
	return float64(time.Now().UnixNano()) / 1e9
}

// newPeople declares a small entity: string id, name, and a create_at that
// is stamped on insert and never updated.
func newPeople(t *testing.T, opts ...func(*Builder)) *Mapping {
	t.Helper()
	b := NewMapping("Person").
		Table("people").
		Logger(discardLogger()).
		Field("id", StringField(PrimaryKey(), DefaultFunc(func() any { return db.NextID() }), DDL("varchar(50)"))).
		Field("name", StringField()).
		Field("score", IntegerField()).
		Field("create_at", FloatField(NotNull(), NotUpdatable(), DefaultFunc(now)))
	for _, opt := range opts {
		opt(b)
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

// newSession creates the mapping's table in a fresh sqlite file and returns a
// session on it.
func newSession(t *testing.T, m *Mapping) *db.Session {
	t.Helper()
	e, err := db.Open(db.Config{
		Driver:   db.DriverSQLite,
		Database: filepath.Join(t.TempDir(), "orm.db"),
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	_, err = e.DB().Exec(m.DDL(e.Dialect()))
	require.NoError(t, err)
	return e.NewSession()
}

// ===== DECLARATION TESTS =====

func TestBuild_NoPrimaryKey(t *testing.T) {
	_, err := NewMapping("NoKey").Logger(discardLogger()).
		Field("name", StringField()).
		Build()
	require.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestBuild_TwoPrimaryKeys(t *testing.T) {
	_, err := NewMapping("TwoKeys").Logger(discardLogger()).
		Field("a", StringField(PrimaryKey())).
		Field("b", StringField(PrimaryKey())).
		Build()
	require.ErrorIs(t, err, ErrDuplicatePrimaryKey)
}

func TestBuild_DuplicateField(t *testing.T) {
	_, err := NewMapping("Dup").Logger(discardLogger()).
		Field("id", StringField(PrimaryKey())).
		Field("name", StringField()).
		Field("title", StringField(Named("name"))).
		Build()
	require.ErrorIs(t, err, ErrDuplicateField)
}

func TestBuild_EmptyDDL(t *testing.T) {
	_, err := NewMapping("NoDDL").Logger(discardLogger()).
		Field("id", StringField(PrimaryKey(), DDL(""))).
		Build()
	require.ErrorIs(t, err, ErrNoDDL)
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		NewMapping("Broken").Logger(discardLogger()).Field("x", IntegerField()).MustBuild()
	})
}

func TestBuild_PrimaryKeyForcedNotNullNotUpdatable(t *testing.T) {
	m := newPeople(t)
	pk := m.PrimaryKey()
	assert.Equal(t, "id", pk.Name)
	assert.False(t, pk.Nullable)
	assert.False(t, pk.Updatable)
	assert.True(t, pk.Insertable)
}

func TestBuild_DefaultTableName(t *testing.T) {
	m, err := NewMapping("Tag").Logger(discardLogger()).Field("id", IntegerField(PrimaryKey())).Build()
	require.NoError(t, err)
	assert.Equal(t, "tag", m.Table())
}

func TestBuild_FieldsInDeclarationOrder(t *testing.T) {
	id := StringField(PrimaryKey())
	title := StringField()
	body := TextField()
	m, err := NewMapping("Ordered").Logger(discardLogger()).
		Field("body", body).
		Field("id", id).
		Field("title", title).
		Build()
	require.NoError(t, err)

	var names []string
	for _, f := range m.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "title", "body"}, names)
}

func TestRegistry_RedefineReplaces(t *testing.T) {
	first, err := NewMapping("Redefined").Logger(discardLogger()).Field("id", IntegerField(PrimaryKey())).Build()
	require.NoError(t, err)
	second, err := NewMapping("Redefined").Logger(discardLogger()).Field("key", IntegerField(PrimaryKey())).Build()
	require.NoError(t, err)

	got, ok := Lookup("Redefined")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)

	count := 0
	for _, m := range Mappings() {
		if m.Name() == "Redefined" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// ===== FIELD TESTS =====

func TestField_Defaults(t *testing.T) {
	tests := []struct {
		field Field
		kind  string
		def   any
		ddl   string
	}{
		{StringField(), "StringField", "", "varchar(255)"},
		{IntegerField(), "IntegerField", int64(0), "bigint"},
		{FloatField(), "FloatField", 0.0, "real"},
		{BooleanField(), "BooleanField", false, "bool"},
		{TextField(), "TextField", "", "text"},
		{BlobField(), "BlobField", "", "blob"},
		{VersionField(), "VersionField", int64(0), "bigint"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.field.Kind())
			assert.Equal(t, tt.def, tt.field.DefaultValue())
			assert.Equal(t, tt.ddl, tt.field.DDL)
			assert.True(t, tt.field.Nullable)
			assert.True(t, tt.field.Updatable)
			assert.True(t, tt.field.Insertable)
		})
	}
}

func TestField_DefaultFuncCalledEachTime(t *testing.T) {
	n := 0
	f := IntegerField(DefaultFunc(func() any { n++; return n }))
	assert.Equal(t, 1, f.DefaultValue())
	assert.Equal(t, 2, f.DefaultValue())
}

func TestField_String(t *testing.T) {
	f := StringField(Named("email"), NotUpdatable(), DDL("varchar(50)"))
	assert.Equal(t, "<StringField:email,varchar(50),default(),NI>", f.String())
}

// ===== DDL TESTS =====

func TestDDL(t *testing.T) {
	m := newPeople(t)
	want := "-- generating SQL for people:\n" +
		"create table `people` (\n" +
		"  `id` varchar(50) not null,\n" +
		"  `name` varchar(255),\n" +
		"  `score` bigint,\n" +
		"  `create_at` real not null,\n" +
		"  primary key(`id`)\n" +
		");"
	assert.Equal(t, want, m.DDL(db.DialectFor(db.DriverMySQL)))
	assert.Equal(t, "drop table if exists `people`;", m.DropDDL(db.DialectFor(db.DriverMySQL)))
}

func TestDDL_Unique(t *testing.T) {
	m, err := NewMapping("Account").
		Logger(discardLogger()).
		Field("id", IntegerField(PrimaryKey())).
		Field("email", StringField(NotNull(), Unique(), DDL("varchar(50)"))).
		Build()
	require.NoError(t, err)

	assert.Contains(t, m.DDL(db.DialectFor(db.DriverMySQL)), "  `email` varchar(50) not null unique,\n")
	email, ok := m.Field("email")
	require.True(t, ok)
	assert.True(t, email.Unique)

	s := newSession(t, m)
	ctx := context.Background()
	a := m.New()
	a.MustSet("id", int64(1))
	a.MustSet("email", "a@example.com")
	require.NoError(t, a.Insert(ctx, s))

	b := m.New()
	b.MustSet("id", int64(2))
	b.MustSet("email", "a@example.com")
	err = b.Insert(ctx, s)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
}

func TestDDL_PostgresQuoting(t *testing.T) {
	m := newPeople(t)
	ddl := m.DDL(db.DialectFor(db.DriverPostgres))
	assert.Contains(t, ddl, `create table "people" (`)
	assert.Contains(t, ddl, `primary key("id")`)
}

// ===== CRUD TESTS =====

func TestEntity_SetUnmapped(t *testing.T) {
	m := newPeople(t)
	e := m.New()
	err := e.Set("nickname", "x")
	require.ErrorIs(t, err, db.ErrNoSuchAttribute)
	_, ok := e.Get("nickname")
	assert.False(t, ok)
}

func TestInsertThenGet(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)
	ctx := context.Background()

	e := m.New().MustSet("name", "alice")
	before := float64(time.Now().UnixNano()) / 1e9
	require.NoError(t, e.Insert(ctx, s))

	id, ok := e.Get("id")
	require.True(t, ok, "default is written back to the entity")
	assert.Len(t, id, 50)

	got, err := m.Get(ctx, s, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Record().String("name"))
	assert.EqualValues(t, 0, got.Record().Int64("score"))
	assert.GreaterOrEqual(t, got.Record().Float64("create_at"), before)

	created, _ := e.Get("create_at")
	assert.InDelta(t, created, got.Record().Float64("create_at"), 1e-6)
}

func TestInsert_DefaultsAreFreshPerInsert(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)
	ctx := context.Background()

	a := m.New().MustSet("name", "alice")
	require.NoError(t, a.Insert(ctx, s))
	time.Sleep(5 * time.Millisecond)
	b := m.New()
	require.NoError(t, b.Insert(ctx, s))

	assert.NotEqual(t, a.PK(), b.PK())
	ca, _ := a.Get("create_at")
	cb, _ := b.Get("create_at")
	assert.NotEqual(t, ca, cb)

	stored, err := m.Get(ctx, s, b.PK())
	require.NoError(t, err)
	assert.Equal(t, "", stored.Record().String("name"))
}

func TestGet_Missing(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)

	got, err := m.Get(context.Background(), s, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdate_SkipsNonUpdatable(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)
	ctx := context.Background()

	e := m.New().MustSet("name", "alice").MustSet("create_at", 100.0)
	require.NoError(t, e.Insert(ctx, s))

	e.MustSet("name", "bob").MustSet("create_at", 999.0).MustSet("score", int64(7))
	n, err := e.Update(ctx, s)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := m.Get(ctx, s, e.PK())
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Record().String("name"))
	assert.EqualValues(t, 7, got.Record().Int64("score"))
	assert.Equal(t, 100.0, got.Record().Float64("create_at"))
}

func TestUpdate_MissingRow(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)

	n, err := m.New().MustSet("id", "ghost").Update(context.Background(), s)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestDelete(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)
	ctx := context.Background()

	e := m.New()
	require.NoError(t, e.Insert(ctx, s))
	n, err := e.Delete(ctx, s)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	total, err := m.CountAll(ctx, s)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestFindAndCount(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, m.New().MustSet("name", name).MustSet("score", int64(len(name))).Insert(ctx, s))
	}

	all, err := m.FindAll(ctx, s)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byScore, err := m.FindBy(ctx, s, "where score=? order by name", 5)
	require.NoError(t, err)
	require.Len(t, byScore, 2)
	assert.Equal(t, "alice", byScore[0].Record().String("name"))
	assert.Equal(t, "carol", byScore[1].Record().String("name"))

	none, err := m.FindBy(ctx, s, "where name=?", "dave")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	first, err := m.FindFirst(ctx, s, "where name=?", "bob")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.EqualValues(t, 3, first.Record().Int64("score"))

	missing, err := m.FindFirst(ctx, s, "where name=?", "dave")
	require.NoError(t, err)
	assert.Nil(t, missing)

	total, err := m.CountAll(ctx, s)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	fives, err := m.CountBy(ctx, s, "where score=?", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fives)
}

// ===== HOOK TESTS =====

func TestHooks(t *testing.T) {
	var calls []string
	m := newPeople(t, func(b *Builder) {
		b.PreInsert(func(e *Entity) error {
			calls = append(calls, "insert")
			return e.Set("score", int64(1))
		}).PreUpdate(func(e *Entity) error {
			calls = append(calls, "update")
			return nil
		}).PreDelete(func(e *Entity) error {
			calls = append(calls, "delete")
			return nil
		})
	})
	s := newSession(t, m)
	ctx := context.Background()

	e := m.New()
	require.NoError(t, e.Insert(ctx, s))
	_, err := e.Update(ctx, s)
	require.NoError(t, err)
	_, err = e.Delete(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, []string{"insert", "update", "delete"}, calls)
	score, _ := e.Get("score")
	assert.EqualValues(t, 1, score)
}

func TestHook_ErrorAborts(t *testing.T) {
	errNope := errors.New("nope")
	m := newPeople(t, func(b *Builder) {
		b.PreInsert(func(*Entity) error { return errNope })
	})
	s := newSession(t, m)
	ctx := context.Background()

	err := m.New().Insert(ctx, s)
	require.ErrorIs(t, err, errNope)

	total, err := m.CountAll(ctx, s)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

// ===== TRANSACTION TESTS =====

func TestCRUDInsideTransaction_RollsBack(t *testing.T) {
	m := newPeople(t)
	s := newSession(t, m)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := s.Transaction(ctx, func(ctx context.Context) error {
		require.NoError(t, m.New().Insert(ctx, s))
		require.NoError(t, m.New().Insert(ctx, s))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	total, err := m.CountAll(ctx, s)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}
