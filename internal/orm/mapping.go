package orm

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/sakif/awesome-blog/internal/db"
)

var (
	// ErrNoPrimaryKey is returned by Build when no field is marked PrimaryKey.
	ErrNoPrimaryKey = errors.New("orm: primary key not defined")

	// ErrDuplicatePrimaryKey is returned by Build when two fields claim the primary key.
	ErrDuplicatePrimaryKey = errors.New("orm: more than one primary key")

	// ErrDuplicateField is returned by Build when a column name is declared twice.
	ErrDuplicateField = errors.New("orm: duplicate field")

	// ErrNoDDL is returned by Build for a field whose type fragment is empty.
	ErrNoDDL = errors.New("orm: field has no ddl")
)

// Hook runs before an insert, update or delete of e. A non-nil error aborts
// the operation.
type Hook func(e *Entity) error

// Mapping is the immutable table description of one entity type.
type Mapping struct {
	name   string
	table  string
	fields []*Field
	byName map[string]*Field
	pk     *Field

	preInsert Hook
	preUpdate Hook
	preDelete Hook
}

// Name returns the entity type name.
func (m *Mapping) Name() string { return m.name }

// Table returns the table name.
func (m *Mapping) Table() string { return m.table }

// PrimaryKey returns the primary-key field.
func (m *Mapping) PrimaryKey() Field { return *m.pk }

// Fields returns copies of the mapped fields in declaration order.
func (m *Mapping) Fields() []Field {
	out := make([]Field, len(m.fields))
	for i, f := range m.fields {
		out[i] = *f
	}
	return out
}

// Field looks up a mapped field by column name.
func (m *Mapping) Field(name string) (Field, bool) {
	f, ok := m.byName[name]
	if !ok {
		return Field{}, false
	}
	return *f, true
}

// DDL renders the CREATE TABLE statement, columns in declaration order.
func (m *Mapping) DDL(d db.Dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- generating SQL for %s:\n", m.table)
	fmt.Fprintf(&b, "create table %s (\n", d.Quote(m.table))
	for _, f := range m.fields {
		fmt.Fprintf(&b, "  %s %s", d.Quote(f.Name), f.DDL)
		if !f.Nullable {
			b.WriteString(" not null")
		}
		if f.Unique {
			b.WriteString(" unique")
		}
		b.WriteString(",\n")
	}
	fmt.Fprintf(&b, "  primary key(%s)\n);", d.Quote(m.pk.Name))
	return b.String()
}

// DropDDL renders the matching DROP TABLE statement.
func (m *Mapping) DropDDL(d db.Dialect) string {
	return "drop table if exists " + d.Quote(m.table) + ";"
}

// Builder collects an entity declaration. The zero value is not usable; start
// with NewMapping.
type Builder struct {
	name   string
	table  string
	keys   []string
	fields map[string]Field
	logger *slog.Logger

	preInsert Hook
	preUpdate Hook
	preDelete Hook

	err error
}

// NewMapping starts the declaration of the entity called name. Unless Table is
// called, the table name is the lower-cased entity name.
func NewMapping(name string) *Builder {
	return &Builder{
		name:   name,
		table:  strings.ToLower(name),
		fields: make(map[string]Field),
		logger: slog.Default(),
	}
}

func (b *Builder) Table(table string) *Builder {
	b.table = table
	return b
}

func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Field declares a column under key. The key becomes the column name unless
// the field was given one with Named.
func (b *Builder) Field(key string, f Field) *Builder {
	if f.Name == "" {
		f.Name = key
	}
	if _, dup := b.fields[f.Name]; dup {
		b.err = errors.Join(b.err, fmt.Errorf("%w: %s.%s", ErrDuplicateField, b.name, f.Name))
		return b
	}
	b.keys = append(b.keys, f.Name)
	b.fields[f.Name] = f
	return b
}

func (b *Builder) PreInsert(h Hook) *Builder { b.preInsert = h; return b }
func (b *Builder) PreUpdate(h Hook) *Builder { b.preUpdate = h; return b }
func (b *Builder) PreDelete(h Hook) *Builder { b.preDelete = h; return b }

// Build validates the declaration and registers the mapping.
func (b *Builder) Build() (*Mapping, error) {
	if b.err != nil {
		return nil, b.err
	}
	log := b.logger.With(slog.String("entity", b.name))
	log.Info("scan mapping")

	m := &Mapping{
		name:      b.name,
		table:     b.table,
		byName:    make(map[string]*Field, len(b.keys)),
		preInsert: b.preInsert,
		preUpdate: b.preUpdate,
		preDelete: b.preDelete,
	}
	for _, key := range b.keys {
		f := b.fields[key]
		if f.DDL == "" {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoDDL, b.name, f.Name)
		}
		if f.PrimaryKey {
			if m.pk != nil {
				return nil, fmt.Errorf("%w: %s has %s and %s", ErrDuplicatePrimaryKey, b.name, m.pk.Name, f.Name)
			}
			if f.Updatable {
				log.Warn("primary key changed to non-updatable", slog.String("field", f.Name))
				f.Updatable = false
			}
			if f.Nullable {
				log.Warn("primary key changed to non-nullable", slog.String("field", f.Name))
				f.Nullable = false
			}
		}
		fp := &f
		if f.PrimaryKey {
			m.pk = fp
		}
		log.Debug("found mapping", slog.String("field", fp.String()))
		m.fields = append(m.fields, fp)
		m.byName[f.Name] = fp
	}
	if m.pk == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, b.name)
	}
	slices.SortStableFunc(m.fields, func(x, y *Field) int {
		switch {
		case x.order < y.order:
			return -1
		case x.order > y.order:
			return 1
		}
		return 0
	})

	register(m, log)
	return m, nil
}

// MustBuild is Build for package-level declarations; an invalid declaration
// panics.
func (b *Builder) MustBuild() *Mapping {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// ===== REGISTRY =====

var (
	registryMu sync.RWMutex
	registry   []*Mapping
)

func register(m *Mapping, log *slog.Logger) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for i, old := range registry {
		if old.name == m.name {
			log.Warn("redefine mapping")
			registry[i] = m
			return
		}
	}
	registry = append(registry, m)
}

// Mappings returns every registered mapping in registration order.
func Mappings() []*Mapping {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Clone(registry)
}

// Lookup returns the registered mapping for an entity name.
func Lookup(name string) (*Mapping, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, m := range registry {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}
