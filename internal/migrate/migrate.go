// Package migrate bootstraps the schema from the orm mappings.
//
// Each mapping becomes one sql-migrate migration whose up step is the
// generated CREATE TABLE and whose down step drops the table. sql-migrate
// records applied ids in Table, so running Up twice is a no-op.
//
// MySQL does not roll back DDL, so a failure halfway through Up leaves the
// tables created so far in place; run Down to clean up.
package migrate

import (
	"fmt"
	"log/slog"

	sqlmigrate "github.com/rubenv/sql-migrate"

	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/orm"
)

// Table records applied migrations.
const Table = "schema_migrations"

// Source returns one migration per mapping, in the given order. Ids are
// numbered so sql-migrate applies them in that order and rolls them back in
// reverse.
func Source(d db.Dialect, mappings ...*orm.Mapping) *sqlmigrate.MemoryMigrationSource {
	src := &sqlmigrate.MemoryMigrationSource{}
	for i, m := range mappings {
		src.Migrations = append(src.Migrations, &sqlmigrate.Migration{
			Id:   fmt.Sprintf("%d_create_%s", i+1, m.Table()),
			Up:   []string{m.DDL(d)},
			Down: []string{m.DropDDL(d)},
		})
	}
	return src
}

// Migrator applies the schema of a fixed set of mappings to one engine.
type Migrator struct {
	engine *db.Engine
	source *sqlmigrate.MemoryMigrationSource
	set    sqlmigrate.MigrationSet
	logger *slog.Logger
}

func New(engine *db.Engine, logger *slog.Logger, mappings ...*orm.Mapping) *Migrator {
	return &Migrator{
		engine: engine,
		source: Source(engine.Dialect(), mappings...),
		set:    sqlmigrate.MigrationSet{TableName: Table},
		logger: logger,
	}
}

// Up applies every pending migration and returns how many ran.
func (m *Migrator) Up() (int, error) {
	return m.exec(sqlmigrate.Up, 0)
}

// Down rolls back at most max migrations, newest first. Zero means all.
func (m *Migrator) Down(max int) (int, error) {
	return m.exec(sqlmigrate.Down, max)
}

func (m *Migrator) exec(dir sqlmigrate.MigrationDirection, max int) (int, error) {
	dialect := m.engine.Dialect().MigrateName()
	n, err := m.set.ExecMax(m.engine.DB().DB, dialect, m.source, dir, max)
	if err != nil {
		return n, fmt.Errorf("migrate: %s failed after %d migrations: %w", direction(dir), n, err)
	}
	m.logger.Info("migrations applied",
		slog.String("direction", direction(dir)),
		slog.Int("count", n),
	)
	return n, nil
}

// Planned is one migration that would run, with its statements.
type Planned struct {
	ID      string
	Queries []string
}

// Plan lists what Up (or Down, with up false) would run without running it.
func (m *Migrator) Plan(up bool, max int) ([]Planned, error) {
	dir := sqlmigrate.Down
	if up {
		dir = sqlmigrate.Up
	}
	planned, _, err := m.set.PlanMigration(m.engine.DB().DB, m.engine.Dialect().MigrateName(), m.source, dir, max)
	if err != nil {
		return nil, fmt.Errorf("migrate: planning %s: %w", direction(dir), err)
	}
	out := make([]Planned, 0, len(planned))
	for _, p := range planned {
		out = append(out, Planned{ID: p.Id, Queries: p.Queries})
	}
	return out, nil
}

func direction(dir sqlmigrate.MigrationDirection) string {
	if dir == sqlmigrate.Up {
		return "up"
	}
	return "down"
}
