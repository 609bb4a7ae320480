package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// slowQuery is the duration above which a statement is logged at warn level.
const slowQuery = 100 * time.Millisecond

func (s *Session) profile(start time.Time, query string) {
	d := time.Since(start)
	if d > slowQuery {
		s.logger.Warn("[PROFILING] [DB]", slog.Duration("duration", d), slog.String("sql", query))
		return
	}
	s.logger.Info("[PROFILING] [DB]", slog.Duration("duration", d), slog.String("sql", query))
}

// query runs a SELECT and materializes its rows. With first set, it stops
// after one row.
func (s *Session) query(ctx context.Context, first bool, query string, args ...any) (recs []*Record, err error) {
	scope := s.acquire()
	defer func() {
		if relErr := scope.release(); relErr != nil {
			err = errors.Join(err, fmt.Errorf("db: closing connection: %w", relErr))
		}
	}()
	defer s.profile(time.Now(), query)

	conn, err := s.conn.get(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, s.engine.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("db: reading columns: %w", err)
	}

	recs = make([]*Record, 0)
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("db: scanning row: %w", err)
		}
		for i := range vals {
			vals[i] = normalize(vals[i])
		}
		recs = append(recs, NewRecord(cols, vals))
		if first {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterating rows: %w", err)
	}
	return recs, nil
}

// SelectOne returns the first row of the query, or nil when nothing matched.
func (s *Session) SelectOne(ctx context.Context, query string, args ...any) (*Record, error) {
	recs, err := s.query(ctx, true, query, args...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// SelectScalar returns the only column of the first row.
// It fails with ErrMultiColumns when the row has more than one column and with
// ErrNoRows when the query matched nothing.
func (s *Session) SelectScalar(ctx context.Context, query string, args ...any) (any, error) {
	rec, err := s.SelectOne(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoRows
	}
	if rec.Len() != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrMultiColumns, rec.Len())
	}
	return rec.Values()[0], nil
}

// SelectInt is SelectScalar for integer results such as count(*).
func (s *Session) SelectInt(ctx context.Context, query string, args ...any) (int64, error) {
	v, err := s.SelectScalar(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, ok := asInt64(v)
	if !ok {
		return 0, fmt.Errorf("db: scalar %v (%T) is not an integer", v, v)
	}
	return n, nil
}

// Select returns every row of the query. The slice is empty, not nil, when
// nothing matched.
func (s *Session) Select(ctx context.Context, query string, args ...any) ([]*Record, error) {
	return s.query(ctx, false, query, args...)
}

// Exec runs an INSERT, UPDATE or DELETE and returns the affected row count.
// Outside a transaction scope the statement is committed immediately; inside
// one it is resolved by the outermost scope's End.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (n int64, err error) {
	scope := s.acquire()
	defer func() {
		if relErr := scope.release(); relErr != nil {
			err = errors.Join(err, fmt.Errorf("db: closing connection: %w", relErr))
		}
	}()
	defer s.profile(time.Now(), query)

	conn, err := s.conn.get(ctx)
	if err != nil {
		return 0, err
	}
	res, err := conn.Exec(ctx, s.engine.dialect.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("db: exec: %w", err)
	}
	if s.transactions == 0 {
		s.logger.Info("auto commit")
		if err := s.conn.commit(); err != nil {
			return 0, fmt.Errorf("db: auto commit: %w", err)
		}
	}

	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db: reading rows affected: %w", err)
	}
	return n, nil
}

// Insert writes one row built from values (column → value, in key order).
func (s *Session) Insert(ctx context.Context, table string, values *Record) (int64, error) {
	if values.Len() == 0 {
		return 0, fmt.Errorf("db: insert into %s: no columns", table)
	}
	d := s.engine.dialect
	cols := values.Keys()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
		marks[i] = "?"
	}
	query := fmt.Sprintf("insert into %s (%s) values (%s)",
		d.Quote(table), strings.Join(quoted, ","), strings.Join(marks, ","))
	return s.Exec(ctx, query, values.Values()...)
}
