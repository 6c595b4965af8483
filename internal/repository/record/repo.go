// Package record implements relational persistence for searchable
// entities.
package record

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	domrec "github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

// querier is the consumer interface over the SQL pool (ISP).
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo implements record persistence over SQLite.
type Repo struct {
	db  querier
	now func() time.Time
}

// New creates a record repository.
func New(db querier) *Repo {
	return &Repo{db: db, now: time.Now}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// languageID resolves a language name to its row id. Unknown languages
// resolve to NULL so the record falls back to the simple dictionary.
func (r *Repo) languageID(ctx context.Context, language string) (sql.NullInt64, error) {
	if language == "" {
		return sql.NullInt64{}, nil
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM languages WHERE name = ?`, language).Scan(&id)
	if err == sql.ErrNoRows {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("failed to resolve language %q: %w", language, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// OrderIDs reorders a matched id set by an explicit column spec, with
// the numeric id as final tie-break. Ids absent from the table are
// dropped, which also filters matches that raced with a delete.
func (r *Repo) OrderIDs(ctx context.Context, kind domain.Kind, ids []int64, spec *order.Spec) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT id FROM %s WHERE id IN (%s) ORDER BY %s`,
		kind.String(), placeholders(len(ids)), spec.SQL())
	rows, err := r.db.QueryContext(ctx, q, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to order %s ids: %w", kind, err)
	}
	defer rows.Close()

	ordered := make([]int64, 0, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", kind, err)
		}
		ordered = append(ordered, id)
	}
	return ordered, rows.Err()
}

// LoadByIDs hydrates records preserving the order of ids. Missing ids
// are skipped.
func (r *Repo) LoadByIDs(ctx context.Context, kind domain.Kind, ids []int64) ([]domrec.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var (
		recs []domrec.Record
		err  error
	)
	if kind == domain.KindResource {
		recs, err = r.queryResources(ctx,
			fmt.Sprintf(`WHERE r.id IN (%s)`, placeholders(len(ids))), idArgs(ids)...)
	} else {
		recs, err = r.queryAttachments(ctx, kind,
			fmt.Sprintf(`WHERE a.id IN (%s)`, placeholders(len(ids))), idArgs(ids)...)
	}
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domrec.Record, len(recs))
	for _, rec := range recs {
		byID[rec.ID()] = rec
	}
	out := make([]domrec.Record, 0, len(recs))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Delete removes a record by id.
func (r *Repo) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, kind.String()), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
