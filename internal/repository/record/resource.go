package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	domrec "github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

const resourceSelect = `
SELECT r.id, r.uuid, r.application_id, COALESCE(r.application_user_id, 0),
       COALESCE(r.format_id, 0), COALESCE(l.name, ''),
       r.uri, r.resource_type, r.title, r.content, r.created_at, r.updated_at
FROM resources r
LEFT JOIN languages l ON l.id = r.language_id
`

func (r *Repo) queryResources(ctx context.Context, clause string, args ...any) ([]domrec.Record, error) {
	rows, err := r.db.QueryContext(ctx, resourceSelect+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var recs []domrec.Record
	for rows.Next() {
		rec, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanResource(rows *sql.Rows) (domrec.Record, error) {
	var (
		id, appID, userID, formatID        int64
		uuid, language, uri, resourceType  string
		title, content, createdAt, updated string
	)
	if err := rows.Scan(&id, &uuid, &appID, &userID, &formatID, &language,
		&uri, &resourceType, &title, &content, &createdAt, &updated); err != nil {
		return domrec.Record{}, fmt.Errorf("failed to scan resource: %w", err)
	}
	created, _ := time.Parse(time.RFC3339Nano, createdAt)
	updatedTS, _ := time.Parse(time.RFC3339Nano, updated)
	return domrec.Reconstruct(id, domain.KindResource, uuid, appID, userID, 0, formatID,
		language, uri, resourceType, title, content, nil, "", "", created, updatedTS), nil
}

// CreateResource inserts a resource and returns it hydrated.
func (r *Repo) CreateResource(ctx context.Context, rec *domrec.Record, userID int64) (domrec.Record, error) {
	langID, err := r.languageID(ctx, rec.Language())
	if err != nil {
		return domrec.Record{}, err
	}
	now := timestamp(r.now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (uuid, application_id, application_user_id, format_id,
			language_id, uri, resource_type, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UUID(), rec.ApplicationID(), nullID(userID), nullID(rec.FormatID()),
		langID, rec.URI(), rec.ResourceType(), rec.Title(), rec.Content(), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domrec.Record{}, fmt.Errorf("resource %q: %w", rec.UUID(), domain.ErrAlreadyExists)
		}
		return domrec.Record{}, fmt.Errorf("failed to create resource: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domrec.Record{}, fmt.Errorf("failed to create resource: %w", err)
	}
	return r.GetResourceByID(ctx, id)
}

// UpdateResource rewrites a resource's mutable fields.
func (r *Repo) UpdateResource(ctx context.Context, rec *domrec.Record) (domrec.Record, error) {
	langID, err := r.languageID(ctx, rec.Language())
	if err != nil {
		return domrec.Record{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE resources
		SET uri = ?, resource_type = ?, title = ?, content = ?, language_id = ?,
			format_id = ?, updated_at = ?
		WHERE id = ?`,
		rec.URI(), rec.ResourceType(), rec.Title(), rec.Content(), langID,
		nullID(rec.FormatID()), timestamp(r.now()), rec.ID())
	if err != nil {
		return domrec.Record{}, fmt.Errorf("failed to update resource %d: %w", rec.ID(), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domrec.Record{}, domain.ErrResourceNotFound
	}
	return r.GetResourceByID(ctx, rec.ID())
}

// GetResource loads a tenant's resource by public identifier.
func (r *Repo) GetResource(ctx context.Context, appID int64, uuid string) (domrec.Record, error) {
	recs, err := r.queryResources(ctx, `WHERE r.application_id = ? AND r.uuid = ?`, appID, uuid)
	if err != nil {
		return domrec.Record{}, err
	}
	if len(recs) == 0 {
		return domrec.Record{}, domain.ErrResourceNotFound
	}
	return recs[0], nil
}

// GetResourceByID loads a resource by storage id.
func (r *Repo) GetResourceByID(ctx context.Context, id int64) (domrec.Record, error) {
	recs, err := r.queryResources(ctx, `WHERE r.id = ?`, id)
	if err != nil {
		return domrec.Record{}, err
	}
	if len(recs) == 0 {
		return domrec.Record{}, domain.ErrResourceNotFound
	}
	return recs[0], nil
}

// ListResources returns one page of a tenant's resources plus the full
// count, ordered by spec.
func (r *Repo) ListResources(ctx context.Context, appID int64, spec *order.Spec, limit, offset int) ([]domrec.Record, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resources WHERE application_id = ?`, appID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count resources: %w", err)
	}
	clause := fmt.Sprintf(`WHERE r.application_id = ? ORDER BY %s LIMIT ? OFFSET ?`, spec.QualifiedSQL("r"))
	recs, err := r.queryResources(ctx, clause, appID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// ResourcesByPublicID loads every tenant's copy of a public identifier,
// ordered by storage id so the oldest copy comes first.
func (r *Repo) ResourcesByPublicID(ctx context.Context, uuid string) ([]domrec.Record, error) {
	return r.queryResources(ctx, `WHERE r.uuid = ? ORDER BY r.id ASC`, uuid)
}
