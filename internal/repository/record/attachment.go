package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	domrec "github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

// attachmentSelect hydrates the parent resource text alongside the row
// because attachment index documents embed it.
const attachmentSelect = `
SELECT a.id, a.uuid, a.application_id, COALESCE(a.application_user_id, 0),
       a.resource_id, COALESCE(a.format_id, 0), COALESCE(l.name, ''),
       a.value, r.title, r.content, a.created_at, a.updated_at
FROM %s a
JOIN resources r ON r.id = a.resource_id
LEFT JOIN languages l ON l.id = a.language_id
`

func (r *Repo) queryAttachments(ctx context.Context, kind domain.Kind, clause string, args ...any) ([]domrec.Record, error) {
	q := fmt.Sprintf(attachmentSelect, kind.String()) + clause
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	defer rows.Close()

	var recs []domrec.Record
	for rows.Next() {
		rec, err := scanAttachment(kind, rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanAttachment(kind domain.Kind, rows *sql.Rows) (domrec.Record, error) {
	var (
		id, appID, userID, resourceID, formatID int64
		uuid, language, value                   string
		parentTitle, parentContent              string
		createdAt, updatedAt                    string
	)
	if err := rows.Scan(&id, &uuid, &appID, &userID, &resourceID, &formatID, &language,
		&value, &parentTitle, &parentContent, &createdAt, &updatedAt); err != nil {
		return domrec.Record{}, fmt.Errorf("failed to scan %s: %w", kind, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, createdAt)
	updated, _ := time.Parse(time.RFC3339Nano, updatedAt)
	return domrec.Reconstruct(id, kind, uuid, appID, userID, resourceID, formatID,
		language, "", "", "", "", json.RawMessage(value), parentTitle, parentContent,
		created, updated), nil
}

// CreateAttachment inserts a metadata or stats row and returns it
// hydrated.
func (r *Repo) CreateAttachment(ctx context.Context, rec *domrec.Record, userID int64) (domrec.Record, error) {
	langID, err := r.languageID(ctx, rec.Language())
	if err != nil {
		return domrec.Record{}, err
	}
	now := timestamp(r.now())
	q := fmt.Sprintf(`
		INSERT INTO %s (uuid, application_id, application_user_id, resource_id,
			format_id, language_id, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, rec.Kind().String())
	res, err := r.db.ExecContext(ctx, q,
		rec.UUID(), rec.ApplicationID(), nullID(userID), rec.ResourceID(),
		nullID(rec.FormatID()), langID, string(rec.Value()), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domrec.Record{}, fmt.Errorf("%s %q: %w", rec.Kind(), rec.UUID(), domain.ErrAlreadyExists)
		}
		return domrec.Record{}, fmt.Errorf("failed to create %s: %w", rec.Kind(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domrec.Record{}, fmt.Errorf("failed to create %s: %w", rec.Kind(), err)
	}
	return r.GetAttachmentByID(ctx, rec.Kind(), id)
}

// UpdateAttachment rewrites an attachment's value and language.
func (r *Repo) UpdateAttachment(ctx context.Context, rec *domrec.Record) (domrec.Record, error) {
	langID, err := r.languageID(ctx, rec.Language())
	if err != nil {
		return domrec.Record{}, err
	}
	q := fmt.Sprintf(`UPDATE %s SET value = ?, language_id = ?, format_id = ?, updated_at = ? WHERE id = ?`,
		rec.Kind().String())
	res, err := r.db.ExecContext(ctx, q,
		string(rec.Value()), langID, nullID(rec.FormatID()), timestamp(r.now()), rec.ID())
	if err != nil {
		return domrec.Record{}, fmt.Errorf("failed to update %s %d: %w", rec.Kind(), rec.ID(), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domrec.Record{}, domain.ErrNotFound
	}
	return r.GetAttachmentByID(ctx, rec.Kind(), rec.ID())
}

// GetAttachment loads a tenant's attachment by public identifier.
func (r *Repo) GetAttachment(ctx context.Context, kind domain.Kind, appID int64, uuid string) (domrec.Record, error) {
	recs, err := r.queryAttachments(ctx, kind, `WHERE a.application_id = ? AND a.uuid = ?`, appID, uuid)
	if err != nil {
		return domrec.Record{}, err
	}
	if len(recs) == 0 {
		return domrec.Record{}, domain.ErrNotFound
	}
	return recs[0], nil
}

// GetAttachmentByID loads an attachment by storage id.
func (r *Repo) GetAttachmentByID(ctx context.Context, kind domain.Kind, id int64) (domrec.Record, error) {
	recs, err := r.queryAttachments(ctx, kind, `WHERE a.id = ?`, id)
	if err != nil {
		return domrec.Record{}, err
	}
	if len(recs) == 0 {
		return domrec.Record{}, domain.ErrNotFound
	}
	return recs[0], nil
}

// ListAttachments returns one page of a tenant's attachments plus the
// full count. A non-zero resourceID narrows to one parent resource.
func (r *Repo) ListAttachments(ctx context.Context, kind domain.Kind, appID, resourceID int64, spec *order.Spec, limit, offset int) ([]domrec.Record, int, error) {
	where := `WHERE a.application_id = ?`
	args := []any{appID}
	if resourceID != 0 {
		where += ` AND a.resource_id = ?`
		args = append(args, resourceID)
	}

	var total int
	countQ := fmt.Sprintf(`SELECT COUNT(*) FROM %s a `, kind.String()) + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	clause := fmt.Sprintf(`%s ORDER BY %s LIMIT ? OFFSET ?`, where, spec.QualifiedSQL("a"))
	recs, err := r.queryAttachments(ctx, kind, clause, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// AttachmentsOfResource loads all attachments of one parent resource,
// used to refresh their index documents when the parent text changes.
func (r *Repo) AttachmentsOfResource(ctx context.Context, kind domain.Kind, resourceID int64) ([]domrec.Record, error) {
	return r.queryAttachments(ctx, kind, `WHERE a.resource_id = ? ORDER BY a.id ASC`, resourceID)
}

// AttachmentsOfResources loads all attachments hanging off any of the
// given parent resources, across tenants, ordered by storage id.
func (r *Repo) AttachmentsOfResources(ctx context.Context, kind domain.Kind, resourceIDs []int64) ([]domrec.Record, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	clause := fmt.Sprintf(`WHERE a.resource_id IN (%s) ORDER BY a.id ASC`, placeholders(len(resourceIDs)))
	return r.queryAttachments(ctx, kind, clause, idArgs(resourceIDs)...)
}
