// Package application implements tenant persistence.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
)

// querier is the consumer interface over the SQL pool (ISP).
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo implements application persistence over SQLite.
type Repo struct {
	db  querier
	now func() time.Time
}

// New creates an application repository.
func New(db querier) *Repo {
	return &Repo{db: db, now: time.Now}
}

// GetByToken resolves an API token to its application.
func (r *Repo) GetByToken(ctx context.Context, token string) (domain.Application, error) {
	var (
		id   int64
		uuid string
		name string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, uuid, name FROM applications WHERE token = ?`, token).
		Scan(&id, &uuid, &name)
	if err == sql.ErrNoRows {
		return domain.Application{}, domain.ErrApplicationNotFound
	}
	if err != nil {
		return domain.Application{}, fmt.Errorf("failed to resolve token: %w", err)
	}
	return domain.NewApplication(id, uuid, name), nil
}

// GetByID loads an application by storage id.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Application, error) {
	var (
		uuid string
		name string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT uuid, name FROM applications WHERE id = ?`, id).
		Scan(&uuid, &name)
	if err == sql.ErrNoRows {
		return domain.Application{}, domain.ErrApplicationNotFound
	}
	if err != nil {
		return domain.Application{}, fmt.Errorf("failed to load application %d: %w", id, err)
	}
	return domain.NewApplication(id, uuid, name), nil
}

// Create registers an application with its API token.
func (r *Repo) Create(ctx context.Context, uuid, name, token string) (domain.Application, error) {
	now := r.now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (uuid, name, token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`, uuid, name, token, now, now)
	if err != nil {
		return domain.Application{}, fmt.Errorf("failed to create application %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Application{}, fmt.Errorf("failed to create application %q: %w", name, err)
	}
	return domain.NewApplication(id, uuid, name), nil
}

// EnsureUser resolves or creates a tenant's end-user row and returns
// its storage id.
func (r *Repo) EnsureUser(ctx context.Context, appID int64, userUUID string) (int64, error) {
	if userUUID == "" {
		return 0, nil
	}
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM application_users WHERE application_id = ? AND uuid = ?`,
		appID, userUUID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to resolve user %q: %w", userUUID, err)
	}

	now := r.now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO application_users (uuid, application_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, userUUID, appID, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create user %q: %w", userUUID, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to create user %q: %w", userUUID, err)
	}
	return id, nil
}
