package attachment

import (
	"context"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

// Repository defines the storage contract for attachments.
type Repository interface {
	GetResource(ctx context.Context, appID int64, uuid string) (record.Record, error)
	CreateAttachment(ctx context.Context, rec *record.Record, userID int64) (record.Record, error)
	UpdateAttachment(ctx context.Context, rec *record.Record) (record.Record, error)
	GetAttachment(ctx context.Context, kind domain.Kind, appID int64, uuid string) (record.Record, error)
	ListAttachments(ctx context.Context, kind domain.Kind, appID, resourceID int64, spec *order.Spec, limit, offset int) ([]record.Record, int, error)
	Delete(ctx context.Context, kind domain.Kind, id int64) error
}

// Indexer keeps the full-text indexes in step with the store.
type Indexer interface {
	IndexRecord(rec *record.Record) error
	DeleteRecord(kind domain.Kind, id int64) error
}

// UserResolver resolves a tenant's end-user identifier to a storage id.
type UserResolver interface {
	EnsureUser(ctx context.Context, appID int64, userUUID string) (int64, error)
}
