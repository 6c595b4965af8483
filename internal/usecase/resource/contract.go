package resource

import (
	"context"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

// Repository defines the storage contract for resources.
type Repository interface {
	CreateResource(ctx context.Context, rec *record.Record, userID int64) (record.Record, error)
	UpdateResource(ctx context.Context, rec *record.Record) (record.Record, error)
	GetResource(ctx context.Context, appID int64, uuid string) (record.Record, error)
	ListResources(ctx context.Context, appID int64, spec *order.Spec, limit, offset int) ([]record.Record, int, error)
	Delete(ctx context.Context, kind domain.Kind, id int64) error
	AttachmentsOfResource(ctx context.Context, kind domain.Kind, resourceID int64) ([]record.Record, error)
}

// Indexer keeps the full-text indexes in step with the store.
type Indexer interface {
	IndexRecord(rec *record.Record) error
	IndexBatch(kind domain.Kind, recs []record.Record) error
	DeleteRecord(kind domain.Kind, id int64) error
}

// UserResolver resolves a tenant's end-user identifier to a storage id.
type UserResolver interface {
	EnsureUser(ctx context.Context, appID int64, userUUID string) (int64, error)
}
