package aggregate

import (
	"context"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
)

// Repository defines the cross-tenant read contract.
type Repository interface {
	ResourcesByPublicID(ctx context.Context, uuid string) ([]record.Record, error)
	AttachmentsOfResources(ctx context.Context, kind domain.Kind, resourceIDs []int64) ([]record.Record, error)
}
