package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
	"github.com/kailas-cloud/metarepo/internal/domain/search/query"
)

// Repository defines the index contract for search operations.
type Repository interface {
	CompileExpression(ctx context.Context, dict dictionary.Dictionary, terms []string, prefix bool) (query.Expression, error)
	MatchIDs(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, spec *order.Spec) ([]int64, error)
	Excerpts(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, ids []int64) (map[int64]string, error)
}

// RecordLoader hydrates records for a result page.
type RecordLoader interface {
	LoadByIDs(ctx context.Context, kind domain.Kind, ids []int64) ([]record.Record, error)
}

// Cache is the compiled expression and result id cache. Lookups report
// misses instead of errors; writes are fire-and-forget.
type Cache interface {
	GetExpression(ctx context.Context, dict dictionary.Dictionary, raw string, prefix bool) (query.Expression, bool)
	PutExpression(ctx context.Context, raw string, expr *query.Expression)
	FreshTimestamp(ctx context.Context, appID int64, kind domain.Kind, exprHash, orderKey string) (int64, bool)
	IDs(ctx context.Context, appID int64, kind domain.Kind, exprHash, orderKey string, ts int64) ([]int64, bool)
	StoreIDs(ctx context.Context, appID int64, kind domain.Kind, exprHash, orderKey string, ts int64, ids []int64, window time.Duration)
}
