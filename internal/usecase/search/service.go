// Package search orchestrates the full-text search pipeline: compile,
// match, order, cache, paginate, highlight.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
	"github.com/kailas-cloud/metarepo/internal/domain/search/highlight"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
	"github.com/kailas-cloud/metarepo/internal/domain/search/page"
	"github.com/kailas-cloud/metarepo/internal/domain/search/query"
	"github.com/kailas-cloud/metarepo/internal/domain/search/result"
)

// Params are one search invocation's inputs, already defaulted by the
// caller. Page and PerPage are used as given: requesting pages of
// nothing, or a page past the end, is answered rather than corrected.
type Params struct {
	Kind      domain.Kind
	Query     string
	Language  string
	Prefix    bool
	Order     []string
	Page      int
	PerPage   int
	Highlight bool
}

// Service runs searches for one entity kind at a time.
type Service struct {
	repo    Repository
	records RecordLoader
	cache   Cache
	window  time.Duration
	now     func() time.Time
}

// New creates a search service. window bounds how long a cached result
// id list is served before matching runs again.
func New(repo Repository, records RecordLoader, cache Cache, window time.Duration) *Service {
	return &Service{repo: repo, records: records, cache: cache, window: window, now: time.Now}
}

// Search executes one search and returns the requested page.
//
// The full ordered id list is computed once per freshness window and
// cached; page requests within the window slice the same list, so
// paging through a result set is stable even while writes land.
func (s *Service) Search(ctx context.Context, app domain.Application, p *Params) (result.Result, error) {
	if !p.Kind.Valid() {
		return result.Result{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRecord, p.Kind)
	}

	expr, err := s.compile(ctx, p)
	if err != nil {
		return result.Result{}, err
	}
	if expr.IsEmpty() {
		return result.New(nil, 0, p.Page, p.PerPage), nil
	}

	spec := order.Parse(p.Kind, p.Order)

	ids, err := s.matchedIDs(ctx, app.ID(), p.Kind, &expr, &spec)
	if err != nil {
		return result.Result{}, err
	}

	w := page.Resolve(len(ids), p.Page, p.PerPage)
	if w.IsEmpty() {
		return result.New(nil, w.TotalCount, p.Page, p.PerPage), nil
	}
	pageIDs := ids[w.Start:w.End]

	recs, err := s.records.LoadByIDs(ctx, p.Kind, pageIDs)
	if err != nil {
		return result.Result{}, fmt.Errorf("failed to load result page: %w", err)
	}

	if p.Highlight {
		recs, err = s.highlightPage(ctx, app.ID(), p.Kind, &expr, pageIDs, recs)
		if err != nil {
			return result.Result{}, err
		}
	}

	return result.New(recs, w.TotalCount, p.Page, p.PerPage), nil
}

// compile turns raw query text into a compiled expression, consulting
// the expression cache first. An empty or all-stop-word query compiles
// to the empty expression.
func (s *Service) compile(ctx context.Context, p *Params) (query.Expression, error) {
	dict := dictionary.Resolve(p.Language)

	terms := query.Terms(p.Query)
	if len(terms) == 0 {
		return query.New(dict, nil, p.Prefix), nil
	}

	if expr, ok := s.cache.GetExpression(ctx, dict, p.Query, p.Prefix); ok {
		return expr, nil
	}

	expr, err := s.repo.CompileExpression(ctx, dict, terms, p.Prefix)
	if err != nil {
		return query.Expression{}, fmt.Errorf("failed to compile query: %w", err)
	}
	s.cache.PutExpression(ctx, p.Query, &expr)
	return expr, nil
}

// matchedIDs returns the full ordered id list for a search, serving a
// cached list while it is fresh and recomputing otherwise. Concurrent
// recomputation is benign: both writers produce the same list and the
// later timestamp wins.
func (s *Service) matchedIDs(ctx context.Context, appID int64, kind domain.Kind, expr *query.Expression, spec *order.Spec) ([]int64, error) {
	exprHash := expr.Hash()
	orderKey := spec.String()

	if ts, ok := s.cache.FreshTimestamp(ctx, appID, kind, exprHash, orderKey); ok {
		if s.now().Unix()-ts < int64(s.window.Seconds()) {
			if ids, ok := s.cache.IDs(ctx, appID, kind, exprHash, orderKey, ts); ok {
				return ids, nil
			}
		}
	}

	ids, err := s.repo.MatchIDs(ctx, appID, kind, *expr, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to match: %w", err)
	}
	s.cache.StoreIDs(ctx, appID, kind, exprHash, orderKey, s.now().Unix(), ids, s.window)
	return ids, nil
}

// highlightPage annotates the page's records with decorated excerpts.
// Records the highlighter produced nothing for stay unannotated.
func (s *Service) highlightPage(ctx context.Context, appID int64, kind domain.Kind, expr *query.Expression, ids []int64, recs []record.Record) ([]record.Record, error) {
	excerpts, err := s.repo.Excerpts(ctx, appID, kind, *expr, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to extract excerpts: %w", err)
	}
	out := make([]record.Record, len(recs))
	for i := range recs {
		if ex, ok := excerpts[recs[i].ID()]; ok {
			out[i] = recs[i].WithHighlight(highlight.Decorate(recs[i].FullText(), ex))
		} else {
			out[i] = recs[i]
		}
	}
	return out, nil
}
