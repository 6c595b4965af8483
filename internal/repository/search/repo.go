// Package search implements the match scope over the full-text indexes
// and the relational store.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
	"github.com/kailas-cloud/metarepo/internal/domain/search/query"
	"github.com/kailas-cloud/metarepo/internal/index"
)

// matcher is the consumer interface over the full-text indexes (ISP).
type matcher interface {
	CompileTerms(dict dictionary.Dictionary, terms []string) ([]string, error)
	Match(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, limit int, withScores bool) ([]index.Hit, error)
	Excerpts(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, ids []int64) (map[int64]string, error)
}

// orderer reorders matched id sets by explicit column specs.
type orderer interface {
	OrderIDs(ctx context.Context, kind domain.Kind, ids []int64, spec *order.Spec) ([]int64, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	index      matcher
	records    orderer
	maxResults int
}

// New creates a search repository. maxResults caps the size of any one
// result set.
func New(idx matcher, records orderer, maxResults int) *Repo {
	return &Repo{index: idx, records: records, maxResults: maxResults}
}

// CompileExpression analyzes raw terms into a compiled expression.
func (r *Repo) CompileExpression(ctx context.Context, dict dictionary.Dictionary, terms []string, prefix bool) (query.Expression, error) {
	lexemes, err := r.index.CompileTerms(dict, terms)
	if err != nil {
		return query.Expression{}, fmt.Errorf("failed to compile terms: %w", err)
	}
	return query.New(dict, lexemes, prefix), nil
}

// MatchIDs computes the full ordered id list for one search.
//
// Resource searches widen the scope: a resource matches when its own
// text matches, or when any of its metadata or stats match, with the
// attachment's score credited to the parent. Attachment searches match
// their own kind only. Duplicate parents keep their best score.
func (r *Repo) MatchIDs(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, spec *order.Spec) ([]int64, error) {
	withScores := spec.IsEmpty()

	type scored struct {
		id    int64
		score float64
	}
	best := make(map[int64]float64)

	collect := func(matchKind domain.Kind, toParent bool) error {
		hits, err := r.index.Match(ctx, appID, matchKind, expr, r.maxResults, withScores)
		if err != nil {
			return err
		}
		for _, h := range hits {
			id := h.ID
			if toParent {
				id = h.ResourceID
			}
			if id == 0 {
				continue
			}
			if cur, ok := best[id]; !ok || h.Score > cur {
				best[id] = h.Score
			}
		}
		return nil
	}

	if err := collect(kind, false); err != nil {
		return nil, err
	}
	if kind == domain.KindResource {
		if err := collect(domain.KindMetadata, true); err != nil {
			return nil, err
		}
		if err := collect(domain.KindStats, true); err != nil {
			return nil, err
		}
	}

	if len(best) == 0 {
		return nil, nil
	}

	matched := make([]scored, 0, len(best))
	for id, score := range best {
		matched = append(matched, scored{id: id, score: score})
	}

	if withScores {
		// Relevance order: score descending, numeric id ascending as
		// the deterministic tie-break.
		sort.Slice(matched, func(i, j int) bool {
			if matched[i].score != matched[j].score {
				return matched[i].score > matched[j].score
			}
			return matched[i].id < matched[j].id
		})
		ids := make([]int64, len(matched))
		for i, m := range matched {
			ids[i] = m.id
		}
		return ids, nil
	}

	ids := make([]int64, len(matched))
	for i, m := range matched {
		ids[i] = m.id
	}
	ordered, err := r.records.OrderIDs(ctx, kind, ids, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to order matches: %w", err)
	}
	return ordered, nil
}

// Excerpts extracts highlighted excerpts for the given records.
func (r *Repo) Excerpts(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, ids []int64) (map[int64]string, error) {
	return r.index.Excerpts(ctx, appID, kind, expr, ids)
}
