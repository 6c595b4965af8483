// Package index maintains the per-kind full-text indexes and runs
// lexeme matching, scoring and excerpt extraction over them.
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
	"github.com/kailas-cloud/metarepo/internal/domain/search/highlight"
	"github.com/kailas-cloud/metarepo/internal/domain/search/query"
)

// Hit is a single index match. ResourceID is the parent resource of an
// attachment hit, zero for resource hits.
type Hit struct {
	ID         int64
	Score      float64
	ResourceID int64
}

// Config holds index storage parameters.
type Config struct {
	// Dir is the root directory holding one index per entity kind.
	Dir string
	// InMemory builds throwaway in-process indexes (tests).
	InMemory bool
}

// Manager owns one full-text index per entity kind.
type Manager struct {
	indexes map[domain.Kind]bleve.Index
	// mappings retain the typed mapping implementations so query text
	// can be analyzed with the same analyzers used at index time.
	mappings map[domain.Kind]*mapping.IndexMappingImpl
}

// NewManager opens or creates the per-kind indexes under cfg.Dir.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		indexes:  make(map[domain.Kind]bleve.Index, 3),
		mappings: make(map[domain.Kind]*mapping.IndexMappingImpl, 3),
	}
	for _, kind := range []domain.Kind{domain.KindResource, domain.KindMetadata, domain.KindStats} {
		im := buildMapping(kind)
		idx, err := openIndex(cfg, kind, im)
		if err != nil {
			m.close()
			return nil, fmt.Errorf("failed to open %s index: %w", kind, err)
		}
		m.indexes[kind] = idx
		m.mappings[kind] = im
	}
	return m, nil
}

func openIndex(cfg Config, kind domain.Kind, im mapping.IndexMapping) (bleve.Index, error) {
	if cfg.InMemory {
		return bleve.NewMemOnly(im)
	}
	path := filepath.Join(cfg.Dir, kind.String())
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		return bleve.New(path, im)
	}
	return idx, err
}

// Close releases all index handles.
func (m *Manager) Close() error {
	return m.close()
}

func (m *Manager) close() error {
	var firstErr error
	for kind, idx := range m.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s index: %w", kind, err)
		}
	}
	return firstErr
}

// IndexRecord writes or replaces one record's index document.
func (m *Manager) IndexRecord(rec *record.Record) error {
	idx := m.indexes[rec.Kind()]
	if idx == nil {
		return fmt.Errorf("no index for kind %q", rec.Kind())
	}
	if err := idx.Index(docID(rec.ID()), buildDoc(rec)); err != nil {
		return fmt.Errorf("failed to index %s %d: %w", rec.Kind(), rec.ID(), err)
	}
	return nil
}

// IndexBatch writes many records of one kind in a single batch. Used
// when a parent resource's text changes and its attachments need their
// embedded parent text refreshed.
func (m *Manager) IndexBatch(kind domain.Kind, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}
	idx := m.indexes[kind]
	if idx == nil {
		return fmt.Errorf("no index for kind %q", kind)
	}
	batch := idx.NewBatch()
	for i := range recs {
		if err := batch.Index(docID(recs[i].ID()), buildDoc(&recs[i])); err != nil {
			return fmt.Errorf("failed to batch %s %d: %w", kind, recs[i].ID(), err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply %s batch: %w", kind, err)
	}
	return nil
}

// DeleteRecord removes a record's index document.
func (m *Manager) DeleteRecord(kind domain.Kind, id int64) error {
	idx := m.indexes[kind]
	if idx == nil {
		return fmt.Errorf("no index for kind %q", kind)
	}
	if err := idx.Delete(docID(id)); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	return nil
}

// CompileTerms analyzes raw terms with a dictionary's analyzer and
// returns the resulting lexemes in term order. A term may yield zero
// lexemes (stop words) or several (compound handling).
func (m *Manager) CompileTerms(dict dictionary.Dictionary, terms []string) ([]string, error) {
	im := m.mappings[domain.KindResource]
	analyzer := im.AnalyzerNamed(analyzerFor(dict))
	if analyzer == nil {
		return nil, fmt.Errorf("no analyzer for dictionary %q", dict)
	}
	var lexemes []string
	for _, term := range terms {
		for _, tok := range analyzer.Analyze([]byte(term)) {
			lexemes = append(lexemes, string(tok.Term))
		}
	}
	return lexemes, nil
}

// Match runs a compiled expression against one kind's index, scoped to
// a tenant. Results are capped at limit. When withScores is false the
// index skips scoring entirely.
func (m *Manager) Match(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, limit int, withScores bool) ([]Hit, error) {
	if expr.IsEmpty() {
		return nil, nil
	}
	idx := m.indexes[kind]
	if idx == nil {
		return nil, fmt.Errorf("no index for kind %q", kind)
	}

	req := bleve.NewSearchRequestOptions(m.matchQuery(appID, kind, expr), limit, 0, false)
	if kind.Attachment() {
		req.Fields = []string{fieldResourceID}
	}
	if !withScores {
		req.Score = "none"
		req.SortBy([]string{"_id"})
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s index: %w", kind, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed doc id %q in %s index: %w", h.ID, kind, err)
		}
		hit := Hit{ID: id, Score: h.Score}
		if rid, ok := h.Fields[fieldResourceID].(float64); ok {
			hit.ResourceID = int64(rid)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Excerpts extracts highlighted excerpts for specific records matching
// an expression. Fragments are collected across fields in rank order,
// capped at two per record, and joined into one excerpt string.
func (m *Manager) Excerpts(ctx context.Context, appID int64, kind domain.Kind, expr query.Expression, ids []int64) (map[int64]string, error) {
	if expr.IsEmpty() || len(ids) == 0 {
		return map[int64]string{}, nil
	}
	idx := m.indexes[kind]
	if idx == nil {
		return nil, fmt.Errorf("no index for kind %q", kind)
	}

	docIDs := make([]string, len(ids))
	for i, id := range ids {
		docIDs[i] = docID(id)
	}
	q := bleve.NewConjunctionQuery(m.matchQuery(appID, kind, expr), bquery.NewDocIDQuery(docIDs))

	req := bleve.NewSearchRequestOptions(q, len(ids), 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to highlight in %s index: %w", kind, err)
	}

	excerpts := make(map[int64]string, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed doc id %q in %s index: %w", h.ID, kind, err)
		}
		var fragments []string
		for _, w := range weightsFor(kind) {
			for _, f := range h.Fragments[w.field] {
				if len(fragments) == maxFragments {
					break
				}
				fragments = append(fragments, f)
			}
		}
		if len(fragments) > 0 {
			excerpts[id] = highlight.Join(fragments)
		}
	}
	return excerpts, nil
}

// maxFragments caps the number of excerpt fragments per record.
const maxFragments = 2

// matchQuery builds the tenant-scoped conjunctive lexeme query: every
// lexeme must match at least one weighted field.
func (m *Manager) matchQuery(appID int64, kind domain.Kind, expr query.Expression) bquery.Query {
	conjuncts := make([]bquery.Query, 0, len(expr.Lexemes())+1)

	appQ := bquery.NewTermQuery(strconv.FormatInt(appID, 10))
	appQ.SetField(fieldApplicationID)
	conjuncts = append(conjuncts, appQ)

	for _, lexeme := range expr.Lexemes() {
		fields := weightsFor(kind)
		disjuncts := make([]bquery.Query, 0, len(fields))
		for _, w := range fields {
			if expr.Prefix() {
				pq := bquery.NewPrefixQuery(lexeme)
				pq.SetField(w.field)
				pq.SetBoost(w.boost)
				disjuncts = append(disjuncts, pq)
			} else {
				tq := bquery.NewTermQuery(lexeme)
				tq.SetField(w.field)
				tq.SetBoost(w.boost)
				disjuncts = append(disjuncts, tq)
			}
		}
		conjuncts = append(conjuncts, bquery.NewDisjunctionQuery(disjuncts))
	}
	return bquery.NewConjunctionQuery(conjuncts)
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// buildDoc renders a record into its index document. Attachment text
// embeds the parent resource title and content so attachment matches
// rank against the parent context they live in.
func buildDoc(rec *record.Record) map[string]any {
	doc := map[string]any{
		fieldDictionary:    dictionary.Resolve(rec.Language()).String(),
		fieldApplicationID: strconv.FormatInt(rec.ApplicationID(), 10),
	}
	if rec.Kind().Attachment() {
		doc[fieldParentTitle] = rec.ParentTitle()
		doc[fieldValue] = rec.ValueText()
		doc[fieldParentContent] = rec.ParentContent()
		doc[fieldResourceID] = rec.ResourceID()
	} else {
		doc[fieldTitle] = rec.Title()
		doc[fieldContent] = rec.Content()
	}
	return doc
}
