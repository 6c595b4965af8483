// Package result defines the paginated search result value object.
package result

import "github.com/kailas-cloud/metarepo/internal/domain/record"

// Result is one page of a search, plus the total match count of the
// whole result set.
type Result struct {
	records    []record.Record
	totalCount int
	page       int
	perPage    int
}

// New creates a search result page.
func New(records []record.Record, totalCount, page, perPage int) Result {
	return Result{records: records, totalCount: totalCount, page: page, perPage: perPage}
}

// Records returns the records on this page, in result order.
func (r *Result) Records() []record.Record { return r.records }

// TotalCount returns the size of the full result set.
func (r *Result) TotalCount() int { return r.totalCount }

// Page returns the 1-based page number requested.
func (r *Result) Page() int { return r.page }

// PerPage returns the requested page size.
func (r *Result) PerPage() int { return r.perPage }
