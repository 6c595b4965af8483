// Package page computes pagination windows over a totally ordered
// result set.
package page

// Window is the resolved slice of a result list.
type Window struct {
	Start      int
	End        int
	TotalCount int
}

// Resolve computes the window for a 1-based page over total items.
//
// A non-positive perPage yields an empty window with a zero total: the
// caller asked for pages of nothing, so the set is reported as empty.
// A non-positive page, or a page past the end, yields an empty window
// but keeps the true total so clients can still render page counts.
func Resolve(total, pageNum, perPage int) Window {
	if perPage < 1 {
		return Window{}
	}
	if pageNum < 1 {
		return Window{TotalCount: total}
	}
	start := (pageNum - 1) * perPage
	if start >= total {
		return Window{TotalCount: total}
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return Window{Start: start, End: end, TotalCount: total}
}

// IsEmpty reports whether the window selects no items.
func (w Window) IsEmpty() bool { return w.Start == w.End }
