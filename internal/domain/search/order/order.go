// Package order normalizes user-supplied ordering directives into a
// whitelisted, deterministic sort specification.
package order

import (
	"strings"

	"github.com/kailas-cloud/metarepo/internal/domain"
)

// Column is one normalized sort directive.
type Column struct {
	Name string
	Desc bool
}

// Spec is an ordered list of whitelisted sort columns. An empty spec
// means relevance ordering.
type Spec struct {
	columns []Column
}

var resourceColumns = map[string]struct{}{
	"uuid": {}, "uri": {}, "resource_type": {}, "title": {},
	"created_at": {}, "updated_at": {},
}

var attachmentColumns = map[string]struct{}{
	"uuid": {}, "created_at": {}, "updated_at": {},
}

// Parse normalizes raw ordering tokens for an entity kind. A leading
// '-' marks descending order. The identifier aliases "id" and "uid"
// fold to "uuid". Tokens naming columns outside the kind's whitelist
// are dropped silently so a bad directive can never fail a search.
func Parse(kind domain.Kind, tokens []string) Spec {
	allowed := attachmentColumns
	if kind == domain.KindResource {
		allowed = resourceColumns
	}
	var cols []Column
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		desc := false
		if rest, ok := strings.CutPrefix(tok, "-"); ok {
			desc = true
			tok = rest
		}
		tok = strings.ToLower(tok)
		if tok == "id" || tok == "uid" {
			tok = "uuid"
		}
		if _, ok := allowed[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		cols = append(cols, Column{Name: tok, Desc: desc})
	}
	return Spec{columns: cols}
}

// Columns returns the normalized sort columns.
func (s *Spec) Columns() []Column { return s.columns }

// IsEmpty reports whether no explicit ordering survived normalization,
// in which case results are ordered by relevance.
func (s *Spec) IsEmpty() bool { return len(s.columns) == 0 }

// SQL renders the spec as an ORDER BY clause body with the numeric id
// as the final tie-break, e.g. "title ASC, created_at DESC, id ASC".
// Column names come from a fixed whitelist, never from user input.
func (s *Spec) SQL() string {
	return s.QualifiedSQL("")
}

// QualifiedSQL renders the spec with a table alias prefix for queries
// that join other tables.
func (s *Spec) QualifiedSQL(alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	var sb strings.Builder
	for _, c := range s.columns {
		sb.WriteString(prefix)
		sb.WriteString(c.Name)
		if c.Desc {
			sb.WriteString(" DESC, ")
		} else {
			sb.WriteString(" ASC, ")
		}
	}
	sb.WriteString(prefix)
	sb.WriteString("id ASC")
	return sb.String()
}

// String renders the canonical cache-key form, e.g.
// "title:asc,created_at:desc". Empty specs render as "relevance".
func (s *Spec) String() string {
	if len(s.columns) == 0 {
		return "relevance"
	}
	parts := make([]string, len(s.columns))
	for i, c := range s.columns {
		dir := ":asc"
		if c.Desc {
			dir = ":desc"
		}
		parts[i] = c.Name + dir
	}
	return strings.Join(parts, ",")
}
