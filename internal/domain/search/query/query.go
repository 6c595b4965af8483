// Package query defines compiled full-text query expressions.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
)

// reserved characters are stripped from raw terms before analysis so
// user input can never smuggle query operators.
const reserved = `'"\:&|!()<>*?`

// Terms splits raw query text on whitespace and strips reserved
// characters. Terms that become empty after stripping are dropped.
func Terms(raw string) []string {
	fields := strings.Fields(raw)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if strings.ContainsRune(reserved, r) {
				return -1
			}
			return r
		}, f)
		if cleaned != "" {
			terms = append(terms, cleaned)
		}
	}
	return terms
}

// Expression is a compiled query: the lexemes produced by analyzing the
// raw terms with a dictionary, combined conjunctively. A prefix
// expression matches lexemes by prefix instead of exact equality.
type Expression struct {
	dict    dictionary.Dictionary
	lexemes []string
	prefix  bool
}

// New creates a compiled expression. Empty lexeme lists are allowed and
// yield an expression that matches nothing.
func New(dict dictionary.Dictionary, lexemes []string, prefix bool) Expression {
	return Expression{dict: dict, lexemes: lexemes, prefix: prefix}
}

// Dictionary returns the dictionary the expression was compiled with.
func (e *Expression) Dictionary() dictionary.Dictionary { return e.dict }

// Lexemes returns the analyzed lexemes in query order.
func (e *Expression) Lexemes() []string { return e.lexemes }

// Prefix reports whether lexemes match by prefix.
func (e *Expression) Prefix() bool { return e.prefix }

// IsEmpty reports whether the expression matches nothing.
func (e *Expression) IsEmpty() bool { return len(e.lexemes) == 0 }

// String renders the canonical conjunctive form, e.g. "quick & fox" or
// "quick:* & fox:*" for prefix expressions. The canonical form is the
// cacheable identity of the compiled query.
func (e *Expression) String() string {
	if len(e.lexemes) == 0 {
		return ""
	}
	parts := e.lexemes
	if e.prefix {
		parts = make([]string, len(e.lexemes))
		for i, l := range e.lexemes {
			parts[i] = l + ":*"
		}
	}
	return strings.Join(parts, " & ")
}

// Hash returns a short stable digest of the dictionary and canonical
// form, suitable as a cache key component.
func (e *Expression) Hash() string {
	sum := sha256.Sum256([]byte(e.dict.String() + "\x00" + e.String()))
	return hex.EncodeToString(sum[:12])
}

// Parse rebuilds an expression from its canonical form. It is the
// inverse of String for the same dictionary and backs the compiled
// query cache.
func Parse(dict dictionary.Dictionary, canonical string) Expression {
	if canonical == "" {
		return Expression{dict: dict}
	}
	parts := strings.Split(canonical, " & ")
	lexemes := make([]string, 0, len(parts))
	prefix := false
	for _, p := range parts {
		if l, ok := strings.CutSuffix(p, ":*"); ok {
			prefix = true
			p = l
		}
		if p != "" {
			lexemes = append(lexemes, p)
		}
	}
	return Expression{dict: dict, lexemes: lexemes, prefix: prefix}
}
