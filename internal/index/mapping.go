package index

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/da"
	"github.com/blevesearch/bleve/v2/analysis/lang/de"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/analysis/lang/fi"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/analysis/lang/hu"
	"github.com/blevesearch/bleve/v2/analysis/lang/it"
	"github.com/blevesearch/bleve/v2/analysis/lang/nl"
	"github.com/blevesearch/bleve/v2/analysis/lang/no"
	"github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/analysis/lang/ro"
	"github.com/blevesearch/bleve/v2/analysis/lang/ru"
	"github.com/blevesearch/bleve/v2/analysis/lang/sv"
	"github.com/blevesearch/bleve/v2/analysis/lang/tr"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
)

// Indexed field names. Resources index title and content; attachments
// index the parent resource text around their own rendered value.
const (
	fieldDictionary    = "dictionary"
	fieldApplicationID = "application_id"
	fieldResourceID    = "resource_id"
	fieldTitle         = "title"
	fieldContent       = "content"
	fieldParentTitle   = "parent_title"
	fieldValue         = "value"
	fieldParentContent = "parent_content"
)

// analyzers maps each dictionary to its bleve analyzer.
var analyzers = map[dictionary.Dictionary]string{
	dictionary.Simple:     simple.Name,
	dictionary.Danish:     da.AnalyzerName,
	dictionary.Dutch:      nl.AnalyzerName,
	dictionary.English:    en.AnalyzerName,
	dictionary.Finnish:    fi.AnalyzerName,
	dictionary.French:     fr.AnalyzerName,
	dictionary.German:     de.AnalyzerName,
	dictionary.Hungarian:  hu.AnalyzerName,
	dictionary.Italian:    it.AnalyzerName,
	dictionary.Norwegian:  no.AnalyzerName,
	dictionary.Portuguese: pt.AnalyzerName,
	dictionary.Romanian:   ro.AnalyzerName,
	dictionary.Russian:    ru.AnalyzerName,
	dictionary.Spanish:    es.AnalyzerName,
	dictionary.Swedish:    sv.AnalyzerName,
	dictionary.Turkish:    tr.AnalyzerName,
}

// analyzerFor returns the bleve analyzer name for a dictionary.
func analyzerFor(d dictionary.Dictionary) string {
	if name, ok := analyzers[d]; ok {
		return name
	}
	return simple.Name
}

// fieldWeight is a query-time boost for one indexed text field.
type fieldWeight struct {
	field string
	boost float64
}

// Rank weights follow the classic A/B/C/D document weighting scheme:
// 1.0 for the primary text, decreasing for supporting text.
var kindWeights = map[domain.Kind][]fieldWeight{
	domain.KindResource: {
		{fieldTitle, 1.0},
		{fieldContent, 0.1},
	},
	domain.KindMetadata: {
		{fieldParentTitle, 1.0},
		{fieldValue, 0.4},
		{fieldParentContent, 0.2},
	},
	domain.KindStats: {
		{fieldParentTitle, 1.0},
		{fieldParentContent, 0.2},
		{fieldValue, 0.1},
	},
}

// weightsFor returns the weighted text fields of a kind, in rank order.
func weightsFor(kind domain.Kind) []fieldWeight {
	return kindWeights[kind]
}

// buildMapping creates the index mapping for an entity kind. Each
// dictionary gets its own document mapping whose text fields use that
// dictionary's analyzer; the document's "dictionary" field selects the
// mapping at index time. This makes a record's text stem in the
// record's own language while queries analyze with the caller's
// requested dictionary, which is exactly how lexemes end up comparable
// across languages.
func buildMapping(kind domain.Kind) *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.TypeField = fieldDictionary
	m.DefaultAnalyzer = simple.Name

	for _, d := range dictionary.All() {
		m.AddDocumentMapping(d.String(), kindDocMapping(kind, analyzerFor(d)))
	}
	m.DefaultMapping = kindDocMapping(kind, simple.Name)
	return m
}

func kindDocMapping(kind domain.Kind, analyzer string) *mapping.DocumentMapping {
	dm := bleve.NewDocumentMapping()

	dictField := bleve.NewKeywordFieldMapping()
	dictField.IncludeInAll = false
	dm.AddFieldMappingsAt(fieldDictionary, dictField)

	appField := bleve.NewKeywordFieldMapping()
	appField.IncludeInAll = false
	dm.AddFieldMappingsAt(fieldApplicationID, appField)

	// Text fields are stored with term vectors so the highlighter can
	// cut fragments with match locations.
	for _, w := range weightsFor(kind) {
		tf := bleve.NewTextFieldMapping()
		tf.Analyzer = analyzer
		tf.Store = true
		tf.IncludeTermVectors = true
		tf.IncludeInAll = false
		dm.AddFieldMappingsAt(w.field, tf)
	}

	if kind.Attachment() {
		rf := bleve.NewNumericFieldMapping()
		rf.Store = true
		rf.Index = false
		rf.IncludeInAll = false
		dm.AddFieldMappingsAt(fieldResourceID, rf)
	}

	return dm
}
