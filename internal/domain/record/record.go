// Package record defines the searchable entity value object shared by
// resources, metadata and stats.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
)

// Record is one searchable entity row (immutable value object).
//
// The numeric ID is storage-assigned and stable; it is the cache and
// ordering tie-break identity. The UUID is the tenant-scoped public
// identifier. For attachment kinds (metadata, stats) the parent resource
// title/content are hydrated alongside the row because the search index
// vector of an attachment embeds the parent text.
type Record struct {
	id                int64
	kind              domain.Kind
	uuid              string
	applicationID     int64
	applicationUserID int64
	resourceID        int64
	formatID          int64
	language          string

	uri          string
	resourceType string
	title        string
	content      string

	value     json.RawMessage
	valueText string

	parentTitle   string
	parentContent string

	createdAt time.Time
	updatedAt time.Time

	highlight    string
	hasHighlight bool
}

// NewResource validates and creates a resource record.
func NewResource(uuid, uri, resourceType, title, content string, applicationID, formatID int64) (Record, error) {
	if uuid == "" {
		return Record{}, fmt.Errorf("%w: uuid is required", domain.ErrInvalidRecord)
	}
	if uri == "" {
		return Record{}, fmt.Errorf("%w: uri is required", domain.ErrInvalidRecord)
	}
	if resourceType == "" {
		return Record{}, fmt.Errorf("%w: resource type is required", domain.ErrInvalidRecord)
	}
	if content == "" {
		return Record{}, fmt.Errorf("%w: content is required", domain.ErrInvalidRecord)
	}
	if applicationID == 0 {
		return Record{}, fmt.Errorf("%w: owning application is required", domain.ErrInvalidRecord)
	}
	return Record{
		kind:          domain.KindResource,
		uuid:          uuid,
		uri:           uri,
		resourceType:  resourceType,
		title:         title,
		content:       content,
		applicationID: applicationID,
		formatID:      formatID,
	}, nil
}

// NewAttachment validates and creates a metadata or stats record.
func NewAttachment(kind domain.Kind, uuid string, value json.RawMessage, applicationID, resourceID, formatID int64) (Record, error) {
	if !kind.Attachment() {
		return Record{}, fmt.Errorf("%w: %s is not an attachment kind", domain.ErrInvalidRecord, kind)
	}
	if uuid == "" {
		return Record{}, fmt.Errorf("%w: uuid is required", domain.ErrInvalidRecord)
	}
	if len(value) == 0 {
		return Record{}, fmt.Errorf("%w: value is required", domain.ErrInvalidRecord)
	}
	if !json.Valid(value) {
		return Record{}, fmt.Errorf("%w: value is not valid JSON", domain.ErrInvalidRecord)
	}
	if applicationID == 0 {
		return Record{}, fmt.Errorf("%w: owning application is required", domain.ErrInvalidRecord)
	}
	if resourceID == 0 {
		return Record{}, fmt.Errorf("%w: parent resource is required", domain.ErrInvalidRecord)
	}
	return Record{
		kind:          kind,
		uuid:          uuid,
		value:         value,
		valueText:     RenderJSONText(value),
		applicationID: applicationID,
		resourceID:    resourceID,
		formatID:      formatID,
	}, nil
}

// Reconstruct creates a record without validation (storage hydration).
func Reconstruct(
	id int64, kind domain.Kind, uuid string,
	applicationID, applicationUserID, resourceID, formatID int64,
	language, uri, resourceType, title, content string,
	value json.RawMessage, parentTitle, parentContent string,
	createdAt, updatedAt time.Time,
) Record {
	return Record{
		id: id, kind: kind, uuid: uuid,
		applicationID: applicationID, applicationUserID: applicationUserID,
		resourceID: resourceID, formatID: formatID,
		language: language, uri: uri, resourceType: resourceType,
		title: title, content: content,
		value: value, valueText: RenderJSONText(value),
		parentTitle: parentTitle, parentContent: parentContent,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the storage-assigned identity.
func (r *Record) ID() int64 { return r.id }

// Kind returns the entity kind.
func (r *Record) Kind() domain.Kind { return r.kind }

// UUID returns the tenant-scoped public identifier.
func (r *Record) UUID() string { return r.uuid }

// ApplicationID returns the owning tenant identity.
func (r *Record) ApplicationID() int64 { return r.applicationID }

// ApplicationUserID returns the owning end-user identity, 0 when unowned.
func (r *Record) ApplicationUserID() int64 { return r.applicationUserID }

// ResourceID returns the parent resource identity for attachment kinds.
func (r *Record) ResourceID() int64 { return r.resourceID }

// FormatID returns the format reference.
func (r *Record) FormatID() int64 { return r.formatID }

// Language returns the record language name, empty when none.
func (r *Record) Language() string { return r.language }

// URI returns the resource URI.
func (r *Record) URI() string { return r.uri }

// ResourceType returns the resource type.
func (r *Record) ResourceType() string { return r.resourceType }

// Title returns the resource title.
func (r *Record) Title() string { return r.title }

// Content returns the resource body text.
func (r *Record) Content() string { return r.content }

// Value returns the raw JSON payload of an attachment.
func (r *Record) Value() json.RawMessage { return r.value }

// ValueText returns the attachment payload rendered to searchable text.
func (r *Record) ValueText() string { return r.valueText }

// ParentTitle returns the hydrated parent resource title.
func (r *Record) ParentTitle() string { return r.parentTitle }

// ParentContent returns the hydrated parent resource content.
func (r *Record) ParentContent() string { return r.parentContent }

// CreatedAt returns the creation timestamp.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last update timestamp.
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// Highlight returns the search excerpt annotation, if present. Records
// loaded outside a search context carry no highlight.
func (r *Record) Highlight() (string, bool) { return r.highlight, r.hasHighlight }

// WithHighlight returns a copy annotated with a search excerpt. The
// With* constructors take value receivers so copies chain.
func (r Record) WithHighlight(h string) Record {
	r.highlight = h
	r.hasHighlight = true
	return r
}

// WithID returns a copy carrying a storage identity, used when a
// validated replacement targets an existing row.
func (r Record) WithID(id int64) Record {
	r.id = id
	return r
}

// WithLanguage returns a copy with the language name set.
func (r Record) WithLanguage(lang string) Record {
	r.language = lang
	return r
}

// FullText returns the record's searchable text in index weight order.
// Highlight boundary comparison relies on this exact concatenation.
func (r *Record) FullText() string {
	switch r.kind {
	case domain.KindMetadata:
		return joinText(r.parentTitle, r.valueText, r.parentContent)
	case domain.KindStats:
		return joinText(r.parentTitle, r.parentContent, r.valueText)
	default:
		return joinText(r.title, r.content)
	}
}

func joinText(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// RenderJSONText flattens a JSON value into space-separated scalar text,
// the attachment analogue of indexing a document body. Object keys are
// skipped; only values contribute lexemes.
func RenderJSONText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	var sb strings.Builder
	appendJSONText(&sb, v)
	return strings.TrimSpace(sb.String())
}

func appendJSONText(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case string:
		if t != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(t)
		}
	case json.Number:
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.String())
	case float64:
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), "."))
	case bool:
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case []any:
		for _, e := range t {
			appendJSONText(sb, e)
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			appendJSONText(sb, t[k])
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
