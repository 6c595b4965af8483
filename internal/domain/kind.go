package domain

// Kind identifies a searchable entity kind.
type Kind string

const (
	// KindResource is a text-bearing resource (title + fetched content).
	KindResource Kind = "resources"
	// KindMetadata is a JSON metadata document attached to a resource.
	KindMetadata Kind = "metadata"
	// KindStats is a JSON statistics document attached to a resource.
	KindStats Kind = "stats"
)

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindResource, KindMetadata, KindStats:
		return true
	}
	return false
}

// Attachment reports whether records of this kind hang off a parent resource.
func (k Kind) Attachment() bool {
	return k == KindMetadata || k == KindStats
}

func (k Kind) String() string { return string(k) }
