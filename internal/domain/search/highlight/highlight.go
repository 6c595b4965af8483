// Package highlight assembles and decorates search result excerpts.
package highlight

import "strings"

// Markup constants for rendered excerpts.
const (
	StartTag  = "<mark>"
	EndTag    = "</mark>"
	Separator = " &hellip; "
	Ellipsis  = "&hellip;"
)

// Join combines excerpt fragments into a single excerpt string.
func Join(fragments []string) string {
	return strings.Join(fragments, Separator)
}

// Strip removes emphasis markup from an excerpt, leaving the source
// text the fragments were cut from.
func Strip(excerpt string) string {
	excerpt = strings.ReplaceAll(excerpt, StartTag, "")
	return strings.ReplaceAll(excerpt, EndTag, "")
}

// Decorate adds leading and trailing ellipses to an excerpt when it
// does not touch the start or end of the record's full text. The
// comparison strips markup first so emphasis never defeats the
// boundary check. Decorating an already decorated excerpt is a no-op.
func Decorate(fullText, excerpt string) string {
	if excerpt == "" {
		return ""
	}
	fragments := strings.Split(excerpt, Separator)
	first := Strip(fragments[0])
	last := Strip(fragments[len(fragments)-1])

	if !strings.HasPrefix(excerpt, Ellipsis) && !strings.HasPrefix(fullText, first) {
		excerpt = Ellipsis + " " + excerpt
	}
	if !strings.HasSuffix(excerpt, Ellipsis) && !strings.HasSuffix(fullText, last) {
		excerpt = excerpt + " " + Ellipsis
	}
	return excerpt
}
