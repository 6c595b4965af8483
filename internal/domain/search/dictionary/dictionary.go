// Package dictionary maps record languages to full-text analysis
// dictionaries.
package dictionary

// Dictionary names a stemming dictionary used to analyze text.
type Dictionary string

// Supported dictionaries. Simple performs no stemming and is the
// fallback for unknown or missing languages.
const (
	Simple     Dictionary = "simple"
	Danish     Dictionary = "danish"
	Dutch      Dictionary = "dutch"
	English    Dictionary = "english"
	Finnish    Dictionary = "finnish"
	French     Dictionary = "french"
	German     Dictionary = "german"
	Hungarian  Dictionary = "hungarian"
	Italian    Dictionary = "italian"
	Norwegian  Dictionary = "norwegian"
	Portuguese Dictionary = "portuguese"
	Romanian   Dictionary = "romanian"
	Russian    Dictionary = "russian"
	Spanish    Dictionary = "spanish"
	Swedish    Dictionary = "swedish"
	Turkish    Dictionary = "turkish"
)

var known = map[Dictionary]struct{}{
	Simple: {}, Danish: {}, Dutch: {}, English: {}, Finnish: {},
	French: {}, German: {}, Hungarian: {}, Italian: {}, Norwegian: {},
	Portuguese: {}, Romanian: {}, Russian: {}, Spanish: {}, Swedish: {},
	Turkish: {},
}

// Resolve maps a language name to its dictionary. Unknown or empty
// languages resolve to Simple so a search always has a dictionary.
func Resolve(language string) Dictionary {
	d := Dictionary(language)
	if _, ok := known[d]; ok {
		return d
	}
	return Simple
}

// IsValid reports whether d is a supported dictionary.
func (d Dictionary) IsValid() bool {
	_, ok := known[d]
	return ok
}

func (d Dictionary) String() string { return string(d) }

// All returns every supported dictionary in stable order.
func All() []Dictionary {
	return []Dictionary{
		Simple, Danish, Dutch, English, Finnish, French, German,
		Hungarian, Italian, Norwegian, Portuguese, Romanian, Russian,
		Spanish, Swedish, Turkish,
	}
}
