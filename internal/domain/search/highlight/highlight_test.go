package highlight

import "testing"

func TestJoinAndStrip(t *testing.T) {
	joined := Join([]string{"<mark>quick</mark> fox", "lazy <mark>dog</mark>"})
	want := "<mark>quick</mark> fox &hellip; lazy <mark>dog</mark>"
	if joined != want {
		t.Errorf("Join = %q, want %q", joined, want)
	}
	if got := Strip(joined); got != "quick fox &hellip; lazy dog" {
		t.Errorf("Strip = %q", got)
	}
}

func TestDecorate(t *testing.T) {
	full := "quick brown fox jumps over the lazy dog"

	cases := []struct {
		name    string
		excerpt string
		want    string
	}{
		{
			"interior excerpt gets both ellipses",
			"<mark>brown</mark> fox",
			"&hellip; <mark>brown</mark> fox &hellip;",
		},
		{
			"excerpt at text start gets only trailing ellipsis",
			"<mark>quick</mark> brown",
			"<mark>quick</mark> brown &hellip;",
		},
		{
			"excerpt at text end gets only leading ellipsis",
			"lazy <mark>dog</mark>",
			"&hellip; lazy <mark>dog</mark>",
		},
		{
			"full-text excerpt is untouched",
			"quick brown fox jumps over the lazy <mark>dog</mark>",
			"quick brown fox jumps over the lazy <mark>dog</mark>",
		},
		{
			"empty excerpt stays empty",
			"",
			"",
		},
	}
	for _, c := range cases {
		if got := Decorate(full, c.excerpt); got != c.want {
			t.Errorf("%s: Decorate = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestDecorateIsIdempotent(t *testing.T) {
	full := "quick brown fox jumps over the lazy dog"
	once := Decorate(full, "<mark>brown</mark> fox")
	twice := Decorate(full, once)
	if once != twice {
		t.Errorf("Decorate is not idempotent: %q vs %q", once, twice)
	}
}

func TestDecorateMultiFragment(t *testing.T) {
	full := "quick brown fox jumps over the lazy dog"
	excerpt := Join([]string{"quick <mark>brown</mark>", "lazy <mark>dog</mark>"})
	got := Decorate(full, excerpt)
	// First fragment touches the start, last touches the end.
	if got != excerpt {
		t.Errorf("Decorate = %q, want unchanged %q", got, excerpt)
	}
}
