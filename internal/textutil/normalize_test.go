package textutil_test

import (
	"testing"

	"mycinema/internal/textutil"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t", ""},
		{"case folding", "APOKALYPSA", "apokalypsa"},
		{"trailing year and lone z", "Apokalypsa z 2022", "apokalypsa"},
		{"diacritics", "Vesničko má středisková", "vesnickomastrediskova"},
		{"subtitle after colon", "Star Wars: Epizoda IV – Nová naděje", "starwars"},
		{"subtitle after dash", "Spider-Man", "spider"},
		{"subtitle after slash", "AC/DC", "ac"},
		{"roman sequel", "Rocky II", "rocky"},
		{"roman sequel triple", "Rocky III", "rocky"},
		{"numeric sequel", "Rocky 2", "rocky"},
		{"trailing year", "Tenet 2020", "tenet"},
		{"punctuation removed", "Pelíšky!", "pelisky"},
		{"apostrophe", "Schindler's List", "schindlerslist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textutil.Normalize(tt.input); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeCollapsesVariants(t *testing.T) {
	a := textutil.Normalize("Apokalypsa z 2022")
	b := textutil.Normalize("APOKALYPSA")
	if a != b {
		t.Fatalf("expected variants to share a key, got %q and %q", a, b)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, input := range []string{"Pelíšky", "Rocky II", "Star Wars: Epizoda IV", "Apokalypsa z 2022"} {
		once := textutil.Normalize(input)
		if twice := textutil.Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestRemoveDiacritics(t *testing.T) {
	tests := map[string]string{
		"Pelíšky":       "Pelisky",
		"Amélie":        "Amelie",
		"Žluťoučký kůň": "Zlutoucky kun",
		"plain":         "plain",
		"":              "",
	}
	for input, want := range tests {
		if got := textutil.RemoveDiacritics(input); got != want {
			t.Fatalf("RemoveDiacritics(%q) = %q, want %q", input, got, want)
		}
	}
}
