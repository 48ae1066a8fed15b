package textutil

import "testing"

func TestStripDiacritics(t *testing.T) {
	cases := map[string]string{
		"Renée Müller": "Renee Muller",
		"Ñandú":        "Nandu",
		"plain":        "plain",
	}
	for input, want := range cases {
		if got := StripDiacritics(input); got != want {
			t.Fatalf("StripDiacritics(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{name: "artist type", input: "Jane Doe - Painting", limit: 0, want: "Jane-Doe---Painting"},
		{name: "diacritics and punctuation", input: "  Zoë O'Brien & Co.  ", limit: 0, want: "Zoe-OBrien-Co"},
		{name: "collapses whitespace", input: "a \t  b", limit: 0, want: "a-b"},
		{name: "capped", input: "abcdefghij klm", limit: 11, want: "abcdefghij"},
		{name: "non latin dropped", input: "東京 Tokyo", limit: 0, want: "Tokyo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.input, tt.limit); got != tt.want {
				t.Fatalf("Slug(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
