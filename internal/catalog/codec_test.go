package catalog

import (
	"strings"
	"testing"

	"github.com/cbg-gallery/portal/internal/domain"
)

func TestDescriptionRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		record domain.ArtworkRecord
	}{
		{
			name: "all fields",
			record: domain.ArtworkRecord{
				Description: "  Evening light over the harbor.\nSigned on verso.  ",
				Medium:      "Oil on canvas",
				Height:      "24",
				Width:       "36",
				Discounts:   "10% for members",
			},
		},
		{
			name:   "no free text",
			record: domain.ArtworkRecord{Medium: "Bronze", DimensionsText: `12" x 8" x 6"`},
		},
		{
			name:   "empty medium and dimensions",
			record: domain.ArtworkRecord{Description: "Untitled study"},
		},
		{
			name:   "label word inside a sentence",
			record: domain.ArtworkRecord{Description: "A study of medium: and form", Medium: "Charcoal", Height: "9", Width: "12"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded := DecodeDescription(EncodeDescription(tc.record))
			if decoded.Medium != tc.record.Medium {
				t.Fatalf("medium: expected %q, got %q", tc.record.Medium, decoded.Medium)
			}
			if decoded.Dimensions != tc.record.Dimensions() {
				t.Fatalf("dimensions: expected %q, got %q", tc.record.Dimensions(), decoded.Dimensions)
			}
			if decoded.Discounts != tc.record.Discounts {
				t.Fatalf("discounts: expected %q, got %q", tc.record.Discounts, decoded.Discounts)
			}
			want := strings.TrimSpace(tc.record.Description)
			if decoded.CleanDescription != want {
				t.Fatalf("description: expected %q, got %q", want, decoded.CleanDescription)
			}
		})
	}
}

func TestEncodeDescriptionLayout(t *testing.T) {
	got := EncodeDescription(domain.ArtworkRecord{
		Description: "Harbor at dusk",
		Medium:      "Oil",
		Height:      "24",
		Width:       "36",
	})
	want := "Harbor at dusk\n\nMedium: Oil\nDimensions: 24\" x 36\""
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDecodeDescriptionFromHTML(t *testing.T) {
	html := `<p>Harbor at dusk &amp; dawn</p><p>Medium: Oil &amp; wax<br/>DIMENSIONS: 24&quot; x 36&quot;<br>Discounts: 5% &lt;members&gt;</p>`
	decoded := DecodeDescription(html)

	if decoded.CleanDescription != "Harbor at dusk & dawn" {
		t.Fatalf("unexpected clean description %q", decoded.CleanDescription)
	}
	if decoded.Medium != "Oil & wax" {
		t.Fatalf("unexpected medium %q", decoded.Medium)
	}
	if decoded.Dimensions != `24" x 36"` {
		t.Fatalf("unexpected dimensions %q", decoded.Dimensions)
	}
	if decoded.Height != "24" || decoded.Width != "36" {
		t.Fatalf("unexpected height/width %q/%q", decoded.Height, decoded.Width)
	}
	if decoded.Discounts != "5% <members>" {
		t.Fatalf("unexpected discounts %q", decoded.Discounts)
	}
}

func TestParseDimensions(t *testing.T) {
	cases := []struct {
		in            string
		height, width string
	}{
		{`24" x 36"`, "24", "36"},
		{"10.5 X 8", "10.5", "8"},
		{"3' x 4'", "3", "4"},
		{"large", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		h, w := ParseDimensions(tc.in)
		if h != tc.height || w != tc.width {
			t.Fatalf("ParseDimensions(%q) = %q, %q; want %q, %q", tc.in, h, w, tc.height, tc.width)
		}
	}
}

func TestDecodeDescriptionWithoutLabels(t *testing.T) {
	decoded := DecodeDescription("Just a note")
	if decoded.CleanDescription != "Just a note" || decoded.Medium != "" || decoded.Dimensions != "" {
		t.Fatalf("unexpected decode %#v", decoded)
	}
}
