package catalog

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/cbg-gallery/portal/internal/domain"
)

// Labels of the structured lines appended to item descriptions.
const (
	labelMedium     = "Medium"
	labelDimensions = "Dimensions"
	labelDiscounts  = "Discounts"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	htmlBreakPattern  = regexp.MustCompile(`(?i)<br\s*/?>|</p\s*>`)
	dimensionsPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*["']?\s*x\s*(\d+(?:\.\d+)?)`)
	labelPatterns     = map[string]*regexp.Regexp{
		labelMedium:     labelLinePattern(labelMedium),
		labelDimensions: labelLinePattern(labelDimensions),
		labelDiscounts:  labelLinePattern(labelDiscounts),
	}
	stripPolicy = bluemonday.StrictPolicy()
)

func labelLinePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*` + label + `:[ \t]*([^\n]*?)[ \t]*(?:\n|$)`)
}

// DecodedDescription holds the fields recovered from a provider description.
type DecodedDescription struct {
	CleanDescription string
	Medium           string
	Dimensions       string
	Discounts        string
	Height           string
	Width            string
}

// EncodeDescription renders the record's free text followed by the labeled attribute block.
// The Medium and Dimensions lines are always present; Discounts only when set.
func EncodeDescription(record domain.ArtworkRecord) string {
	lines := []string{
		labelMedium + ": " + strings.TrimSpace(record.Medium),
		labelDimensions + ": " + record.Dimensions(),
	}
	if discounts := strings.TrimSpace(record.Discounts); discounts != "" {
		lines = append(lines, labelDiscounts+": "+discounts)
	}
	block := strings.Join(lines, "\n")

	text := strings.TrimSpace(record.Description)
	if text == "" {
		return block
	}
	return text + "\n\n" + block
}

// DecodeDescription recovers the labeled attributes from text, which may be plain text or HTML.
// Each matched label line is removed from the returned clean description.
func DecodeDescription(text string) DecodedDescription {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if htmlTagPattern.MatchString(text) {
		text = htmlToText(text)
	}

	var out DecodedDescription
	text, out.Medium = extractLabel(text, labelMedium)
	text, out.Dimensions = extractLabel(text, labelDimensions)
	text, out.Discounts = extractLabel(text, labelDiscounts)
	out.CleanDescription = strings.TrimSpace(text)
	out.Height, out.Width = ParseDimensions(out.Dimensions)
	return out
}

// ParseDimensions reads "<height> x <width>" with optional inch or foot marks. Unparseable input
// yields empty strings.
func ParseDimensions(dimensions string) (height, width string) {
	match := dimensionsPattern.FindStringSubmatch(dimensions)
	if match == nil {
		return "", ""
	}
	return match[1], match[2]
}

func htmlToText(text string) string {
	text = htmlBreakPattern.ReplaceAllString(text, "\n")
	text = stripPolicy.Sanitize(text)
	return html.UnescapeString(text)
}

func extractLabel(text, label string) (string, string) {
	loc := labelPatterns[label].FindStringSubmatchIndex(text)
	if loc == nil {
		return text, ""
	}
	value := strings.TrimSpace(text[loc[2]:loc[3]])
	return text[:loc[0]] + text[loc[1]:], value
}
