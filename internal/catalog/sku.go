package catalog

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cbg-gallery/portal/internal/platform/textutil"
)

const (
	skuSuffixLength   = 4
	skuMaxInitials    = 4
	skuFallbackLength = 3
	skuNamespace      = "CBG"
	skuUnknownArtist  = "ART"
)

// SKUGenerator derives short stock codes from an artist name.
type SKUGenerator struct {
	// Namespaced selects the CBG-{initials}-{suffix} form.
	Namespaced bool
	Clock      func() time.Time
}

// Generate returns a SKU for artistName. A non-empty seed makes the suffix reproducible;
// otherwise it comes from the current time.
func (g SKUGenerator) Generate(artistName, seed string) string {
	clock := g.Clock
	if clock == nil {
		clock = time.Now
	}
	initials := SKUInitials(artistName)
	suffix := skuSuffix(seed, clock())
	if g.Namespaced {
		return skuNamespace + "-" + initials + "-" + suffix
	}
	return initials + suffix
}

// GenerateSKU returns the plain {initials}{suffix} form.
func GenerateSKU(artistName, seed string) string {
	return SKUGenerator{}.Generate(artistName, seed)
}

// GenerateNamespacedSKU returns the CBG-{initials}-{suffix} form.
func GenerateNamespacedSKU(artistName, seed string) string {
	return SKUGenerator{Namespaced: true}.Generate(artistName, seed)
}

// SKUInitials takes the first letter of up to four name parts split on whitespace and hyphens.
// Names yielding fewer than two letters fall back to their first three characters.
func SKUInitials(artistName string) string {
	name := strings.TrimSpace(textutil.StripDiacritics(artistName))
	if name == "" {
		return skuUnknownArtist
	}
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})

	initials := make([]rune, 0, skuMaxInitials)
	for _, part := range parts {
		if len(initials) == skuMaxInitials {
			break
		}
		r, _ := utf8.DecodeRuneInString(part)
		initials = append(initials, unicode.ToUpper(r))
	}
	if len(initials) >= 2 {
		return string(initials)
	}

	runes := []rune(strings.ToUpper(name))
	if len(runes) > skuFallbackLength {
		runes = runes[:skuFallbackLength]
	}
	return string(runes)
}

func skuSuffix(seed string, now time.Time) string {
	var encoded string
	if seed = strings.TrimSpace(seed); seed != "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(seed))
		encoded = strconv.FormatUint(uint64(h.Sum32()), 36)
	} else {
		encoded = strconv.FormatInt(now.UnixMilli(), 36)
	}
	encoded = strings.ToUpper(encoded)
	if len(encoded) < skuSuffixLength {
		encoded = strings.Repeat("0", skuSuffixLength-len(encoded)) + encoded
	}
	return encoded[len(encoded)-skuSuffixLength:]
}
