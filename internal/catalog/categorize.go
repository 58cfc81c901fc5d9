// Package catalog infers drink categories from free-text names.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Other is the category for names nothing matches.
const Other = "Otros"

// Categorize returns the catalog category for a drink name. Matching is
// case and accent insensitive: exact names first, then keywords.
func Categorize(name string) string {
	key := fold(name)
	if key == "" {
		return Other
	}
	if cat, ok := exactMatch[key]; ok {
		return cat
	}
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(key, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	for _, entry := range keywordMatches {
		if wholeWords[entry.keyword] {
			if words[entry.keyword] {
				return entry.category
			}
			continue
		}
		if strings.Contains(key, entry.keyword) {
			return entry.category
		}
	}
	return Other
}

// fold lowercases s and strips combining accents.
func fold(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(s)))
	var sb strings.Builder
	for _, r := range decomposed {
		if r >= 0x300 && r <= 0x36f {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var exactMatch = map[string]string{
	"cana":      "Cerveza",
	"tercio":    "Cerveza",
	"quinto":    "Cerveza",
	"jarra":     "Cerveza",
	"litrona":   "Cerveza",
	"clara":     "Cerveza",
	"doble":     "Cerveza",
	"pinta":     "Cerveza",
	"cubata":    "Copas",
	"chupito":   "Copas",
	"mojito":    "Cóctel",
	"sangria":   "Vino",
	"calimocho": "Vino",
	"sidra":     "Sidra",
}

// wholeWords are keywords too short to match inside other words:
// "ron" must not fire on "Frontera".
var wholeWords = map[string]bool{
	"ipa":  true,
	"cava": true,
	"gin":  true,
	"ron":  true,
	"rum":  true,
	"shot": true,
}

// keywordMatches is ordered more specific first.
var keywordMatches = []struct {
	keyword  string
	category string
}{
	{"tinto de verano", "Vino"},
	{"cerveza", "Cerveza"},
	{"beer", "Cerveza"},
	{"lager", "Cerveza"},
	{"ipa", "Cerveza"},
	{"stout", "Cerveza"},
	{"vino", "Vino"},
	{"wine", "Vino"},
	{"cava", "Vino"},
	{"champan", "Vino"},
	{"vermut", "Vino"},
	{"sidra", "Sidra"},
	{"cider", "Sidra"},
	{"margarita", "Cóctel"},
	{"daiquiri", "Cóctel"},
	{"caipirinha", "Cóctel"},
	{"spritz", "Cóctel"},
	{"coctel", "Cóctel"},
	{"cocktail", "Cóctel"},
	{"gin", "Copas"},
	{"ron", "Copas"},
	{"rum", "Copas"},
	{"vodka", "Copas"},
	{"whisky", "Copas"},
	{"tequila", "Copas"},
	{"licor", "Copas"},
	{"chupito", "Copas"},
	{"shot", "Copas"},
}
