package locations

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"experts-geo/core/utils"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// NoLocation is the answer the model gives when a text names no place.
const NoLocation = "N/A"

// DefaultAliases rewrites names the geocoder resolves poorly.
func DefaultAliases() map[string]string {
	return map[string]string{
		"CA":                 "California",
		"California, U.S.A.": "California",
		"the United States":  "USA",
		"U.S.":               "USA",
		"Greenland":          "Greenland, Denmark",
		"East Greenland":     "Greenland, Denmark",
	}
}

// LoadAliases reads a YAML mapping of alias to canonical name.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases file: %w", err)
	}
	var aliases map[string]string
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("failed to parse aliases file %s: %w", path, err)
	}
	return aliases, nil
}

// Normalizer resolves aliases and renders location names consistently.
type Normalizer struct {
	exact  map[string]string
	folded map[string]string
}

// NewNormalizer builds a Normalizer from the default aliases plus extra, which wins on conflicts.
func NewNormalizer(extra map[string]string) *Normalizer {
	n := &Normalizer{exact: map[string]string{}, folded: map[string]string{}}
	for _, src := range []map[string]string{DefaultAliases(), extra} {
		for alias, canonical := range src {
			alias = utils.CollapseSpace(alias)
			n.exact[alias] = canonical
			n.folded[utils.Fold(alias)] = canonical
		}
	}
	return n
}

// Resolve maps a raw extracted name to the query sent to the geocoder.
// It returns "" for empty answers and NoLocation.
func (n *Normalizer) Resolve(raw string) string {
	name := utils.CollapseSpace(strings.Trim(raw, ` "'.`+"`"))
	if name == "" || strings.EqualFold(name, NoLocation) {
		return ""
	}
	if canonical, ok := n.exact[name]; ok {
		return canonical
	}
	if canonical, ok := n.folded[utils.Fold(name)]; ok {
		return canonical
	}
	return name
}

var leadingThe = regexp.MustCompile(`(?i)^the\s+`)

// NormalizeName trims, collapses whitespace, drops a leading "the" and
// title-cases each word. Short all-caps words such as USA or UK are kept.
func NormalizeName(name string) string {
	name = leadingThe.ReplaceAllString(utils.CollapseSpace(name), "")
	if name == "" {
		return ""
	}
	caser := cases.Title(language.Und)
	words := strings.Split(name, " ")
	for i, w := range words {
		if isAcronym(w) {
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

func isAcronym(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return letters >= 2 && letters <= 3
}
