package index

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"experts-geo/core/utils"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Matchable field names, in report order.
const (
	FieldTitle    = "title"
	FieldAbstract = "abstract"
	FieldDate     = "date"
	FieldFunder   = "funder"
	FieldExperts  = "experts"
)

// fuzzyMinRunes is the shortest term matched by edit distance.
const fuzzyMinRunes = 5

var quoted = regexp.MustCompile(`"([^"]+)"`)

// Query is a parsed keyword: quoted phrases plus bare terms, all folded.
type Query struct {
	Phrases []string
	Terms   []string
}

// ParseQuery splits keyword into quoted phrases and whitespace separated terms.
func ParseQuery(keyword string) Query {
	var q Query
	for _, m := range quoted.FindAllStringSubmatch(keyword, -1) {
		if p := utils.CollapseSpace(utils.Fold(m[1])); p != "" {
			q.Phrases = append(q.Phrases, p)
		}
	}
	rest := quoted.ReplaceAllString(keyword, " ")
	rest = strings.ReplaceAll(rest, `"`, " ")
	for _, t := range strings.Fields(utils.Fold(rest)) {
		q.Terms = append(q.Terms, t)
	}
	return q
}

// Empty reports whether the query has nothing to match.
func (q Query) Empty() bool {
	return len(q.Phrases) == 0 && len(q.Terms) == 0
}

// GetMatchedFields returns the fields of entry matched by keyword. Every phrase
// and term must match somewhere in the entry; otherwise nothing is returned.
// Phrases match as case and accent insensitive substrings. Terms match as
// substrings or, when at least five runes long, within edit distance one of a word.
func GetMatchedFields(entry Entry, keyword string) []string {
	return ParseQuery(keyword).Match(entry)
}

// Match applies the query to an entry. See GetMatchedFields.
func (q Query) Match(entry Entry) []string {
	if q.Empty() {
		return nil
	}

	names := make([]string, 0, len(entry.RelatedExperts))
	for _, r := range entry.RelatedExperts {
		names = append(names, r.Name)
	}
	fields := []struct {
		name string
		text string
	}{
		{FieldTitle, entry.Title},
		{FieldAbstract, entry.Abstract},
		{FieldDate, entry.Date()},
		{FieldFunder, entry.Funder},
		{FieldExperts, strings.Join(names, " ")},
	}

	tokens := len(q.Phrases) + len(q.Terms)
	hit := make([]bool, tokens)
	var matched []string

	for _, f := range fields {
		if f.text == "" {
			continue
		}
		text := utils.CollapseSpace(utils.Fold(f.text))
		words := strings.FieldsFunc(text, isSeparator)
		fieldHit := false

		for i, p := range q.Phrases {
			if strings.Contains(text, p) {
				hit[i] = true
				fieldHit = true
			}
		}
		for j, t := range q.Terms {
			if termMatches(t, text, words) {
				hit[len(q.Phrases)+j] = true
				fieldHit = true
			}
		}
		if fieldHit {
			matched = append(matched, f.name)
		}
	}

	for _, h := range hit {
		if !h {
			return nil
		}
	}
	return matched
}

func termMatches(term, text string, words []string) bool {
	if strings.Contains(text, term) {
		return true
	}
	if utf8.RuneCountInString(term) < fuzzyMinRunes {
		return false
	}
	for _, w := range words {
		if fuzzy.LevenshteinDistance(term, w) <= 1 {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', ',', '.', ';', ':', '(', ')', '[', ']', '"', '\'', '!', '?', '/':
		return true
	}
	return false
}
