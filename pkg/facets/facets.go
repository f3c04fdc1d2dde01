// Package facets aggregates sidebar filter entries from a search result set.
package facets

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/folia-dh/folia/pkg/iiif"
)

// ResultsPath is the path sidebar links point at.
const ResultsPath = "/results"

// Entry is one sidebar filter option: a display value, the number of
// documents it covers, and a link narrowing the current results to it.
type Entry struct {
	Value      string `json:"value"`
	SearchLink string `json:"search_link"`
	Count      int    `json:"count"`
}

var linkSanitizer = bluemonday.StrictPolicy()

// stripMarks removes combining marks, folding "Sīnā" to "Sina".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

type group struct {
	label  string // first-seen raw value, used for display
	words  map[string]struct{}
	merged int // count after normalized-key merge, before rollup
	rolled int
}

// Counts aggregates the sidebar entries for one category over a result set.
//
// Documents are grouped by each constituent value of the category field
// (multi-valued fields contribute to every value's group). Question marks
// are stripped so uncertain values group with their plain form. Groups whose
// normalized keys match are merged under the first-seen label; counts of a
// group whose word set contains another group's words roll up into the more
// general group. Entries are ordered by descending count, then ascending
// case-insensitive value.
//
// displayKey is the query parameter a sidebar link sets, e.g. "language";
// params carries the currently active filters the links must preserve.
// Unknown category fields are a caller bug and return an error.
func Counts(docs []*iiif.Document, field, displayKey string, params url.Values) ([]Entry, error) {
	var order []string // normalized keys in first-seen order
	groups := make(map[string]*group)

	for _, doc := range docs {
		values, err := fieldValues(doc, field)
		if err != nil {
			return nil, err
		}
		for _, value := range values {
			value = strings.TrimSpace(strings.ReplaceAll(value, "?", ""))
			if value == "" {
				continue
			}
			key := normalizeKey(value)
			if key == "" {
				continue
			}
			g, seen := groups[key]
			if !seen {
				g = &group{label: value, words: wordSet(key)}
				groups[key] = g
				order = append(order, key)
			}
			g.merged++
		}
	}

	// Rollup: a group whose words are a subset of another group's words is
	// the more general category and absorbs that group's count. Containment
	// is checked in both directions with pre-rollup counts, so chained
	// subsumption cannot inflate totals.
	for _, key := range order {
		g := groups[key]
		g.rolled = g.merged
		for _, otherKey := range order {
			if key == otherKey {
				continue
			}
			other := groups[otherKey]
			if isSubset(g.words, other.words) {
				g.rolled += other.merged
			}
		}
	}

	var entries []Entry
	var done []map[string]struct{}
	for _, key := range order {
		g := groups[key]
		if g.rolled == 0 {
			continue
		}
		// Equal word sets in a different order ("Fes, Morocco" vs
		// "Morocco, Fes") would render as duplicate links; keep the first.
		if containsSet(done, g.words) {
			continue
		}
		done = append(done, g.words)

		entries = append(entries, Entry{
			Value:      g.label,
			SearchLink: buildLink(params, displayKey, g.label),
			Count:      g.rolled,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return strings.ToLower(entries[i].Value) < strings.ToLower(entries[j].Value)
	})
	return entries, nil
}

func fieldValues(doc *iiif.Document, field string) ([]string, error) {
	switch field {
	case "repository":
		if doc.Repository == "" {
			return nil, nil
		}
		return []string{doc.Repository}, nil
	case "language":
		return doc.Language, nil
	case "material":
		return doc.Material, nil
	case "author":
		return doc.Author, nil
	case "date":
		return doc.Date, nil
	default:
		return nil, fmt.Errorf("unknown facet field %q", field)
	}
}

// normalizeKey produces the merge key: diacritics folded, lowercased,
// punctuation replaced by spaces, whitespace collapsed.
func normalizeKey(value string) string {
	folded, _, err := transform.String(stripMarks, value)
	if err != nil {
		folded = value
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		set[w] = struct{}{}
	}
	return set
}

func isSubset(sub, super map[string]struct{}) bool {
	if len(sub) > len(super) {
		return false
	}
	for w := range sub {
		if _, ok := super[w]; !ok {
			return false
		}
	}
	return true
}

func containsSet(sets []map[string]struct{}, set map[string]struct{}) bool {
	for _, s := range sets {
		if len(s) == len(set) && isSubset(set, s) {
			return true
		}
	}
	return false
}

// buildLink renders the sidebar URL: the active filters with displayKey set
// to value. Sanitization can double-encode ampersands, which is undone.
func buildLink(params url.Values, displayKey, value string) string {
	copied := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			copied.Add(k, v)
		}
	}
	copied.Set(displayKey, value)

	link := ResultsPath + "?" + copied.Encode()
	clean := linkSanitizer.Sanitize(link)
	return strings.ReplaceAll(clean, "&amp;", "&")
}
