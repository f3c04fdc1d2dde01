package iiif

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/folia-dh/folia/pkg/log"
)

// sanitizer strips every HTML element; script and style content is dropped
// entirely. Policies are safe for concurrent use.
var sanitizer = bluemonday.StrictPolicy()

var extractLog = log.ForComponent("extract")

var multiSpace = regexp.MustCompile(`[ \t]+`)

// ExtractValues flattens a decoded JSON value of arbitrary shape into an
// ordered sequence of sanitized plain-text strings.
//
// Objects contribute their values (keys discarded, visited in sorted key
// order for determinism), arrays contribute their items in order. String
// and integer leaves are kept, integers stringified; other leaf types are
// dropped. Each leaf is sanitized, reduced to visible text, and whitespace
// normalized; leaves that clean to nothing are dropped.
//
// The function never panics: any failure yields an empty sequence and a
// logged error.
func ExtractValues(value any) (values []string) {
	defer func() {
		if r := recover(); r != nil {
			extractLog.Errorf("extracting values: %v", r)
			values = nil
		}
	}()

	for _, leaf := range flattenScalars(value) {
		cleaned := cleanText(htmlText(sanitizer.Sanitize(leaf)))
		if cleaned != "" {
			values = append(values, cleaned)
		}
	}
	return values
}

// flattenScalars walks nested maps and slices, yielding string leaves and
// stringified integer leaves in a deterministic order.
func flattenScalars(value any) []string {
	var out []string
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, flattenScalars(v[k])...)
		}
	case []any:
		for _, item := range v {
			out = append(out, flattenScalars(item)...)
		}
	case string:
		out = append(out, v)
	case float64:
		// JSON numbers decode as float64; only integral values count.
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			out = append(out, strconv.FormatInt(int64(v), 10))
		}
	case int:
		out = append(out, strconv.Itoa(v))
	case int64:
		out = append(out, strconv.FormatInt(v, 10))
	}
	return out
}

// htmlText parses markup and returns its visible text, unescaping entities.
func htmlText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// cleanText collapses newlines and runs of spaces, trims, and strips
// leading/trailing separator punctuation. The modifier apostrophe U+02BC
// shows up in transliterated Arabic titles and is folded to ASCII.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "ʼ", "'")
	text = multiSpace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, ";,")
	return strings.TrimSpace(text)
}
