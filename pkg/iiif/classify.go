package iiif

import "regexp"

// CompilePattern compiles a category label pattern for case-insensitive
// matching.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + pattern)
}

// Classify maps free-text metadata entries to a category by matching entry
// labels against labelPattern.
//
// metadata is the raw decoded "metadata" value of a manifest: a sequence of
// {label, value} objects. Entries missing either field, or whose label or
// value cleans to nothing, are skipped. The values of every matching entry
// are extracted in metadata order and concatenated.
//
// Returns ["N/A"] when metadata is not a well-formed sequence or nothing
// matches. Never returns an empty sequence and never panics.
func Classify(metadata any, labelPattern *regexp.Regexp) []string {
	entries, ok := metadata.([]any)
	if !ok {
		return []string{NA}
	}

	var out []string
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		rawLabel, hasLabel := m["label"]
		rawValue, hasValue := m["value"]
		if !hasLabel || !hasValue {
			continue
		}
		label := JoinValues(ExtractValues(rawLabel), " ")
		if label == "" || !labelPattern.MatchString(label) {
			continue
		}
		values := ExtractValues(rawValue)
		if len(values) == 0 {
			continue
		}
		out = append(out, values...)
	}

	if len(out) == 0 {
		return []string{NA}
	}
	return out
}
