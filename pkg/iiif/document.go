// Package iiif normalizes IIIF manifest JSON into the fixed document schema
// indexed by folia.
//
// Manifests are arbitrarily nested JSON written by many institutions with
// no shared metadata vocabulary, so normalization is built from three
// layers: a field extractor that flattens any JSON value into sanitized
// plain-text strings, a metadata classifier that maps free-text labels to
// logical categories by regex, and a normalizer that composes both into one
// document per manifest.
package iiif

import "strings"

// NA is the placeholder stored when a field has no usable value.
const NA = "N/A"

// MultiValueSeparator joins logically set-valued fields for storage.
const MultiValueSeparator = " | "

// Document is the normalized unit stored in the index. Multi-valued fields
// are ordered slices; storage joins them with MultiValueSeparator.
type Document struct {
	// ID is the manifest identifier, unique across a build pass.
	ID string

	Label       []string
	Description []string

	// Categories derived from free-text metadata labels.
	Date     []string
	Language []string
	Material []string
	Author   []string

	// Repository is the display name matched from the id, or NA.
	Repository string

	// Thumbnail is the derived thumbnail URL, empty when no image was
	// found in the manifest.
	Thumbnail string
}

// JoinValues renders a multi-valued field for storage or display.
func JoinValues(values []string, sep string) string {
	return strings.Join(values, sep)
}

// SplitValues undoes MultiValueSeparator joining, dropping empty parts.
func SplitValues(stored string) []string {
	if stored == "" {
		return nil
	}
	parts := strings.Split(stored, MultiValueSeparator)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
