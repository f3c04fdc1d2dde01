package iiif

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/folia-dh/folia/pkg/config"
	"github.com/folia-dh/folia/pkg/log"
)

// Normalization rejection reasons. Both are record-level: the caller logs
// and skips the record, the build continues.
var (
	ErrMissingID   = errors.New("manifest has no usable id")
	ErrDuplicateID = errors.New("duplicate manifest id")
)

// Normalizer turns raw manifest JSON into Documents. A Normalizer tracks
// ids seen during one build pass; create a fresh one per pass.
type Normalizer struct {
	repositories []config.RepositoryRule

	datePattern     *regexp.Regexp
	languagePattern *regexp.Regexp
	materialPattern *regexp.Regexp
	authorPattern   *regexp.Regexp

	thumbPattern *regexp.Regexp
	thumbSuffix  string

	seen   map[string]struct{}
	logger *log.Logger
}

// NewNormalizer compiles the configured category and thumbnail patterns.
func NewNormalizer(cfg *config.Config) (*Normalizer, error) {
	n := &Normalizer{
		repositories: cfg.Repositories,
		thumbSuffix:  cfg.Thumbnail.Suffix,
		seen:         make(map[string]struct{}),
		logger:       log.ForComponent("normalizer"),
	}

	var err error
	for _, bind := range []struct {
		category string
		dst      **regexp.Regexp
	}{
		{"date", &n.datePattern},
		{"language", &n.languagePattern},
		{"material", &n.materialPattern},
		{"author", &n.authorPattern},
	} {
		pattern := cfg.PatternFor(bind.category)
		if pattern == "" {
			return nil, fmt.Errorf("no label pattern configured for category %s", bind.category)
		}
		if *bind.dst, err = CompilePattern(pattern); err != nil {
			return nil, fmt.Errorf("compiling %s pattern: %w", bind.category, err)
		}
	}

	if n.thumbPattern, err = regexp.Compile(cfg.Thumbnail.SuffixPattern); err != nil {
		return nil, fmt.Errorf("compiling thumbnail suffix pattern: %w", err)
	}

	return n, nil
}

// Normalize builds one Document from a decoded manifest. Records without a
// usable id, or whose id was already seen in this pass, are rejected with
// ErrMissingID or ErrDuplicateID.
func (n *Normalizer) Normalize(raw map[string]any) (*Document, error) {
	id := JoinValues(ExtractValues(keyValue(raw, "@id")), ", ")
	if id == "" {
		return nil, ErrMissingID
	}
	if _, dup := n.seen[id]; dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	n.seen[id] = struct{}{}

	doc := &Document{
		ID:          id,
		Label:       orNA(ExtractValues(keyValue(raw, "label"))),
		Description: orNA(ExtractValues(keyValue(raw, "description"))),
		Repository:  n.repository(id),
		Thumbnail:   n.thumbnail(raw, id),
	}

	// Absent metadata means N/A for every category; the classifier is
	// not invoked at all.
	if metadata := keyValue(raw, "metadata"); metadata == nil {
		na := []string{NA}
		doc.Date, doc.Language, doc.Material, doc.Author = na, na, na, na
	} else {
		doc.Date = Classify(metadata, n.datePattern)
		doc.Language = Classify(metadata, n.languagePattern)
		doc.Material = Classify(metadata, n.materialPattern)
		doc.Author = Classify(metadata, n.authorPattern)
	}

	return doc, nil
}

// repository resolves the display name from the id using the configured
// substring table. Table order matters: first match wins.
func (n *Normalizer) repository(id string) string {
	for _, rule := range n.repositories {
		if rule.Key != "" && strings.Contains(id, rule.Key) {
			return rule.Name
		}
	}
	return NA
}

// thumbnail walks the optional sequences->canvases->images->resource path
// to the base image URL, preferring a service-level id over the resource
// id, and rewrites the full-size suffix to thumbnail size.
func (n *Normalizer) thumbnail(raw map[string]any, id string) string {
	sequence := indexValue(keyValue(raw, "sequences"), 0)
	canvas := indexValue(keyValue(sequence, "canvases"), 0)
	image := indexValue(keyValue(canvas, "images"), 0)
	resource := keyValue(image, "resource")

	var rawURL any
	if service := keyValue(resource, "service"); service != nil {
		rawURL = keyValue(service, "@id")
	} else {
		rawURL = keyValue(resource, "@id")
	}

	imageURL := JoinValues(ExtractValues(rawURL), "")
	if imageURL == "" {
		n.logger.Warnf("no image URL found for manifest %s", id)
		return ""
	}

	if n.thumbPattern.MatchString(imageURL) {
		return n.thumbPattern.ReplaceAllString(imageURL, n.thumbSuffix)
	}
	return imageURL + n.thumbSuffix
}

func orNA(values []string) []string {
	if len(values) == 0 {
		return []string{NA}
	}
	return values
}

// keyValue safely indexes a JSON object, returning nil for any other shape.
func keyValue(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		return m[key]
	}
	return nil
}

// indexValue safely indexes a JSON array, returning nil for any other shape.
func indexValue(v any, i int) any {
	if s, ok := v.([]any); ok && i >= 0 && i < len(s) {
		return s[i]
	}
	return nil
}
