package search

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"

	"github.com/folia-dh/folia/pkg/cache"
	"github.com/folia-dh/folia/pkg/config"
	"github.com/folia-dh/folia/pkg/facets"
	"github.com/folia-dh/folia/pkg/iiif"
	"github.com/folia-dh/folia/pkg/log"
	"github.com/folia-dh/folia/pkg/storage"
)

// PageSize is the fixed number of documents per result page.
const PageSize = 20

// Facet categories rendered in the sidebar, in display order.
var sidebarCategories = []string{"repository", "language", "material", "author"}

// nonWord collapses query punctuation; FTS5 operators and quotes must never
// reach the index as syntax.
var nonWord = regexp.MustCompile(`\W+`)

// Filters holds the active facet filters of a request. Empty fields are not
// applied (no implicit "match N/A").
type Filters struct {
	Repository string
	Language   string
	Material   string
	Author     string
}

func (f Filters) pairs() [][2]string {
	return [][2]string{
		{"repository", f.Repository},
		{"language", f.Language},
		{"material", f.Material},
		{"author", f.Author},
	}
}

// Results is one page of documents plus the request-wide aggregates.
type Results struct {
	// Documents is the current page, in natural id order.
	Documents []*iiif.Document

	// Total is the match count across all pages.
	Total int

	// Sidebar maps each facet category to its aggregated entries.
	Sidebar map[string][]facets.Entry

	// Page is the 1-based page actually served (after defaulting).
	Page int

	// TotalPages is Total divided into PageSize pages, at least 1.
	TotalPages int
}

// aggregates is the cached portion of a result: everything except the page
// slice itself.
type aggregates struct {
	Total   int
	Sidebar map[string][]facets.Entry
}

// Service answers search requests against a built index. It is safe for
// concurrent use; the underlying storage is read-only.
type Service struct {
	store      *storage.DocumentStorage
	cache      cache.Cache
	resultsTTL time.Duration
	catalogTTL time.Duration
	logger     *log.Logger
}

// NewService wires a query service over an opened document storage.
func NewService(store *storage.DocumentStorage, c cache.Cache, cfg *config.Config) *Service {
	return &Service{
		store:      store,
		cache:      c,
		resultsTTL: cfg.Cache.ResultsTTL.Duration,
		catalogTTL: cfg.Cache.CatalogTTL.Duration,
		logger:     log.ForComponent("search"),
	}
}

// Search runs a text query with facet filters and returns the requested
// page. Empty or "*" query text matches every document. Pages below 1 are
// served as page 1.
func (s *Service) Search(queryText string, filters Filters, page int) (*Results, error) {
	if page < 1 {
		page = 1
	}

	cleaned := CleanQuery(queryText)
	match := buildMatch(cleaned, filters)

	docs, err := s.store.SearchDocuments(match)
	if err != nil {
		return nil, fmt.Errorf("executing search: %w", err)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return natural.Less(docs[i].ID, docs[j].ID)
	})

	agg, err := s.aggregates(cleaned, filters, match, docs)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * PageSize
	var pageDocs []*iiif.Document
	if offset < len(docs) {
		end := offset + PageSize
		if end > len(docs) {
			end = len(docs)
		}
		pageDocs = docs[offset:end]
	}

	totalPages := (agg.Total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return &Results{
		Documents:  pageDocs,
		Total:      agg.Total,
		Sidebar:    agg.Sidebar,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

// ListAll serves the full catalog: a match-all query with no filters.
func (s *Service) ListAll(page int) (*Results, error) {
	return s.Search("", Filters{}, page)
}

// GetDocument returns a single document by id, nil when absent.
func (s *Service) GetDocument(id string) (*iiif.Document, error) {
	return s.store.GetDocument(id)
}

func (s *Service) aggregates(cleaned string, filters Filters, match string, docs []*iiif.Document) (*aggregates, error) {
	key := CacheKey(cleaned, filters)
	if v, ok := s.cache.Get(key); ok {
		if agg, ok := v.(*aggregates); ok {
			return agg, nil
		}
	}
	s.logger.Debugf("aggregate cache miss for %q", key)

	params := linkParams(cleaned, filters)
	sidebar := make(map[string][]facets.Entry, len(sidebarCategories))
	for _, category := range sidebarCategories {
		entries, err := facets.Counts(docs, category, category, params)
		if err != nil {
			return nil, fmt.Errorf("aggregating %s facet: %w", category, err)
		}
		sidebar[category] = entries
	}

	agg := &aggregates{Total: len(docs), Sidebar: sidebar}

	// The unfiltered catalog changes only on rebuild and gets a long TTL;
	// filtered aggregates stay fresh on a short one.
	ttl := s.resultsTTL
	if match == "" {
		ttl = s.catalogTTL
	}
	s.cache.Set(key, agg, ttl)
	return agg, nil
}

// CleanQuery reduces raw query text to space-separated word tokens. A sole
// "*" is the explicit match-all form and cleans to nothing.
func CleanQuery(queryText string) string {
	queryText = nonWord.ReplaceAllString(queryText, " ")
	return strings.Join(strings.Fields(queryText), " ")
}

// CacheKey identifies the aggregate payload for a filter set. Page is
// deliberately excluded: every page of one result set shares its total and
// sidebar.
func CacheKey(cleanedQuery string, filters Filters) string {
	var b strings.Builder
	b.WriteString("search|q=")
	b.WriteString(strings.ToLower(cleanedQuery))
	for _, pair := range filters.pairs() {
		b.WriteString("|")
		b.WriteString(pair[0])
		b.WriteString("=")
		b.WriteString(pair[1])
	}
	return b.String()
}

// buildMatch renders the FTS5 MATCH expression: each query token becomes a
// quoted prefix term, each active filter a column-scoped phrase, all joined
// by implicit AND. An empty expression means match everything.
func buildMatch(cleanedQuery string, filters Filters) string {
	var parts []string
	for _, token := range strings.Fields(cleanedQuery) {
		parts = append(parts, `"`+escapeQuotes(token)+`"*`)
	}
	for _, pair := range filters.pairs() {
		if pair[1] == "" {
			continue
		}
		parts = append(parts, pair[0]+`:"`+escapeQuotes(pair[1])+`"`)
	}
	return strings.Join(parts, " ")
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

func linkParams(cleanedQuery string, filters Filters) url.Values {
	params := url.Values{}
	if cleanedQuery != "" {
		params.Set("search", cleanedQuery)
	}
	for _, pair := range filters.pairs() {
		if pair[1] != "" {
			params.Set(pair[0], pair[1])
		}
	}
	return params
}
