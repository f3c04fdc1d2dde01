// Package search executes catalog queries against a built index.
//
// # Overview
//
// A request is query text plus up to four facet filters (repository,
// language, material, author) and a page number. The service cleans the
// text, renders an FTS5 MATCH expression (quoted prefix terms for tokens,
// column-scoped phrases for filters, implicit AND), scans the full match
// set, sorts it in natural id order, and slices out the requested page.
//
// # Caching
//
// The total count and the facet sidebar require the full match set and are
// the expensive part of a request. They are cached keyed by the cleaned
// query and filter set, with the page excluded, so requests that only turn
// pages hit the cache. The unfiltered catalog gets a long TTL since it only
// changes on rebuild; filtered aggregates get a short one.
//
// # Concurrency
//
// The service reads an immutable index and is safe for unlimited concurrent
// callers. Cache population is not exclusive: concurrent misses recompute
// the same aggregates, which is idempotent.
package search
