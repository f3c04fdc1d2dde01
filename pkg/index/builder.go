// Package index builds the search index from a directory tree of manifest
// JSON files.
package index

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/folia-dh/folia/pkg/config"
	"github.com/folia-dh/folia/pkg/iiif"
	"github.com/folia-dh/folia/pkg/log"
	"github.com/folia-dh/folia/pkg/storage"
)

// Documents are committed in batches of this size to bound transaction
// length and memory during a build.
const batchSize = 100

const (
	databaseFile  = "index.db"
	universesFile = "facets.json"
	timestampFile = "last_build"
)

// DatabasePath returns the index database location under indexDir.
func DatabasePath(indexDir string) string {
	return filepath.Join(indexDir, databaseFile)
}

// Stats summarizes one build pass.
type Stats struct {
	Indexed  int
	Skipped  int
	Duration time.Duration
}

// Universes maps a facet category to the distinct raw values seen during
// the last build. It is a rendering aid only; live counts always come from
// the index itself.
type Universes map[string][]string

// Builder walks a manifest tree and writes the search index plus its
// sidecar files.
type Builder struct {
	cfg    *config.Config
	logger *log.Logger
}

func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:    cfg,
		logger: log.ForComponent("index"),
	}
}

// Build performs a full rebuild: the existing index content is cleared and
// every .json file under the configured files directory is normalized and
// indexed. Malformed or duplicate records are logged and skipped; storage
// failures abort the build.
func (b *Builder) Build() (*Stats, error) {
	start := time.Now()

	if err := os.MkdirAll(b.cfg.IndexDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	store, err := storage.NewDocumentStorage(DatabasePath(b.cfg.IndexDir))
	if err != nil {
		return nil, fmt.Errorf("opening index storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			b.logger.Warnf("failed to close storage: %v", err)
		}
	}()

	if err := store.Reset(); err != nil {
		return nil, fmt.Errorf("clearing previous index: %w", err)
	}

	normalizer, err := iiif.NewNormalizer(b.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating normalizer: %w", err)
	}

	stats := &Stats{}
	universes := newUniverseSets()
	var batch []*iiif.Document

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.StoreDocuments(batch); err != nil {
			return fmt.Errorf("storing batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	walkErr := filepath.WalkDir(b.cfg.FilesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		doc, err := b.normalizeFile(normalizer, path)
		if err != nil {
			b.logger.Warnf("skipping %s: %v", path, err)
			stats.Skipped++
			return nil
		}

		universes.add(doc)
		batch = append(batch, doc)
		stats.Indexed++
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", b.cfg.FilesDir, walkErr)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := store.Optimize(); err != nil {
		b.logger.Warnf("optimizing index: %v", err)
	}
	if err := store.WALCheckpoint(); err != nil {
		b.logger.Warnf("checkpointing WAL: %v", err)
	}

	if err := b.writeSidecars(universes); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	b.logger.Infof("indexed %d documents, skipped %d in %s", stats.Indexed, stats.Skipped, stats.Duration.Round(time.Millisecond))
	return stats, nil
}

// BuildIfStale rebuilds only when source files changed since the last
// build. It reports whether a build ran.
func (b *Builder) BuildIfStale() (*Stats, bool, error) {
	stale, err := NeedsRebuild(b.cfg.FilesDir, b.cfg.IndexDir)
	if err != nil {
		return nil, false, err
	}
	if !stale {
		b.logger.Debugf("index is current, skipping rebuild")
		return nil, false, nil
	}
	stats, err := b.Build()
	if err != nil {
		return nil, false, err
	}
	return stats, true, nil
}

func (b *Builder) normalizeFile(normalizer *iiif.Normalizer, path string) (*iiif.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return normalizer.Normalize(raw)
}

func (b *Builder) writeSidecars(universes universeSets) error {
	data, err := json.MarshalIndent(universes.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling facet universes: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.cfg.IndexDir, universesFile), data, 0644); err != nil {
		return fmt.Errorf("writing facet universes: %w", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	if err := os.WriteFile(filepath.Join(b.cfg.IndexDir, timestampFile), []byte(ts), 0644); err != nil {
		return fmt.Errorf("writing build timestamp: %w", err)
	}
	return nil
}

// NeedsRebuild reports whether any directory or .json file under filesDir
// is newer than the last recorded build, or no usable index exists yet.
func NeedsRebuild(filesDir, indexDir string) (bool, error) {
	if _, err := os.Stat(DatabasePath(indexDir)); err != nil {
		return true, nil
	}

	data, err := os.ReadFile(filepath.Join(indexDir, timestampFile))
	if err != nil {
		return true, nil
	}
	lastBuild, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return true, nil
	}

	stale := false
	err = filepath.WalkDir(filesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if stale {
			return fs.SkipAll
		}
		if !d.IsDir() && !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Unix() > lastBuild {
			stale = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking %s for changes: %w", filesDir, err)
	}
	return stale, nil
}

// LoadUniverses reads the facet universe sidecar written by the last build.
// A missing sidecar yields an empty map.
func LoadUniverses(indexDir string) (Universes, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, universesFile))
	if os.IsNotExist(err) {
		return Universes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading facet universes: %w", err)
	}
	var u Universes
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decoding facet universes: %w", err)
	}
	return u, nil
}

type universeSets map[string]map[string]struct{}

func newUniverseSets() universeSets {
	return universeSets{
		"repository": {},
		"language":   {},
		"material":   {},
		"author":     {},
	}
}

func (u universeSets) add(doc *iiif.Document) {
	u.addValue("repository", doc.Repository)
	for _, v := range doc.Language {
		u.addValue("language", v)
	}
	for _, v := range doc.Material {
		u.addValue("material", v)
	}
	for _, v := range doc.Author {
		u.addValue("author", v)
	}
}

func (u universeSets) addValue(category, value string) {
	if value == "" || value == iiif.NA {
		return
	}
	u[category][value] = struct{}{}
}

func (u universeSets) sorted() Universes {
	out := make(Universes, len(u))
	for category, set := range u {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[category] = values
	}
	return out
}
