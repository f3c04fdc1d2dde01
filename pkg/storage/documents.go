// Package storage persists normalized manifest documents in a SQLite
// database with an FTS5 full-text index.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/folia-dh/folia/pkg/iiif"
	"github.com/folia-dh/folia/pkg/log"
)

// Searchable document fields, in schema order. Facet filters address these
// as FTS5 column queries.
var SearchFields = []string{"label", "description", "date", "language", "material", "author", "repository"}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    description TEXT NOT NULL,
    date TEXT NOT NULL,
    language TEXT NOT NULL,
    material TEXT NOT NULL,
    author TEXT NOT NULL,
    repository TEXT NOT NULL,
    thumbnail TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    label,
    description,
    date,
    language,
    material,
    author,
    repository,
    content='documents',
    content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);
`

// DocumentStorage wraps the SQLite database holding the search index.
type DocumentStorage struct {
	db     *sql.DB
	logger *log.Logger
}

// NewDocumentStorage opens (creating if needed) the index database at dbPath
// and ensures the schema exists.
func NewDocumentStorage(dbPath string) (*DocumentStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &DocumentStorage{
		db:     db,
		logger: log.ForComponent("storage"),
	}, nil
}

// OpenReadOnly opens an existing index database for querying. The database
// must already exist and carry the schema.
func OpenReadOnly(dbPath string) (*DocumentStorage, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening database read-only: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 30000"); err != nil {
		return nil, fmt.Errorf("applying busy_timeout: %w", err)
	}
	return &DocumentStorage{
		db:     db,
		logger: log.ForComponent("storage"),
	}, nil
}

func (s *DocumentStorage) Close() error {
	return s.db.Close()
}

// Reset removes every document, leaving the schema in place. A full rebuild
// calls this before reindexing.
func (s *DocumentStorage) Reset() error {
	if _, err := s.db.Exec(`INSERT INTO documents_fts(documents_fts) VALUES('delete-all')`); err != nil {
		return fmt.Errorf("clearing FTS index: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

// StoreDocuments writes a batch of documents in a single transaction.
// Multi-valued fields are stored pipe-joined.
func (s *DocumentStorage) StoreDocuments(docs []*iiif.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				s.logger.Warnf("failed to rollback transaction: %v", err)
			}
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO documents (id, label, description, date, language, material, author, repository, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			s.logger.Warnf("failed to close statement: %v", err)
		}
	}()

	ftsStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO documents_fts (rowid, label, description, date, language, material, author, repository)
		VALUES ((SELECT rowid FROM documents WHERE id = ?), ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing FTS statement: %w", err)
	}
	defer func() {
		if err := ftsStmt.Close(); err != nil {
			s.logger.Warnf("failed to close FTS statement: %v", err)
		}
	}()

	sep := iiif.MultiValueSeparator
	for _, doc := range docs {
		label := iiif.JoinValues(doc.Label, sep)
		description := iiif.JoinValues(doc.Description, sep)
		date := iiif.JoinValues(doc.Date, sep)
		language := iiif.JoinValues(doc.Language, sep)
		material := iiif.JoinValues(doc.Material, sep)
		author := iiif.JoinValues(doc.Author, sep)

		if _, err := stmt.Exec(doc.ID, label, description, date, language, material, author, doc.Repository, doc.Thumbnail); err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
		if _, err := ftsStmt.Exec(doc.ID, label, description, date, language, material, author, doc.Repository); err != nil {
			return fmt.Errorf("inserting document %s into FTS: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

const documentColumns = "id, label, description, date, language, material, author, repository, thumbnail"

// SearchDocuments runs an FTS5 MATCH query and returns every matching
// document ordered by id. An empty match returns the full catalog.
func (s *DocumentStorage) SearchDocuments(match string) ([]*iiif.Document, error) {
	var rows *sql.Rows
	var err error

	if match != "" {
		rows, err = s.db.Query(`
			SELECT d.id, d.label, d.description, d.date, d.language, d.material, d.author, d.repository, d.thumbnail
			FROM documents d
			JOIN documents_fts fts ON d.rowid = fts.rowid
			WHERE documents_fts MATCH ?
			ORDER BY d.id`, match)
	} else {
		rows, err = s.db.Query(`
			SELECT ` + documentColumns + `
			FROM documents
			ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	var docs []*iiif.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetDocument fetches a single document by id, or nil when absent.
func (s *DocumentStorage) GetDocument(id string) (*iiif.Document, error) {
	row := s.db.QueryRow(`
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CountDocuments returns the total number of indexed documents.
func (s *DocumentStorage) CountDocuments() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// GetStats returns index-level statistics: the total document count and
// per-repository counts.
func (s *DocumentStorage) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	total, err := s.CountDocuments()
	if err != nil {
		return nil, err
	}
	stats["total_documents"] = total

	rows, err := s.db.Query(`
		SELECT repository, COUNT(*)
		FROM documents
		GROUP BY repository
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("counting repositories: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warnf("failed to close rows: %v", err)
		}
	}()

	repos := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scanning repository count: %w", err)
		}
		repos[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats["repositories"] = repos

	return stats, nil
}

// Optimize merges the FTS index structure and refreshes query planner stats.
func (s *DocumentStorage) Optimize() error {
	if _, err := s.db.Exec(`INSERT INTO documents_fts(documents_fts) VALUES('optimize')`); err != nil {
		return fmt.Errorf("optimizing FTS index: %w", err)
	}
	_, err := s.db.Exec("PRAGMA optimize")
	return err
}

// WALCheckpoint truncates the write-ahead log after a build finishes.
func (s *DocumentStorage) WALCheckpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*iiif.Document, error) {
	var id, label, description, date, language, material, author, repository string
	var thumbnail sql.NullString

	err := row.Scan(&id, &label, &description, &date, &language, &material, &author, &repository, &thumbnail)
	if err != nil {
		return nil, err
	}

	return &iiif.Document{
		ID:          id,
		Label:       iiif.SplitValues(label),
		Description: iiif.SplitValues(description),
		Date:        iiif.SplitValues(date),
		Language:    iiif.SplitValues(language),
		Material:    iiif.SplitValues(material),
		Author:      iiif.SplitValues(author),
		Repository:  repository,
		Thumbnail:   thumbnail.String,
	}, nil
}
