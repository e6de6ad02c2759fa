// Package store implements the durable persistence spec.md §4.9 (Content
// Store) and §4.10 (Settings Store) describe, plus the Queue's own list
// persistence (§6.5). It is grounded on the WAL-mode single-connection
// sqlite idiom in MatchaCake-LiveSub's internal/auth/store.go, using
// github.com/mattn/go-sqlite3 the way the teacher's go.mod already pulls
// it in (unwired in the teacher; wired here for the spec's persistence
// layer).
//
// Every write here is fire-and-forget by policy (spec.md §4.9, §9
// "Persistence is lossy by policy"): Save/Delete/Clear swallow storage
// failures and LoadContent returns nil on a miss or a storage error alike
// — a non-replayable item is a UX inconvenience, not a correctness fault.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/charmbracelet/log"
)

// Store is the single sqlite-backed handle shared by the Content Store,
// Settings Store, and Queue list persistence. One connection only: sqlite
// allows a single writer, and nothing here is on a latency-sensitive path
// that would benefit from a pool (mirrors MatchaCake-LiveSub's
// db.SetMaxOpenConns(1)).
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open creates or attaches to the sqlite database at path, running
// migrations for the content, settings, and queue tables.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, log: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS content_store (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			record TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS queue_items (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			record TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS queue_meta (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			current_index INTEGER NOT NULL DEFAULT -1
		);
	`)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentDocument is what the Content Store persists per QueueItem id
// (spec.md §4.9): everything the Engine needs to reload a non-URL item
// without re-running the Normaliser.
type ContentDocument struct {
	Title            string   `json:"title"`
	Markdown         string   `json:"markdown"`
	Paragraphs       []string `json:"paragraphs"`
	TextContent      string   `json:"textContent"`
	Lang             string   `json:"lang"`
	HTMLLang         string   `json:"htmlLang"`
	SiteName         string   `json:"siteName"`
	Excerpt          string   `json:"excerpt"`
	WordCount        int      `json:"wordCount"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}

// SaveContent persists doc under id. Storage failures are logged and
// swallowed per spec.md §4.9 — a save is not a correctness dependency.
func (s *Store) SaveContent(id string, doc ContentDocument) {
	blob, err := json.Marshal(doc)
	if err != nil {
		s.log.Warn("store: encode content failed", "id", id, "err", err)
		return
	}
	if _, err := s.db.Exec(
		`INSERT INTO content_store (id, document) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document`,
		id, string(blob),
	); err != nil {
		s.log.Warn("store: save content failed", "id", id, "err", err)
	}
}

// LoadContent returns the document saved under id, or nil if missing or
// unreadable (spec.md §4.9: "return null for load").
func (s *Store) LoadContent(id string) *ContentDocument {
	var blob string
	err := s.db.QueryRow(`SELECT document FROM content_store WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Warn("store: load content failed", "id", id, "err", err)
		}
		return nil
	}
	var doc ContentDocument
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		s.log.Warn("store: decode content failed", "id", id, "err", err)
		return nil
	}
	return &doc
}

// DeleteContent removes the document saved under id, silently no-op on
// failure or absence.
func (s *Store) DeleteContent(id string) {
	if _, err := s.db.Exec(`DELETE FROM content_store WHERE id = ?`, id); err != nil {
		s.log.Warn("store: delete content failed", "id", id, "err", err)
	}
}

// ClearContent empties the content store.
func (s *Store) ClearContent() {
	if _, err := s.db.Exec(`DELETE FROM content_store`); err != nil {
		s.log.Warn("store: clear content failed", "err", err)
	}
}
