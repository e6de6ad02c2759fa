package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// QueueItemRecord is the persisted shape of queue.Item (spec.md §3, §6.5).
// Kept separate from the queue package's own Item type so internal/store
// has no import-time dependency on internal/queue; the queue package
// converts between the two.
type QueueItemRecord struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	SiteName         string    `json:"siteName"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
	AddedAt          time.Time `json:"addedAt"`
}

// SaveQueue replaces the persisted queue list and current index in one
// transaction (spec.md §6.5: "one key, serialised as an ordered list").
func (s *Store) SaveQueue(items []QueueItemRecord, currentIndex int) {
	tx, err := s.db.Begin()
	if err != nil {
		s.log.Warn("store: save queue: begin tx failed", "err", err)
		return
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM queue_items`); err != nil {
		s.log.Warn("store: save queue: clear failed", "err", err)
		return
	}
	for i, item := range items {
		blob, err := json.Marshal(item)
		if err != nil {
			s.log.Warn("store: save queue: encode item failed", "id", item.ID, "err", err)
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO queue_items (position, id, record) VALUES (?, ?, ?)`,
			i, item.ID, string(blob),
		); err != nil {
			s.log.Warn("store: save queue: insert item failed", "id", item.ID, "err", err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO queue_meta (id, current_index) VALUES (0, ?)
		 ON CONFLICT(id) DO UPDATE SET current_index = excluded.current_index`,
		currentIndex,
	); err != nil {
		s.log.Warn("store: save queue: meta failed", "err", err)
		return
	}
	if err := tx.Commit(); err != nil {
		s.log.Warn("store: save queue: commit failed", "err", err)
	}
}

// LoadQueue returns the persisted queue list in order, and the persisted
// current index (-1 if never saved).
func (s *Store) LoadQueue() ([]QueueItemRecord, int) {
	rows, err := s.db.Query(`SELECT record FROM queue_items ORDER BY position ASC`)
	if err != nil {
		s.log.Warn("store: load queue failed", "err", err)
		return nil, -1
	}
	defer rows.Close()

	var items []QueueItemRecord
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			s.log.Warn("store: load queue: scan failed", "err", err)
			continue
		}
		var item QueueItemRecord
		if err := json.Unmarshal([]byte(blob), &item); err != nil {
			s.log.Warn("store: load queue: decode failed", "err", err)
			continue
		}
		items = append(items, item)
	}

	currentIndex := -1
	var idx int
	if err := s.db.QueryRow(`SELECT current_index FROM queue_meta WHERE id = 0`).Scan(&idx); err == nil {
		currentIndex = idx
	} else if err != sql.ErrNoRows {
		s.log.Warn("store: load queue: meta failed", "err", err)
	}
	return items, currentIndex
}
