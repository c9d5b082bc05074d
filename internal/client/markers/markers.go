// Package markers persists last-opened timestamps across client restarts.
// Each marker is a key/value row in a small local sqlite database, keyed the
// same way regardless of which device wrote it.
package markers

import (
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

const (
	chatKeyPrefix    = "lastOpenedChatById:"
	notificationsKey = "lastOpenedNotifications"
)

type Store struct {
	db *sql.DB
}

// Open creates or opens the marker database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS markers (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) set(key string, t time.Time) error {
	_, err := s.db.Exec(`INSERT INTO markers (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value=excluded.value`,
		key, t.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) get(key string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM markers WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A corrupt value reads as "never opened" rather than an error.
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SetChatOpened records when the conversation with partnerID was last viewed.
func (s *Store) SetChatOpened(partnerID string, t time.Time) error {
	return s.set(chatKeyPrefix+partnerID, t)
}

// ChatOpened returns the last-opened time for a conversation. ok is false
// when the chat has never been opened on this device.
func (s *Store) ChatOpened(partnerID string) (t time.Time, ok bool, err error) {
	return s.get(chatKeyPrefix + partnerID)
}

func (s *Store) SetNotificationsOpened(t time.Time) error {
	return s.set(notificationsKey, t)
}

func (s *Store) NotificationsOpened() (t time.Time, ok bool, err error) {
	return s.get(notificationsKey)
}
