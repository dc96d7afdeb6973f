// Package store persists saved tracks and their stems in SQLite, with
// audio blobs written to a media directory and addressed by public path.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a track id has no row.
var ErrNotFound = errors.New("store: track not found")

// Track is one saved recording.
type Track struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Title      string    `json:"title"`
	PromptText string    `json:"promptText"`
	MediaURL   string    `json:"mediaUrl"`
	Public     bool      `json:"public"`
	Likes      int       `json:"likes"`
	Plays      int       `json:"plays"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Stem is one separated part of a track.
type Stem struct {
	TrackID  string `json:"trackId"`
	StemType string `json:"stemType"`
	MediaURL string `json:"mediaUrl"`
}

// Store wraps the SQLite database and the media blob directory.
type Store struct {
	mu       sync.RWMutex
	db       *sql.DB
	mediaDir string
}

// Open opens or creates the database and ensures the media directory exists.
func Open(dbPath, mediaDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tracks (
			id          TEXT PRIMARY KEY,
			owner       TEXT NOT NULL,
			title       TEXT NOT NULL,
			prompt_text TEXT DEFAULT '',
			media_url   TEXT NOT NULL,
			public      INTEGER DEFAULT 0,
			likes       INTEGER DEFAULT 0,
			plays       INTEGER DEFAULT 0,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tracks table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stems (
			track_id  TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			stem_type TEXT NOT NULL,
			media_url TEXT NOT NULL,
			PRIMARY KEY (track_id, stem_type)
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create stems table: %w", err)
	}

	return &Store{db: db, mediaDir: mediaDir}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UploadBlob writes an audio blob into the media directory and returns
// its public path. Filenames carry a fresh id so uploads never collide.
func (s *Store) UploadBlob(name string, data []byte) (string, error) {
	fileName := fmt.Sprintf("%s-%s", uuid.NewString(), name)
	fullPath := filepath.Join(s.mediaDir, fileName)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return "/media/" + fileName, nil
}

// SaveTrack inserts one track row.
func (s *Store) SaveTrack(t Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO tracks (id, owner, title, prompt_text, media_url, public)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.Owner, t.Title, t.PromptText, t.MediaURL, boolInt(t.Public))
	if err != nil {
		return fmt.Errorf("save track: %w", err)
	}
	return nil
}

// GetTrack returns one track by id.
func (s *Store) GetTrack(id string) (*Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, owner, title, prompt_text, media_url, public, likes, plays, created_at
		FROM tracks WHERE id = ?
	`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return t, nil
}

// ListTracks returns the most recent tracks, newest first.
func (s *Store) ListTracks(limit int) ([]Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, owner, title, prompt_text, media_url, public, likes, plays, created_at
		FROM tracks ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("list tracks: %w", err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// LikeTrack increments a track's like counter.
func (s *Store) LikeTrack(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE tracks SET likes = likes + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("like track: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPlay increments a track's play counter.
func (s *Store) CountPlay(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE tracks SET plays = plays + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("count play: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddStem records one separated stem for a track.
func (s *Store) AddStem(st Stem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO stems (track_id, stem_type, media_url)
		VALUES (?, ?, ?)
	`, st.TrackID, st.StemType, st.MediaURL)
	if err != nil {
		return fmt.Errorf("add stem: %w", err)
	}
	return nil
}

// StemsForTrack returns all stems recorded for a track.
func (s *Store) StemsForTrack(trackID string) ([]Stem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT track_id, stem_type, media_url FROM stems WHERE track_id = ? ORDER BY stem_type
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("stems for track: %w", err)
	}
	defer rows.Close()

	var stems []Stem
	for rows.Next() {
		var st Stem
		if err := rows.Scan(&st.TrackID, &st.StemType, &st.MediaURL); err != nil {
			return nil, fmt.Errorf("stems for track: %w", err)
		}
		stems = append(stems, st)
	}
	return stems, rows.Err()
}

// ReadBlob loads a blob back by its public path.
func (s *Store) ReadBlob(mediaURL string) ([]byte, error) {
	name := path.Base(mediaURL)
	data, err := os.ReadFile(filepath.Join(s.mediaDir, name))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// MediaDir returns the blob directory for serving over HTTP.
func (s *Store) MediaDir() string {
	return s.mediaDir
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(r rowScanner) (*Track, error) {
	var t Track
	var public int
	var created string
	if err := r.Scan(&t.ID, &t.Owner, &t.Title, &t.PromptText, &t.MediaURL, &public, &t.Likes, &t.Plays, &created); err != nil {
		return nil, err
	}
	t.Public = public != 0
	if ts, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
		t.CreatedAt = ts.UTC()
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
