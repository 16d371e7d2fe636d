package vm

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSnapshotNotFound indicates the requested snapshot doesn't exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ---------------------------------------------------------------------------
// SnapshotStore: content-addressed image storage
// ---------------------------------------------------------------------------

// SnapshotStore persists heap images in a SQLite database, keyed by the
// SHA-256 of the image bytes. Identical images share one row regardless of
// how often they are saved; names are labels over content, not identities.
type SnapshotStore struct {
	db *sql.DB
	mu sync.Mutex
}

// SnapshotInfo describes one stored image.
type SnapshotInfo struct {
	Hash      string
	Name      string
	Size      int
	CreatedAt time.Time
}

// OpenSnapshotStore opens (creating if needed) a snapshot database at path.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		hash       TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		image      BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores an image under the given name and returns its content hash.
// Saving the same bytes again refreshes the name and timestamp only.
func (s *SnapshotStore) Save(name string, image []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256(image)
	hash := hex.EncodeToString(sum[:])

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO snapshots (hash, name, image, created_at) VALUES (?, ?, ?, ?)",
		hash, name, image, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot %s: %w", name, err)
	}
	return hash, nil
}

// Load retrieves image bytes by content hash.
func (s *SnapshotStore) Load(hash string) ([]byte, error) {
	var image []byte
	err := s.db.QueryRow("SELECT image FROM snapshots WHERE hash = ?", hash).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot %s: %w", hash, err)
	}

	// Verify content addressing on the way out.
	sum := sha256.Sum256(image)
	if hex.EncodeToString(sum[:]) != hash {
		return nil, fmt.Errorf("snapshot %s: stored bytes do not match hash", hash)
	}
	return image, nil
}

// LoadByName retrieves the most recently saved image with the given name.
func (s *SnapshotStore) LoadByName(name string) ([]byte, error) {
	var image []byte
	err := s.db.QueryRow(
		"SELECT image FROM snapshots WHERE name = ? ORDER BY created_at DESC LIMIT 1",
		name,
	).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot %s: %w", name, err)
	}
	return image, nil
}

// List returns metadata for every stored snapshot, newest first.
func (s *SnapshotStore) List() ([]SnapshotInfo, error) {
	rows, err := s.db.Query(
		"SELECT hash, name, length(image), created_at FROM snapshots ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Hash, &info.Name, &info.Size, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a snapshot by hash. Returns ErrSnapshotNotFound if no row
// matched.
func (s *SnapshotStore) Delete(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM snapshots WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
