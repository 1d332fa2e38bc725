// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kitstore persists finished kits in SQLite so a user can list and
// export what the pipeline produced for them.
package kitstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kit-engine/pkg/types"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "data/kits.db"

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("kit not found")

// ErrNotFinal is returned by Save for anything other than a final kit.
var ErrNotFinal = errors.New("only final kits can be saved")

// SavedKit is one persisted kit with its bookkeeping fields.
type SavedKit struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"user_id" yaml:"user_id"`
	KitTitle  string    `json:"kit_title" yaml:"kit_title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Kit       types.Kit `json:"kit" yaml:"kit"`
}

// Store manages the kits database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at cfg.Path, creating parent
// directories and the schema as needed.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS kits (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kit_title TEXT NOT NULL,
			created_at TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kits_user_created ON kits(user_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores a final kit for userID and returns its new id.
func (s *Store) Save(ctx context.Context, userID string, kit types.Kit) (string, error) {
	if kit.Type != types.KitTypeFinal {
		return "", ErrNotFinal
	}
	payload, err := json.Marshal(kit)
	if err != nil {
		return "", fmt.Errorf("encoding kit: %w", err)
	}

	id := uuid.NewString()
	created := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kits (id, user_id, kit_title, created_at, payload) VALUES (?, ?, ?, ?, ?)`,
		id, userID, kit.KitTitle, created, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("inserting kit: %w", err)
	}
	return id, nil
}

// List returns userID's kits, newest first.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]SavedKit, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, kit_title, created_at, payload FROM kits
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying kits: %w", err)
	}
	defer rows.Close()

	var kits []SavedKit
	for rows.Next() {
		k, err := scanKit(rows)
		if err != nil {
			return nil, err
		}
		kits = append(kits, k)
	}
	return kits, rows.Err()
}

// Get returns one kit by id.
func (s *Store) Get(ctx context.Context, id string) (SavedKit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, kit_title, created_at, payload FROM kits WHERE id = ?`, id)
	k, err := scanKit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedKit{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return k, err
}

// ExportYAML writes every kit saved for userID to w as a YAML list, newest
// first.
func (s *Store) ExportYAML(ctx context.Context, userID string, w io.Writer) error {
	kits, err := s.List(ctx, userID, -1)
	if err != nil {
		return err
	}
	if kits == nil {
		kits = []SavedKit{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(kits); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKit(row scanner) (SavedKit, error) {
	var (
		k       SavedKit
		created string
		payload string
	)
	if err := row.Scan(&k.ID, &k.UserID, &k.KitTitle, &created, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SavedKit{}, err
		}
		return SavedKit{}, fmt.Errorf("scanning kit: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return SavedKit{}, fmt.Errorf("parsing created_at for %s: %w", k.ID, err)
	}
	k.CreatedAt = t
	if err := json.Unmarshal([]byte(payload), &k.Kit); err != nil {
		return SavedKit{}, fmt.Errorf("decoding kit %s: %w", k.ID, err)
	}
	return k, nil
}
