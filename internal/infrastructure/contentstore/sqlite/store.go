// Package sqlite provides a SQLite implementation of ports.ContentStore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	msqlite "modernc.org/sqlite" // Pure Go SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
	"github.com/happenings-community/requests-and-offers-sub003/internal/infrastructure/config"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

var _ ports.ContentStore = (*Store)(nil)

// Store implements ports.ContentStore using SQLite.
// Hashes are stored as raw bytes so that BLOB ordering matches hash ordering.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

// NewStore opens a SQLite content store.
func NewStore(cfg config.SQLiteConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// An in-memory database exists per connection.
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Store{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Records (actions with their optional entry), keyed by action hash
	CREATE TABLE IF NOT EXISTS records (
		hash BLOB PRIMARY KEY,
		type TEXT NOT NULL,
		author BLOB NOT NULL,
		timestamp INTEGER NOT NULL,
		entry_hash BLOB,
		original BLOB,
		previous BLOB,
		nonce TEXT NOT NULL DEFAULT '',
		entry_kind TEXT,
		schema_version INTEGER,
		body BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_records_original ON records(original);

	-- Links between hashes; deleted links are kept so they can be revived
	CREATE TABLE IF NOT EXISTS links (
		id BLOB PRIMARY KEY,
		base BLOB NOT NULL,
		target BLOB NOT NULL,
		type TEXT NOT NULL,
		tag TEXT NOT NULL DEFAULT '',
		author BLOB NOT NULL,
		timestamp INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_links_base ON links(base, deleted, timestamp, id);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", s.wrap(err))
	}
	return nil
}

// Put stores a record unless its action hash is already present.
func (s *Store) Put(ctx context.Context, rec *entities.Record) (entities.Hash, error) {
	if rec == nil || rec.Action.Hash.IsZero() {
		return "", errors.New("record has no action hash")
	}
	if s.closed.Load() {
		return "", ports.ErrUnavailable
	}

	a := rec.Action
	var (
		kind    sql.NullString
		version sql.NullInt64
		body    []byte
	)
	if rec.Entry != nil {
		kind = sql.NullString{String: string(rec.Entry.Kind), Valid: true}
		version = sql.NullInt64{Int64: int64(rec.Entry.SchemaVersion), Valid: true}
		body = rec.Entry.Body
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO records
			(hash, type, author, timestamp, entry_hash, original, previous, nonce, entry_kind, schema_version, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Hash.Bytes(), string(a.Type), a.Author.Bytes(), a.Timestamp.UnixNano(),
		a.EntryHash.Bytes(), a.Original.Bytes(), a.Previous.Bytes(), a.Nonce,
		kind, version, body,
	)
	if err != nil {
		return "", fmt.Errorf("saving record: %w", s.wrap(err))
	}
	return a.Hash, nil
}

// Get returns the record, or nil if it is unknown.
func (s *Store) Get(ctx context.Context, hash entities.Hash) (*entities.Record, error) {
	if s.closed.Load() {
		return nil, ports.ErrUnavailable
	}

	var (
		typ, nonce                            string
		author, entryHash, original, previous []byte
		ts                                    int64
		kind                                  sql.NullString
		version                               sql.NullInt64
		body                                  []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT type, author, timestamp, entry_hash, original, previous, nonce, entry_kind, schema_version, body
		FROM records WHERE hash = ?`, hash.Bytes(),
	).Scan(&typ, &author, &ts, &entryHash, &original, &previous, &nonce, &kind, &version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", s.wrap(err))
	}

	rec := &entities.Record{Action: entities.Action{
		Hash:      hash,
		Type:      entities.ActionType(typ),
		Author:    entities.Hash(author),
		Timestamp: time.Unix(0, ts).UTC(),
		EntryHash: entities.Hash(entryHash),
		Original:  entities.Hash(original),
		Previous:  entities.Hash(previous),
		Nonce:     nonce,
	}}
	if kind.Valid {
		rec.Entry = &entities.Entry{
			Kind:          entities.EntityKind(kind.String),
			SchemaVersion: int(version.Int64),
			Body:          body,
		}
	}
	return rec, nil
}

// CreateLink stores a link, or revives it if it was deleted.
// A live link keeps its original author and timestamp.
func (s *Store) CreateLink(ctx context.Context, link entities.Link) (entities.Hash, error) {
	if link.Base.IsZero() || link.Target.IsZero() {
		return "", errors.New("link base and target are required")
	}
	if s.closed.Load() {
		return "", ports.ErrUnavailable
	}
	link.ID = entities.LinkID(link.Base, link.Target, link.Type, link.Tag)
	if link.Timestamp.IsZero() {
		link.Timestamp = timeNow().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO links (id, base, target, type, tag, author, timestamp, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			author = excluded.author,
			timestamp = excluded.timestamp,
			deleted = 0
		WHERE links.deleted = 1`,
		link.ID.Bytes(), link.Base.Bytes(), link.Target.Bytes(), string(link.Type), link.Tag,
		link.Author.Bytes(), link.Timestamp.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("saving link: %w", s.wrap(err))
	}
	return link.ID, nil
}

// GetLinks returns the live links from base that pass the filter.
func (s *Store) GetLinks(ctx context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error) {
	if s.closed.Load() {
		return nil, ports.ErrUnavailable
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, type, tag, author, timestamp
		FROM links
		WHERE base = ? AND deleted = 0
		ORDER BY timestamp, id`, base.Bytes())
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", s.wrap(err))
	}
	defer rows.Close()

	out := make([]entities.Link, 0)
	for rows.Next() {
		var (
			id, target, author []byte
			typ, tag           string
			ts                 int64
		)
		if err := rows.Scan(&id, &target, &typ, &tag, &author, &ts); err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		l := entities.Link{
			ID:        entities.Hash(id),
			Base:      base,
			Target:    entities.Hash(target),
			Type:      entities.LinkType(typ),
			Tag:       tag,
			Author:    entities.Hash(author),
			Timestamp: time.Unix(0, ts).UTC(),
		}
		if filter.Matches(l) {
			out = append(out, l)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", s.wrap(err))
	}
	return out, nil
}

// DeleteLink marks a link deleted.
func (s *Store) DeleteLink(ctx context.Context, linkID entities.Hash) error {
	if s.closed.Load() {
		return ports.ErrUnavailable
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE links SET deleted = 1 WHERE id = ?`, linkID.Bytes()); err != nil {
		return fmt.Errorf("deleting link: %w", s.wrap(err))
	}
	return nil
}

// Stats reports the number of records and live links.
func (s *Store) Stats(ctx context.Context) (records, liveLinks int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&records); err != nil {
		return 0, 0, fmt.Errorf("counting records: %w", s.wrap(err))
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE deleted = 0`).Scan(&liveLinks); err != nil {
		return 0, 0, fmt.Errorf("counting links: %w", s.wrap(err))
	}
	return records, liveLinks, nil
}

// wrap marks lock contention and closed connections as transient.
func (s *Store) wrap(err error) error {
	if errors.Is(err, sql.ErrConnDone) || s.closed.Load() {
		return fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
		}
	}
	return err
}
