// Package badger provides a BadgerDB implementation of ports.ContentStore.
//
// Key layout:
//
//	r/<action hash>            JSON record
//	l/<link id>                JSON link with its deleted flag
//	b/<base hash>/<link id>    empty; present while the link is live
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/entities"
	"github.com/happenings-community/requests-and-offers-sub003/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

var _ ports.ContentStore = (*Store)(nil)

const (
	prefixRecord = "r/"
	prefixLink   = "l/"
	prefixBase   = "b/"
)

// Config holds configuration for a BadgerDB content store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. If nil they are discarded.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns defaults for a persistent store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// storedLink is the persisted form of a link.
type storedLink struct {
	Link    entities.Link `json:"link"`
	Deleted bool          `json:"deleted,omitempty"`
}

// Store implements ports.ContentStore on BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Open opens a BadgerDB content store and starts value log GC if configured.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		db:     db,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	} else {
		close(s.done)
	}
	return s, nil
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// ErrNoRewrite means no GC was needed
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}

// Close stops GC and closes the database. Later calls fail with ports.ErrUnavailable.
func (s *Store) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
		err = s.db.Close()
	})
	return err
}

func recordKey(h entities.Hash) []byte {
	return append([]byte(prefixRecord), h.Bytes()...)
}

func linkKey(id entities.Hash) []byte {
	return append([]byte(prefixLink), id.Bytes()...)
}

func basePrefix(base entities.Hash) []byte {
	out := append([]byte(prefixBase), base.Bytes()...)
	return append(out, '/')
}

func baseKey(base, id entities.Hash) []byte {
	return append(basePrefix(base), id.Bytes()...)
}

// Put stores a record unless its action hash is already present.
func (s *Store) Put(_ context.Context, rec *entities.Record) (entities.Hash, error) {
	if rec == nil || rec.Action.Hash.IsZero() {
		return "", errors.New("record has no action hash")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	key := recordKey(rec.Action.Hash)
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", fmt.Errorf("saving record: %w", wrap(err))
	}
	return rec.Action.Hash, nil
}

// Get returns the record, or nil if it is unknown.
func (s *Store) Get(_ context.Context, hash entities.Hash) (*entities.Record, error) {
	var rec *entities.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &entities.Record{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", wrap(err))
	}
	return rec, nil
}

// CreateLink stores a link, or revives it if it was deleted.
// A live link keeps its original author and timestamp.
func (s *Store) CreateLink(_ context.Context, link entities.Link) (entities.Hash, error) {
	if link.Base.IsZero() || link.Target.IsZero() {
		return "", errors.New("link base and target are required")
	}
	link.ID = entities.LinkID(link.Base, link.Target, link.Type, link.Tag)
	if link.Timestamp.IsZero() {
		link.Timestamp = timeNow()
	}
	link.Timestamp = link.Timestamp.UTC()

	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getLink(txn, link.ID)
		if err != nil {
			return err
		}
		if existing != nil && !existing.Deleted {
			return nil
		}
		data, err := json.Marshal(storedLink{Link: link})
		if err != nil {
			return err
		}
		if err := txn.Set(linkKey(link.ID), data); err != nil {
			return err
		}
		return txn.Set(baseKey(link.Base, link.ID), nil)
	})
	if err != nil {
		return "", fmt.Errorf("saving link: %w", wrap(err))
	}
	return link.ID, nil
}

// GetLinks returns the live links from base that pass the filter.
func (s *Store) GetLinks(_ context.Context, base entities.Hash, filter entities.LinkFilter) ([]entities.Link, error) {
	out := make([]entities.Link, 0)
	prefix := basePrefix(base)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := entities.Hash(it.Item().KeyCopy(nil)[len(prefix):])
			sl, err := getLink(txn, id)
			if err != nil {
				return err
			}
			if sl == nil || sl.Deleted || !filter.Matches(sl.Link) {
				continue
			}
			out = append(out, sl.Link)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying links: %w", wrap(err))
	}

	entities.SortLinks(out)
	return out, nil
}

// DeleteLink marks a link deleted and drops it from its base index.
func (s *Store) DeleteLink(_ context.Context, linkID entities.Hash) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		sl, err := getLink(txn, linkID)
		if err != nil || sl == nil || sl.Deleted {
			return err
		}
		sl.Deleted = true
		data, err := json.Marshal(sl)
		if err != nil {
			return err
		}
		if err := txn.Set(linkKey(linkID), data); err != nil {
			return err
		}
		return txn.Delete(baseKey(sl.Link.Base, linkID))
	})
	if err != nil {
		return fmt.Errorf("deleting link: %w", wrap(err))
	}
	return nil
}

func getLink(txn *badger.Txn, id entities.Hash) (*storedLink, error) {
	item, err := txn.Get(linkKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sl storedLink
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sl)
	}); err != nil {
		return nil, err
	}
	return &sl, nil
}

// wrap marks conflicts and a closed database as transient.
func wrap(err error) error {
	if errors.Is(err, badger.ErrConflict) || errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%w: %w", ports.ErrUnavailable, err)
	}
	return err
}
