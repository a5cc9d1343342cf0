package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Storage keys
const (
	keyOptions     = "options"
	prefixPerft    = "perft:"
	prefixAnalysis = "analysis:"
)

// Options are the persisted UCI options.
type Options struct {
	Hash         int       `json:"hash"`
	Threads      int       `json:"threads"`
	MoveOverhead int       `json:"move_overhead"`
	SMPSkipRatio int       `json:"smp_skip_ratio"`
	DebugSMP     bool      `json:"debug_smp"`
	OwnBook      bool      `json:"own_book"`
	BookFile     string    `json:"book_file"`
	SavedAt      time.Time `json:"saved_at"`
}

// DefaultOptions returns the option values of a fresh engine.
func DefaultOptions() *Options {
	return &Options{
		Hash:         64,
		Threads:      1,
		MoveOverhead: 30,
		SMPSkipRatio: 50,
	}
}

// Analysis is the deepest search result seen for a position.
type Analysis struct {
	FEN     string    `json:"fen"`
	Move    string    `json:"move"`
	Score   int       `json:"score"`
	Depth   int       `json:"depth"`
	Nodes   uint64    `json:"nodes"`
	PV      []string  `json:"pv"`
	SavedAt time.Time `json:"saved_at"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens the database in dir, or in the default data directory when
// dir is empty.
func Open(dir string) (*Storage, error) {
	if dir == "" {
		var err error
		if dir, err = GetDatabaseDir(); err != nil {
			return nil, err
		}
	}
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Storage, error) {
	opts = opts.WithLogger(badgerLogger{log.Logger.With().Str("component", "badger").Logger()})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Debug().Str("dir", opts.Dir).Bool("memory", opts.InMemory).Msg("storage opened")
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) getJSON(key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, err
}

func (s *Storage) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// SaveOptions saves the engine options
func (s *Storage) SaveOptions(opts *Options) error {
	opts.SavedAt = time.Now()
	return s.setJSON(keyOptions, opts)
}

// LoadOptions loads the engine options, returning defaults if none were saved
func (s *Storage) LoadOptions() (*Options, error) {
	opts := DefaultOptions()
	if _, err := s.getJSON(keyOptions, opts); err != nil {
		return DefaultOptions(), err
	}
	return opts, nil
}

func perftKey(fen string, depth int) []byte {
	return fmt.Appendf(nil, "%s%s:%d", prefixPerft, fen, depth)
}

// Perft returns a cached perft count.
func (s *Storage) Perft(fen string, depth int) (uint64, bool, error) {
	var nodes uint64
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(perftKey(fen, depth))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("perft entry for %q: bad length %d", fen, len(val))
			}
			nodes = binary.BigEndian.Uint64(val)
			found = true
			return nil
		})
	})
	return nodes, found, err
}

// SavePerft caches a perft count.
func (s *Storage) SavePerft(fen string, depth int, nodes uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(perftKey(fen, depth), binary.BigEndian.AppendUint64(nil, nodes))
	})
}

// Analysis returns the stored analysis of fen.
func (s *Storage) Analysis(fen string) (*Analysis, bool, error) {
	a := &Analysis{}
	found, err := s.getJSON(prefixAnalysis+fen, a)
	if err != nil || !found {
		return nil, false, err
	}
	return a, true, nil
}

// SaveAnalysis stores a unless an analysis at least as deep exists.
// It reports whether a was written.
func (s *Storage) SaveAnalysis(a *Analysis) (bool, error) {
	key := []byte(prefixAnalysis + a.FEN)
	written := false
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var old Analysis
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
				return err
			}
			if old.Depth >= a.Depth {
				return nil
			}
		}
		a.SavedAt = time.Now()
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		written = true
		return txn.Set(key, data)
	})
	return written, err
}

// badgerLogger routes badger's logging through zerolog. Info and debug
// messages drop one level so they stay out of normal output.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Trace().Msgf(strings.TrimSpace(format), args...)
}
