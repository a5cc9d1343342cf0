// Package app holds the command-line setup shared by the binaries.
package app

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// DBAuto selects the per-user data directory for -db.
const DBAuto = "auto"

// Flags are the options common to every binary.
type Flags struct {
	Hash       int
	Threads    int
	DB         string
	Book       string
	Index      string
	LogLevel   string
	CPUProfile string

	fs *flag.FlagSet
}

// RegisterFlags defines the common flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.IntVar(&f.Hash, "hash", engine.DefaultHash, "transposition table size in MB")
	fs.IntVar(&f.Threads, "threads", engine.DefaultThreads, "search threads")
	fs.StringVar(&f.DB, "db", "", `badger directory for options and caches ("auto" for the user data dir)`)
	fs.StringVar(&f.Book, "book", "", "polyglot opening book")
	fs.StringVar(&f.Index, "index", "magic", "slider index: magic, pext or search")
	fs.StringVar(&f.LogLevel, "loglevel", "info", "log level")
	fs.StringVar(&f.CPUProfile, "cpuprofile", "", "write cpu profile to file")
	return f
}

// IsSet reports whether name was given on the command line.
func (f *Flags) IsSet(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// SetupLogging sends zerolog output to stderr at the given level.
// Stdout stays free for protocol traffic.
func SetupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	return nil
}

// StartProfile starts CPU profiling to path, falling back to $CPUPROFILE.
// The returned function stops it. With neither set it does nothing.
func StartProfile(path string) (func(), error) {
	if path == "" {
		path = os.Getenv("CPUPROFILE")
	}
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}
	log.Info().Str("path", path).Msg("cpu profiling enabled")
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// Tables builds the attack tables for the -index mode.
func (f *Flags) Tables() (*board.Tables, error) {
	opts, err := board.ParseOptions(f.Index)
	if err != nil {
		return nil, err
	}
	if opts.Index == board.IndexMagic && !opts.SearchMagics {
		return board.Default(), nil
	}
	return board.NewTables(opts), nil
}

// Engine creates an engine from -index, -hash and -threads.
func (f *Flags) Engine() (*engine.Engine, error) {
	tables, err := f.Tables()
	if err != nil {
		return nil, err
	}
	eng := engine.New(tables, f.Hash)
	eng.SetThreads(f.Threads)
	return eng, nil
}

// OpenStorage opens the -db directory, or returns nil when -db is empty.
func (f *Flags) OpenStorage() (*storage.Storage, error) {
	switch f.DB {
	case "":
		return nil, nil
	case DBAuto:
		return storage.Open("")
	default:
		return storage.Open(f.DB)
	}
}

// OpenBook loads -book, or returns nil when it is empty.
func (f *Flags) OpenBook() (*book.Book, error) {
	if f.Book == "" {
		return nil, nil
	}
	return book.Open(f.Book)
}
