// Package uci implements the Universal Chess Interface front end.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

const (
	engineName   = "chesscore"
	engineAuthor = "the chesscore authors"
)

var (
	// ErrOptionRange is returned for a spin value outside its range.
	ErrOptionRange = errors.New("option value out of range")
	// ErrSyntax marks a command that cannot be parsed.
	ErrSyntax = errors.New("malformed command")
	// ErrIllegalBestMove means the search produced a move that is not
	// legal in the searched position.
	ErrIllegalBestMove = errors.New("illegal best move")
)

// FatalError ends the session. Run returns it for malformed input and for
// internal invariant violations.
type FatalError struct {
	Command string
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("uci %s: %v", e.Command, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	eng    *engine.Engine
	tables *board.Tables

	outMu sync.Mutex
	out   io.Writer

	store   *storage.Storage
	book    *book.Book
	opts    storage.Options
	options []Option

	root    board.GameState
	history []uint64

	search *session
	fatal  chan error
}

// New creates a UCI handler writing protocol output to out.
func New(eng *engine.Engine, out io.Writer) *UCI {
	u := &UCI{
		eng:    eng,
		tables: eng.Tables(),
		out:    out,
		opts:   *storage.DefaultOptions(),
		fatal:  make(chan error, 1),
	}
	u.root = u.tables.StartPosition()
	u.options = u.buildOptions()
	eng.OnInfo = u.sendInfo
	return u
}

func (u *UCI) buildOptions() []Option {
	return []Option{
		&SpinOption{name: "Hash", def: engine.DefaultHash, min: 1, max: 4096, apply: func(v int) error {
			u.eng.SetHash(v)
			u.opts.Hash = v
			return nil
		}},
		&SpinOption{name: "Threads", def: engine.DefaultThreads, min: 1, max: 256, apply: func(v int) error {
			u.eng.SetThreads(v)
			u.opts.Threads = v
			return nil
		}},
		&SpinOption{name: "MoveOverhead", def: 30, min: 0, max: 5000, apply: func(v int) error {
			u.opts.MoveOverhead = v
			return nil
		}},
		&ButtonOption{name: "ClearHash", apply: func() error {
			u.eng.Clear()
			return nil
		}},
		&CheckOption{name: "DebugSMPPrint", apply: func(v bool) error {
			u.eng.SetDebugSMP(v)
			u.opts.DebugSMP = v
			return nil
		}},
		&SpinOption{name: "SMPSkipRatio", def: engine.DefaultSkipRatio, min: 0, max: 100, apply: func(v int) error {
			u.eng.SetSkipRatio(v)
			u.opts.SMPSkipRatio = v
			return nil
		}},
		&CheckOption{name: "OwnBook", apply: func(v bool) error {
			u.opts.OwnBook = v
			return nil
		}},
		&StringOption{name: "BookFile", apply: func(path string) error {
			if path == "" {
				u.book, u.opts.BookFile = nil, ""
				return nil
			}
			b, err := book.Open(path)
			if err != nil {
				return err
			}
			u.book, u.opts.BookFile = b, path
			return nil
		}},
	}
}

// UseStorage loads persisted options from s and saves every later change.
// Stored values outside an option's range are clamped.
func (u *UCI) UseStorage(s *storage.Storage) error {
	opts, err := s.LoadOptions()
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	u.store = s

	u.eng.SetHash(lo.Clamp(opts.Hash, 1, 4096))
	u.eng.SetThreads(lo.Clamp(opts.Threads, 1, 256))
	u.eng.SetSkipRatio(lo.Clamp(opts.SMPSkipRatio, 0, 100))
	u.eng.SetDebugSMP(opts.DebugSMP)
	opts.MoveOverhead = lo.Clamp(opts.MoveOverhead, 0, 5000)
	u.opts = *opts

	if opts.BookFile != "" {
		b, err := book.Open(opts.BookFile)
		if err != nil {
			log.Warn().Err(err).Str("path", opts.BookFile).Msg("stored book file unavailable")
			u.opts.BookFile = ""
		} else {
			u.book = b
		}
	}
	log.Debug().Int("hash", opts.Hash).Int("threads", opts.Threads).Bool("own_book", opts.OwnBook).Msg("options restored")
	return nil
}

// UseBook installs an opening book, as if BookFile had been set.
func (u *UCI) UseBook(b *book.Book) {
	u.book = b
}

func (u *UCI) printf(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands from in until quit, end of input, ctx cancellation
// or a fatal error. A search still running at end of input finishes first
// unless it is infinite.
func (u *UCI) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			u.stopSearch()
			return u.pendingFatal()

		case err := <-u.fatal:
			u.stopSearch()
			return err

		case line, ok := <-lines:
			if !ok {
				u.finishSearch()
				if err := u.pendingFatal(); err != nil {
					return err
				}
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			quit, err := u.handle(line)
			if err != nil {
				u.stopSearch()
				return err
			}
			if quit {
				u.stopSearch()
				return u.pendingFatal()
			}
		}
	}
}

func (u *UCI) pendingFatal() error {
	select {
	case err := <-u.fatal:
		return err
	default:
		return nil
	}
}

func (u *UCI) handle(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.printf("readyok")
	case "ucinewgame":
		u.stopSearch()
		u.eng.Clear()
		u.root, u.history = u.tables.StartPosition(), nil
	case "position":
		err = u.handlePosition(args)
	case "go":
		err = u.handleGo(args)
	case "stop":
		u.stopSearch()
	case "quit":
		return true, nil
	case "setoption":
		err = u.handleSetOption(args)
	case "perft":
		err = u.handlePerft(args)
	case "d":
		u.printf("%s", u.root.String())
	case "static":
		u.handleStatic()
	default:
		log.Warn().Str("command", cmd).Msg("unknown command")
		u.printf("info string unknown command %s", cmd)
	}

	if err != nil {
		return false, &FatalError{Command: cmd, Err: err}
	}
	return false, nil
}

func (u *UCI) handleUCI() {
	u.printf("id name %s", engineName)
	u.printf("id author %s", engineAuthor)
	for _, o := range u.options {
		u.printf("%s", o.UCIString())
	}
	u.printf("uciok")
}

// handlePosition sets up the root from startpos or a FEN and plays the
// moves after "moves". The hashes of every position before the root are
// kept for repetition detection.
func (u *UCI) handlePosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: position needs startpos or fen", ErrSyntax)
	}

	movesAt := lo.IndexOf(args, "moves")
	setup := args
	var moves []string
	if movesAt >= 0 {
		setup, moves = args[:movesAt], args[movesAt+1:]
	}

	var root board.GameState
	switch setup[0] {
	case "startpos":
		if len(setup) != 1 {
			return fmt.Errorf("%w: unexpected %q after startpos", ErrSyntax, setup[1])
		}
		root = u.tables.StartPosition()
	case "fen":
		var err error
		if root, err = u.tables.ParseFEN(strings.Join(setup[1:], " ")); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: position %q", ErrSyntax, setup[0])
	}

	states, err := u.tables.ApplyMoves(root, moves)
	if err != nil {
		return err
	}
	u.root = states[len(states)-1]
	u.history = lo.Map(states[:len(states)-1], func(s board.GameState, _ int) uint64 { return s.Hash })
	return nil
}

func (u *UCI) handleSetOption(args []string) error {
	name, value, err := parseSetOption(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return u.SetOption(name, value)
}

// SetOption applies an option as setoption would. Unknown names are
// reported on the protocol channel and ignored.
func (u *UCI) SetOption(name, value string) error {
	opt, ok := lo.Find(u.options, func(o Option) bool { return strings.EqualFold(o.Name(), name) })
	if !ok {
		log.Warn().Str("option", name).Msg("unknown option")
		u.printf("info string unknown option %s", name)
		return nil
	}
	// Engine settings wait for the search lock, so a running search is
	// stopped first.
	u.stopSearch()
	if err := opt.Set(value); err != nil {
		return err
	}
	log.Debug().Str("option", opt.Name()).Str("value", value).Msg("option set")

	if u.store != nil {
		if err := u.store.SaveOptions(&u.opts); err != nil {
			log.Warn().Err(err).Msg("saving options failed")
		}
	}
	return nil
}

func (u *UCI) handleStatic() {
	score := u.eng.Evaluate(&u.root)
	u.printf("Final evaluation %s (white side)", engine.ScoreToString(score))
}
