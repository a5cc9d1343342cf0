package uci

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// session is one running go command.
type session struct {
	cancel   context.CancelFunc
	infinite bool

	// release is closed by stop; an infinite search holds its bestmove
	// until then.
	release chan struct{}
	once    sync.Once
	done    chan struct{}
}

func (s *session) stop() {
	s.once.Do(func() {
		close(s.release)
		s.cancel()
	})
}

// goParams are the parsed arguments of go.
type goParams struct {
	depth     int
	nodes     uint64
	moveTime  time.Duration
	infinite  bool
	wtime     time.Duration
	btime     time.Duration
	winc      time.Duration
	binc      time.Duration
	movesToGo int
}

func parseGo(args []string) (goParams, error) {
	var p goParams
	next := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%w: go %s needs a value", ErrSyntax, args[i])
		}
		return args[i+1], nil
	}
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "infinite" {
			p.infinite = true
			continue
		}
		v, err := next(i)
		if err != nil {
			return p, err
		}
		i++

		var n int64
		switch tok {
		case "depth", "movestogo", "nodes", "movetime", "wtime", "btime", "winc", "binc":
			n, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return p, fmt.Errorf("%w: go %s %q", ErrSyntax, tok, v)
			}
		default:
			return p, fmt.Errorf("%w: unknown go token %q", ErrSyntax, tok)
		}
		// Clocks can go slightly negative in some GUIs.
		ms := time.Duration(max(n, 0)) * time.Millisecond

		switch tok {
		case "depth":
			if n < 1 {
				return p, fmt.Errorf("%w: go depth %d", ErrSyntax, n)
			}
			p.depth = int(min(n, engine.MaxPly-1))
		case "movestogo":
			p.movesToGo = int(max(n, 0))
		case "nodes":
			p.nodes = uint64(max(n, 0))
		case "movetime":
			p.moveTime = ms
		case "wtime":
			p.wtime = ms
		case "btime":
			p.btime = ms
		case "winc":
			p.winc = ms
		case "binc":
			p.binc = ms
		}
	}
	return p, nil
}

// limits builds the engine limits for the side to move.
func (p goParams) limits(stm board.Color, overhead time.Duration) engine.Limits {
	l := engine.Limits{Depth: p.depth, Nodes: p.nodes, MoveOverhead: overhead}
	remaining, inc := p.wtime, p.winc
	if stm == board.Black {
		remaining, inc = p.btime, p.binc
	}
	switch {
	case p.infinite:
		l.Control = engine.Infinite{}
	case p.moveTime > 0:
		l.Control = engine.MoveTime{D: p.moveTime}
	case remaining > 0 && p.movesToGo > 0:
		l.Control = engine.Tournament{Remaining: remaining, Increment: inc, MovesToGo: p.movesToGo}
	case remaining > 0:
		l.Control = engine.Incremental{Remaining: remaining, Increment: inc}
	}
	return l
}

func (u *UCI) handleGo(args []string) error {
	u.stopSearch()

	params, err := parseGo(args)
	if err != nil {
		return err
	}
	root := u.root

	if u.opts.OwnBook && u.book != nil {
		if m, ok := u.book.Probe(u.tables, &root); ok {
			u.printf("info string book move %s", m)
			u.printf("bestmove %s", m)
			return nil
		}
	}

	limits := params.limits(root.SideToMove, time.Duration(u.opts.MoveOverhead)*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		cancel:   cancel,
		infinite: params.infinite,
		release:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	u.search = s
	log.Debug().Stringer("control", controlOf(limits)).Int("depth", limits.Depth).Uint64("nodes", limits.Nodes).Msg("search started")

	go u.runSearch(ctx, s, root, slices.Clone(u.history), limits, u.opts.DebugSMP)
	return nil
}

type noControl struct{}

func (noControl) String() string { return "none" }

func controlOf(l engine.Limits) fmt.Stringer {
	if l.Control == nil {
		return noControl{}
	}
	return l.Control
}

func (u *UCI) runSearch(ctx context.Context, s *session, root board.GameState, history []uint64, limits engine.Limits, debugSMP bool) {
	defer close(s.done)
	defer s.cancel()
	defer func() {
		if r := recover(); r != nil {
			u.reportFatal(&FatalError{Command: "go", Err: fmt.Errorf("search panic: %v", r)})
		}
	}()

	res, err := u.eng.Search(ctx, root, history, limits)
	if err != nil {
		u.reportFatal(&FatalError{Command: "go", Err: err})
		return
	}
	if s.infinite {
		<-s.release
	}

	if debugSMP {
		for _, ts := range res.Threads {
			u.printf("info string thread %d depth %d nodes %d", ts.ID, ts.Depth, ts.Nodes)
		}
	}

	legal := u.tables.LegalMoves(&root)
	switch {
	case res.Move == board.NullMove && len(legal) == 0:
		u.printf("bestmove 0000")
	case slices.Contains(legal, res.Move):
		u.printf("bestmove %s", res.Move)
	default:
		u.reportFatal(&FatalError{
			Command: "go",
			Err:     fmt.Errorf("%w: %s in %s", ErrIllegalBestMove, res.Move, root.FEN()),
		})
	}
}

func (u *UCI) reportFatal(err error) {
	select {
	case u.fatal <- err:
	default:
	}
}

// stopSearch stops the running search and waits for its bestmove.
func (u *UCI) stopSearch() {
	s := u.search
	if s == nil {
		return
	}
	s.stop()
	u.eng.Stop()
	<-s.done
	u.search = nil
}

// finishSearch lets a bounded search run to its end and stops an
// infinite one.
func (u *UCI) finishSearch() {
	s := u.search
	if s == nil {
		return
	}
	if s.infinite {
		u.stopSearch()
		return
	}
	<-s.done
	u.search = nil
}

// sendInfo prints one completed iteration.
func (u *UCI) sendInfo(info engine.Info) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", info.Depth, info.SelDepth)
	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(&sb, " score mate %d", engine.MateIn(info.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}
	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d time %d",
		info.Nodes, info.NPS(), info.HashFull, info.Time.Milliseconds())
	if len(info.PV) > 0 {
		sb.WriteString(" pv ")
		sb.WriteString(strings.Join(lo.Map(info.PV, func(m board.Move, _ int) string { return m.String() }), " "))
	}
	u.printf("%s", sb.String())
}
