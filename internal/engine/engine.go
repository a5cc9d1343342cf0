package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/hailam/chesscore/internal/board"
)

const (
	DefaultHash      = 64
	DefaultThreads   = 1
	DefaultSkipRatio = 50
)

var shuffle = frand.Shuffle

// Engine runs lazy-SMP searches over a shared transposition table.
// Configuration calls wait for a running search to finish.
type Engine struct {
	tables *board.Tables
	tt     *TransTable

	mu        sync.Mutex
	workers   []*worker
	threads   int
	skipRatio int
	debugSMP  bool

	current atomic.Pointer[searchState]

	evalMu sync.Mutex
	eval   *Evaluator

	// OnInfo, if set, receives the main thread's report after every
	// completed iteration. It runs on the search goroutine.
	OnInfo func(Info)
}

// New creates an engine with a hashMB transposition table and one thread.
func New(tables *board.Tables, hashMB int) *Engine {
	return &Engine{
		tables:    tables,
		tt:        NewTransTable(hashMB),
		eval:      NewEvaluator(tables, 1),
		threads:   DefaultThreads,
		skipRatio: DefaultSkipRatio,
	}
}

func (e *Engine) Tables() *board.Tables { return e.tables }

// SetHash replaces the transposition table.
func (e *Engine) SetHash(mb int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mb == e.tt.Megabytes() {
		return
	}
	e.tt = NewTransTable(mb)
	log.Debug().Int("mb", mb).Int("buckets", e.tt.Buckets()).Msg("transposition table resized")
}

// SetThreads sets the number of search workers.
func (e *Engine) SetThreads(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threads = max(n, 1)
}

// SetSkipRatio sets the share of helper threads, in percent, that skip
// alternate depths.
func (e *Engine) SetSkipRatio(ratio int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipRatio = max(0, min(ratio, 100))
}

// SetDebugSMP turns per-thread statistics logging on or off.
func (e *Engine) SetDebugSMP(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debugSMP = on
}

func (e *Engine) Threads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threads
}

// Clear empties the transposition table and every worker's heuristics.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
	for _, w := range e.workers {
		w.reset()
	}
}

// Stop asks the running search, if any, to return as soon as possible.
func (e *Engine) Stop() {
	if st := e.current.Load(); st != nil {
		st.stop.Store(true)
	}
}

// Evaluate returns the static evaluation of s from White's point of view.
func (e *Engine) Evaluate(s *board.GameState) int {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()
	return e.eval.EvaluateWhite(s)
}

func (e *Engine) ensureWorkers() {
	for len(e.workers) < e.threads {
		e.workers = append(e.workers, newWorker(len(e.workers), e.tables))
	}
}

// Search finds the best move in root. history holds the hashes of the
// game positions before root, oldest first, for repetition detection.
// The search ends on ctx cancellation, Stop, or any of the limits.
func (e *Engine) Search(ctx context.Context, root board.GameState, history []uint64, limits Limits) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	ply := 2*(root.FullMoveNumber-1) + int(root.SideToMove)
	plan := planTime(limits, ply)

	var cancel context.CancelFunc
	if plan.hard > 0 {
		ctx, cancel = context.WithTimeout(ctx, plan.hard)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	rootMoves := e.tables.LegalMoves(&root)
	if len(rootMoves) == 0 {
		score := 0
		if root.InCheck() {
			score = -MateScore
		}
		return Result{Move: board.NullMove, Score: score, Time: time.Since(start)}, nil
	}

	e.tt.NewSearch()
	if entry, ok := e.tt.Probe(root.Hash); ok {
		for i, m := range rootMoves {
			if m == entry.Move {
				copy(rootMoves[1:i+1], rootMoves[:i])
				rootMoves[0] = m
				break
			}
		}
	}

	st := &searchState{
		start:     start,
		plan:      plan,
		limits:    limits,
		maxDepth:  MaxPly - 1,
		skipRatio: e.skipRatio,
		onInfo:    e.OnInfo,
		tt:        e.tt,
	}
	if limits.Depth > 0 {
		st.maxDepth = min(limits.Depth, MaxPly-1)
	}
	e.current.Store(st)
	defer e.current.Store(nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			st.stop.Store(true)
		case <-done:
		}
	}()

	e.ensureWorkers()
	workers := e.workers[:e.threads]
	if len(workers) > 1 {
		log.Debug().Int("threads", len(workers)).Msg("using lazy smp")
	}

	g := errgroup.Group{}
	for _, w := range workers {
		w.prepare(st, &root, history, rootMoves)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					st.stop.Store(true)
					err = fmt.Errorf("search thread %d: %v", w.id, r)
				}
			}()
			w.iterate()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return e.collect(st, workers, rootMoves), nil
}

// collect picks the main thread's last iteration, or a helper's if it
// completed a deeper one.
func (e *Engine) collect(st *searchState, workers []*worker, rootMoves []board.Move) Result {
	best := workers[0].completed
	stats := make([]ThreadStat, len(workers))
	for i, w := range workers {
		stats[i] = ThreadStat{ID: w.id, Depth: w.completed.depth, Nodes: w.nodes}
		if i > 0 && w.completed.depth > best.depth && w.completed.move() != board.NullMove {
			best = w.completed
		}
	}

	res := Result{
		Move:    best.move(),
		Score:   best.score,
		Depth:   best.depth,
		Nodes:   st.nodes.Load(),
		Time:    st.elapsed(),
		PV:      best.pv,
		Threads: stats,
	}
	if res.Move == board.NullMove {
		res.Move = rootMoves[0]
		res.PV = []board.Move{res.Move}
	}

	if e.debugSMP {
		for _, s := range stats {
			log.Info().Int("thread", s.ID).Int("depth", s.Depth).Uint64("nodes", s.Nodes).Msg("smp thread stats")
		}
	}
	return res
}
