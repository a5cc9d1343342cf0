package engine

import (
	"sync/atomic"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// searchState is shared by all workers of one search.
type searchState struct {
	stop   atomic.Bool
	nodes  atomic.Uint64
	start  time.Time
	plan   timePlan
	limits Limits

	maxDepth  int
	skipRatio int
	onInfo    func(Info)
	tt        *TransTable
}

func (st *searchState) elapsed() time.Duration {
	return time.Since(st.start)
}

// iteration is a completed root search.
type iteration struct {
	depth int
	score int
	pv    []board.Move
}

func (it iteration) move() board.Move {
	if len(it.pv) == 0 {
		return board.NullMove
	}
	return it.pv[0]
}

// worker is one lazy-SMP search thread. Everything but the shared state
// and the TT is private to it.
type worker struct {
	id      int
	tables  *board.Tables
	eval    *Evaluator
	orderer *MoveOrderer
	corr    *CorrectionHistory
	shared  *searchState

	stack     [MaxPly + 4]board.GameState
	lists     [MaxPly + 4]board.MoveList
	evalStack [MaxPly + 4]int
	moveStack [MaxPly + 4]board.Move
	sinceNull [MaxPly + 4]int

	pv    [MaxPly + 2][MaxPly + 2]board.Move
	pvLen [MaxPly + 2]int

	// keys holds the game history followed by the current search path;
	// the last entry is the node being searched.
	keys []uint64

	nodes     uint64
	flushed   uint64
	seldepth  int
	rootMoves []board.Move
	completed iteration
}

func newWorker(id int, tables *board.Tables) *worker {
	return &worker{
		id:      id,
		tables:  tables,
		eval:    NewEvaluator(tables, 1),
		orderer: NewMoveOrderer(),
		corr:    NewCorrectionHistory(),
	}
}

// reset forgets everything learned, for a new game.
func (w *worker) reset() {
	w.eval.Clear()
	w.orderer.Reset()
	w.corr.Clear()
}

// prepare loads the root and the shared state for a new search.
func (w *worker) prepare(st *searchState, root *board.GameState, history []uint64, rootMoves []board.Move) {
	w.shared = st
	w.stack[0] = *root
	w.sinceNull[0] = root.HalfMoveClock
	w.keys = append(append(w.keys[:0], history...), root.Hash)
	w.rootMoves = append(w.rootMoves[:0], rootMoves...)
	w.nodes, w.flushed, w.seldepth = 0, 0, 0
	w.completed = iteration{}
	w.orderer.Clear()
}

func (w *worker) stopped() bool {
	return w.shared.stop.Load()
}

// tick counts a node, publishes the count in batches and polls the limits.
func (w *worker) tick() {
	w.nodes++
	if w.nodes&1023 == 0 {
		w.flush()
	}
	if w.nodes&2047 == 0 {
		if limit := w.shared.limits.Nodes; limit > 0 && w.shared.nodes.Load() >= limit {
			w.shared.stop.Store(true)
		}
	}
}

func (w *worker) flush() {
	w.shared.nodes.Add(w.nodes - w.flushed)
	w.flushed = w.nodes
}

func (w *worker) push(ply int, m board.Move) *board.GameState {
	child := &w.stack[ply+1]
	*child = w.tables.MakeMove(&w.stack[ply], m)
	w.moveStack[ply] = m
	w.sinceNull[ply+1] = w.sinceNull[ply] + 1
	w.keys = append(w.keys, child.Hash)
	return child
}

func (w *worker) pushNull(ply int) {
	child := &w.stack[ply+1]
	*child = w.tables.MakeNullMove(&w.stack[ply])
	w.moveStack[ply] = board.NullMove
	w.sinceNull[ply+1] = 0
	w.keys = append(w.keys, child.Hash)
}

func (w *worker) pop() {
	w.keys = w.keys[:len(w.keys)-1]
}

func (w *worker) updatePV(ply int, m board.Move) {
	w.pv[ply][0] = m
	n := copy(w.pv[ply][1:], w.pv[ply+1][:w.pvLen[ply+1]])
	w.pvLen[ply] = n + 1
}

func (w *worker) rootPV() []board.Move {
	return append([]board.Move(nil), w.pv[0][:w.pvLen[0]]...)
}

// isDraw covers insufficient material, the fifty-move rule (a mate on
// the hundredth half-move still counts) and repetitions.
func (w *worker) isDraw(ply int) bool {
	s := &w.stack[ply]
	if s.IsInsufficientMaterial() {
		return true
	}
	if s.IsFiftyMoveDraw() {
		if !s.InCheck() {
			return true
		}
		return w.tables.GenerateMoves(s, &w.lists[ply], board.GenCaptures).HasLegal
	}
	return w.isRepetition(ply)
}

// isRepetition scans back two plies at a time, no further than the last
// irreversible move or null move.
func (w *worker) isRepetition(ply int) bool {
	key := w.stack[ply].Hash
	n := len(w.keys)
	limit := min(w.stack[ply].HalfMoveClock, w.sinceNull[ply])
	for i := n - 3; i >= 0 && i >= n-1-limit; i -= 2 {
		if w.keys[i] == key {
			return true
		}
	}
	return false
}

// iterate runs iterative deepening until a limit or the stop flag ends it.
func (w *worker) iterate() {
	defer w.flush()
	st := w.shared

	if w.id > 0 && len(w.rootMoves) > 2 {
		// Helpers keep the hash move first and shuffle the rest so the
		// threads fan out over different subtrees.
		rest := w.rootMoves[1:]
		shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	}

	prev := 0
	for depth := 1; depth <= st.maxDepth; depth++ {
		if skipDepth(w.id, depth, st.skipRatio) {
			continue
		}
		w.seldepth = 0
		score := w.aspirate(depth, prev)
		if w.stopped() {
			break
		}
		prev = score
		w.completed = iteration{depth: depth, score: score, pv: w.rootPV()}

		if w.id == 0 && w.finishIteration(depth, score) {
			break
		}
	}

	if w.id == 0 {
		st.stop.Store(true)
	}
}

// finishIteration reports the main thread's iteration and decides whether
// to start another one.
func (w *worker) finishIteration(depth, score int) bool {
	st := w.shared
	w.flush()
	if st.onInfo != nil {
		st.onInfo(Info{
			Depth:    depth,
			SelDepth: w.seldepth,
			Score:    score,
			Nodes:    st.nodes.Load(),
			Time:     st.elapsed(),
			HashFull: st.tt.HashFull(),
			PV:       w.completed.pv,
		})
	}

	if st.limits.Depth > 0 && depth >= st.limits.Depth {
		return true
	}
	switch st.limits.Control.(type) {
	case nil, Infinite:
		return false
	}
	if len(w.rootMoves) == 1 {
		return true
	}
	if IsMateScore(score) && depth >= MateScore-abs(score) {
		return true
	}
	return st.plan.soft > 0 && st.elapsed() >= st.plan.soft
}

func (w *worker) aspirate(depth, prev int) int {
	alpha, beta := -Infinity, Infinity
	window := aspirationWindow
	if depth >= aspirationDepth {
		alpha = max(prev-window, -Infinity)
		beta = min(prev+window, Infinity)
	}
	for {
		score := w.searchRoot(depth, alpha, beta)
		if w.stopped() {
			return score
		}
		switch {
		case score <= alpha:
			alpha = max(score-window, -Infinity)
		case score >= beta:
			beta = min(score+window, Infinity)
		default:
			return score
		}
		window *= 2
	}
}

// searchRoot searches the root move list in its current order. A move
// that raises alpha is moved to the front for the next iteration.
func (w *worker) searchRoot(depth, alpha, beta int) int {
	s := &w.stack[0]
	w.pvLen[0] = 0
	w.tick()

	bestScore, bestMove := -Infinity, board.NullMove
	bound := BoundUpper
	for i, m := range w.rootMoves {
		child := w.push(0, m)
		newDepth := depth - 1
		if child.InCheck() {
			newDepth++
		}

		var score int
		if i == 0 {
			score = -w.search(1, newDepth, -beta, -alpha)
		} else {
			score = -w.search(1, newDepth, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -w.search(1, newDepth, -beta, -alpha)
			}
		}
		w.pop()
		if w.stopped() {
			return bestScore
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				w.updatePV(0, m)
				copy(w.rootMoves[1:i+1], w.rootMoves[:i])
				w.rootMoves[0] = m
				if score >= beta {
					bound = BoundLower
					break
				}
				alpha = score
				bound = BoundExact
			}
		}
	}

	w.shared.tt.Store(s.Hash, depth, AdjustScoreToTT(bestScore, 0), bound, bestMove)
	return bestScore
}

// search is the PVS negamax below the root.
func (w *worker) search(ply, depth, alpha, beta int) int {
	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	w.pvLen[ply] = 0
	w.tick()
	if w.stopped() {
		return 0
	}
	w.seldepth = max(w.seldepth, ply)

	s := &w.stack[ply]
	pvNode := beta-alpha > 1
	inCheck := s.InCheck()

	if w.isDraw(ply) {
		return 0
	}
	if ply >= MaxPly {
		return w.eval.Evaluate(s)
	}

	// Mate distance pruning.
	alpha = max(alpha, -MateScore+ply)
	beta = min(beta, MateScore-ply-1)
	if alpha >= beta {
		return alpha
	}

	ttMove := board.NullMove
	if e, ok := w.shared.tt.Probe(s.Hash); ok {
		ttMove = e.Move
		score := AdjustScoreFromTT(e.Score, ply)
		if !pvNode && e.Depth >= depth &&
			(e.Bound == BoundExact ||
				e.Bound == BoundLower && score >= beta ||
				e.Bound == BoundUpper && score <= alpha) {
			return score
		}
	}

	rawEval, eval := 0, -Infinity
	if !inCheck {
		rawEval = w.eval.Evaluate(s)
		eval = w.corr.Correct(s, rawEval)
	}
	w.evalStack[ply] = eval
	improving := !inCheck && ply >= 2 && eval > w.evalStack[ply-2]

	if !pvNode && !inCheck {
		if depth <= rfpMaxDepth && eval-rfpMargin*depth >= beta && beta > -MateBound && beta < MateBound {
			return eval
		}

		if depth >= nmpMinDepth && eval >= beta && beta > -MateBound &&
			w.moveStack[ply-1] != board.NullMove && s.HasNonPawnMaterial(s.SideToMove) {
			r := 3 + depth/4
			w.pushNull(ply)
			score := -w.search(ply+1, depth-1-r, -beta, -beta+1)
			w.pop()
			if w.stopped() {
				return 0
			}
			if score >= beta {
				if score >= MateBound {
					score = beta
				}
				return score
			}
		}
	}

	futile := !pvNode && !inCheck && depth < len(futilityMargin) && eval+futilityMargin[depth] <= alpha

	ml := &w.lists[ply]
	w.tables.GenerateMoves(s, ml, board.GenAll)
	if ml.Count == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}
	w.orderer.ScoreMoves(w.tables, s, ml, ply, ttMove, w.moveStack[ply-1])

	us := s.SideToMove
	var quiets, captures [64]board.Move
	nq, nc := 0, 0
	bestScore, bestMove := -Infinity, board.NullMove
	bound := BoundUpper
	searched := 0

	for i := 0; i < ml.Count; i++ {
		m := PickMove(ml, i)
		quiet := m.IsQuiet()

		if searched > 0 && !inCheck && bestScore > -MateBound {
			if quiet {
				if futile {
					continue
				}
				if !pvNode && depth < len(lmpThreshold) && m != ttMove {
					limit := lmpThreshold[depth]
					if !improving {
						limit = limit * 2 / 3
					}
					if searched >= limit {
						continue
					}
				}
			} else if depth <= seePruneDepth && ml.Scores[i] < 0 {
				// Bad captures were marked by SEE during ordering.
				continue
			}
		}

		child := w.push(ply, m)
		searched++
		if quiet && nq < len(quiets) {
			quiets[nq] = m
			nq++
		} else if m.IsCapture() && nc < len(captures) {
			captures[nc] = m
			nc++
		}

		newDepth := depth - 1
		if child.InCheck() {
			newDepth++
		}

		var score int
		if searched == 1 {
			score = -w.search(ply+1, newDepth, -beta, -alpha)
		} else {
			r := 0
			if depth >= 3 && searched > 3 && quiet && !inCheck {
				r = lmrReductions[min(depth, 63)][min(searched, 63)]
				if pvNode {
					r--
				}
				if w.orderer.IsKiller(m, ply) {
					r--
				}
				if !improving {
					r++
				}
				r -= w.orderer.HistoryScore(us, m) / 4096
				r = max(0, min(r, newDepth-1))
			}
			score = -w.search(ply+1, newDepth-r, -alpha-1, -alpha)
			if score > alpha && r > 0 {
				score = -w.search(ply+1, newDepth, -alpha-1, -alpha)
			}
			if score > alpha && score < beta {
				score = -w.search(ply+1, newDepth, -beta, -alpha)
			}
		}
		w.pop()
		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				w.updatePV(ply, m)
				if score >= beta {
					bound = BoundLower
					break
				}
				alpha = score
				bound = BoundExact
			}
		}
	}

	if bound == BoundLower {
		if bestMove.IsQuiet() {
			w.orderer.UpdateKillers(bestMove, ply)
			w.orderer.UpdateQuietHistory(us, bestMove, quiets[:nq], depth)
			w.orderer.UpdateCounterMove(w.moveStack[ply-1], bestMove, us.Other())
		} else {
			w.orderer.UpdateCaptureHistory(us, bestMove, captures[:nc], depth)
		}
	}

	if !inCheck && !IsMateScore(bestScore) && (bestMove == board.NullMove || !bestMove.IsTactical()) &&
		!(bound == BoundLower && bestScore <= eval) && !(bound == BoundUpper && bestScore >= eval) {
		w.corr.Update(s, bestScore, rawEval, depth)
	}

	w.shared.tt.Store(s.Hash, depth, AdjustScoreToTT(bestScore, ply), bound, bestMove)
	return bestScore
}

// quiescence resolves captures until the position is quiet. In check it
// searches every evasion instead and has no stand-pat.
func (w *worker) quiescence(ply, alpha, beta int) int {
	w.pvLen[ply] = 0
	w.tick()
	if w.stopped() {
		return 0
	}
	w.seldepth = max(w.seldepth, ply)

	s := &w.stack[ply]
	if w.isDraw(ply) {
		return 0
	}
	if ply >= MaxPly {
		return w.eval.Evaluate(s)
	}

	pvNode := beta-alpha > 1
	ttMove := board.NullMove
	if e, ok := w.shared.tt.Probe(s.Hash); ok {
		ttMove = e.Move
		score := AdjustScoreFromTT(e.Score, ply)
		if !pvNode && (e.Bound == BoundExact ||
			e.Bound == BoundLower && score >= beta ||
			e.Bound == BoundUpper && score <= alpha) {
			return score
		}
	}

	inCheck := s.InCheck()
	mode := board.GenCaptures
	standPat := -Infinity
	if inCheck {
		mode = board.GenAll
	} else {
		standPat = w.corr.Correct(s, w.eval.Evaluate(s))
		if standPat >= beta {
			return standPat
		}
		alpha = max(alpha, standPat)
	}

	ml := &w.lists[ply]
	w.tables.GenerateMoves(s, ml, mode)
	if inCheck && ml.Count == 0 {
		return -MateScore + ply
	}
	w.orderer.ScoreCaptures(s, ml, ttMove)

	bestScore, bestMove := standPat, board.NullMove
	bound := BoundUpper
	for i := 0; i < ml.Count; i++ {
		m := PickMove(ml, i)
		if !inCheck {
			gain := pieceValues[m.Captured()]
			if m.IsPromotion() {
				gain += pieceValues[m.Promotion()] - PawnValue
			}
			if standPat+gain+qsDeltaMargin < alpha {
				continue
			}
			if SEE(w.tables, s, m) < 0 {
				continue
			}
		}

		w.push(ply, m)
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pop()
		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				w.updatePV(ply, m)
				if score >= beta {
					bound = BoundLower
					break
				}
				alpha = score
				bound = BoundExact
			}
		}
	}

	w.shared.tt.Store(s.Hash, 0, AdjustScoreToTT(bestScore, ply), bound, bestMove)
	return bestScore
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
