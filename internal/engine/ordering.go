package engine

import "github.com/hailam/chesscore/internal/board"

// Move ordering bands. Everything inside a band is ranked by its own
// secondary score, which never crosses into the next band.
const (
	TTMoveScore     int32 = 1 << 30
	GoodCaptureBase int32 = 1 << 28
	PromotionScore  int32 = 1 << 27
	KillerScore1    int32 = 1 << 26
	KillerScore2    int32 = KillerScore1 - 1
	CounterScore    int32 = 1 << 25
	BadCaptureBase  int32 = -(1 << 28)
)

// maxHistory bounds the history tables; updates are pulled toward it
// with a gravity term instead of periodic halving.
const maxHistory = 16384

// MVV-LVA: victim * 10 - attacker.
var mvvLva = [6][6]int32{
	//        P   N   B   R   Q   K  (attacker)
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// MoveOrderer holds the per-worker ordering heuristics.
type MoveOrderer struct {
	killers [MaxPly + 1][2]board.Move

	// history is indexed by [side][from][to].
	history [2][64][64]int32

	// counterMoves maps the previous move's piece and target to a reply.
	counterMoves [12][64]board.Move

	// captureHistory is indexed by [piece][to][captured].
	captureHistory [12][64][6]int32
}

func NewMoveOrderer() *MoveOrderer {
	return &MoveOrderer{}
}

// Clear resets the killers and counter moves and ages the histories.
func (mo *MoveOrderer) Clear() {
	mo.killers = [MaxPly + 1][2]board.Move{}
	mo.counterMoves = [12][64]board.Move{}
	for c := range mo.history {
		for from := range mo.history[c] {
			for to := range mo.history[c][from] {
				mo.history[c][from][to] /= 2
			}
		}
	}
	for p := range mo.captureHistory {
		for to := range mo.captureHistory[p] {
			for v := range mo.captureHistory[p][to] {
				mo.captureHistory[p][to][v] /= 2
			}
		}
	}
}

// Reset forgets everything, for a new game.
func (mo *MoveOrderer) Reset() {
	*mo = MoveOrderer{}
}

func movedPiece(m board.Move, c board.Color) board.Piece {
	return board.NewPiece(m.Piece(), c)
}

// ScoreMoves fills ml.Scores for the moves of s at ply. prev is the move
// that led to s, or NullMove.
func (mo *MoveOrderer) ScoreMoves(t *board.Tables, s *board.GameState, ml *board.MoveList, ply int, ttMove, prev board.Move) {
	us := s.SideToMove
	counter := mo.CounterMove(prev, us.Other())
	killers := &mo.killers[min(ply, MaxPly)]

	for i := 0; i < ml.Count; i++ {
		m := ml.Moves[i]
		switch {
		case m == ttMove:
			ml.Scores[i] = TTMoveScore
		case m.IsCapture():
			ml.Scores[i] = mo.scoreCapture(t, s, m)
		case m.IsPromotion():
			ml.Scores[i] = PromotionScore + int32(m.Promotion())
		case m == killers[0]:
			ml.Scores[i] = KillerScore1
		case m == killers[1]:
			ml.Scores[i] = KillerScore2
		case m == counter:
			ml.Scores[i] = CounterScore
		default:
			ml.Scores[i] = mo.history[us][m.From()][m.To()]
		}
	}
}

// ScoreCaptures is the quiescence variant: MVV-LVA and capture history only.
func (mo *MoveOrderer) ScoreCaptures(s *board.GameState, ml *board.MoveList, ttMove board.Move) {
	for i := 0; i < ml.Count; i++ {
		m := ml.Moves[i]
		switch {
		case m == ttMove:
			ml.Scores[i] = TTMoveScore
		case m.IsCapture():
			ml.Scores[i] = GoodCaptureBase + mvvLva[m.Captured()][m.Piece()]*1024 + mo.captureScore(s.SideToMove, m)
		case m.IsPromotion():
			ml.Scores[i] = PromotionScore + int32(m.Promotion())
		default:
			// Evasions when in check.
			ml.Scores[i] = mo.history[s.SideToMove][m.From()][m.To()]
		}
	}
}

func (mo *MoveOrderer) scoreCapture(t *board.Tables, s *board.GameState, m board.Move) int32 {
	score := mvvLva[m.Captured()][m.Piece()]*1024 + mo.captureScore(s.SideToMove, m)
	if m.IsPromotion() {
		score += int32(pieceValues[m.Promotion()])
	}
	// Taking a more valuable piece cannot lose material.
	if pieceValues[m.Captured()] >= pieceValues[m.Piece()] || SEE(t, s, m) >= 0 {
		return GoodCaptureBase + score
	}
	return BadCaptureBase + score
}

func (mo *MoveOrderer) captureScore(us board.Color, m board.Move) int32 {
	return mo.captureHistory[movedPiece(m, us)][m.To()][m.Captured()] / 16
}

// PickMove moves the best scored move at or after index to index. Moves
// are sorted lazily since most nodes cut off after a few.
func PickMove(ml *board.MoveList, index int) board.Move {
	best := index
	for j := index + 1; j < ml.Count; j++ {
		if ml.Scores[j] > ml.Scores[best] {
			best = j
		}
	}
	if best != index {
		ml.Swap(index, best)
	}
	return ml.Moves[index]
}

// IsKiller reports whether m is a killer at ply.
func (mo *MoveOrderer) IsKiller(m board.Move, ply int) bool {
	k := &mo.killers[min(ply, MaxPly)]
	return m == k[0] || m == k[1]
}

func (mo *MoveOrderer) UpdateKillers(m board.Move, ply int) {
	if ply > MaxPly || mo.killers[ply][0] == m {
		return
	}
	mo.killers[ply][1] = mo.killers[ply][0]
	mo.killers[ply][0] = m
}

func historyBonus(depth int) int32 {
	return int32(min(depth*depth, 1200))
}

func gravity(entry *int32, bonus int32) {
	abs := bonus
	if abs < 0 {
		abs = -abs
	}
	*entry += bonus - *entry*abs/maxHistory
}

// UpdateQuietHistory rewards the quiet cutoff move and penalizes the quiet
// moves searched before it.
func (mo *MoveOrderer) UpdateQuietHistory(us board.Color, best board.Move, tried []board.Move, depth int) {
	bonus := historyBonus(depth)
	gravity(&mo.history[us][best.From()][best.To()], bonus)
	for _, m := range tried {
		if m != best {
			gravity(&mo.history[us][m.From()][m.To()], -bonus)
		}
	}
}

// UpdateCaptureHistory does the same for captures.
func (mo *MoveOrderer) UpdateCaptureHistory(us board.Color, best board.Move, tried []board.Move, depth int) {
	bonus := historyBonus(depth)
	if best.IsCapture() {
		gravity(&mo.captureHistory[movedPiece(best, us)][best.To()][best.Captured()], bonus)
	}
	for _, m := range tried {
		if m != best {
			gravity(&mo.captureHistory[movedPiece(m, us)][m.To()][m.Captured()], -bonus)
		}
	}
}

// HistoryScore returns the quiet history of m for the side to move.
func (mo *MoveOrderer) HistoryScore(us board.Color, m board.Move) int {
	return int(mo.history[us][m.From()][m.To()])
}

// UpdateCounterMove records reply as the answer to prev, which was played
// by them.
func (mo *MoveOrderer) UpdateCounterMove(prev, reply board.Move, them board.Color) {
	if prev == board.NullMove {
		return
	}
	mo.counterMoves[movedPiece(prev, them)][prev.To()] = reply
}

func (mo *MoveOrderer) CounterMove(prev board.Move, them board.Color) board.Move {
	if prev == board.NullMove {
		return board.NullMove
	}
	return mo.counterMoves[movedPiece(prev, them)][prev.To()]
}
