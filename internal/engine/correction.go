package engine

import "github.com/hailam/chesscore/internal/board"

const (
	correctionSize  = 1 << 14
	correctionMask  = correctionSize - 1
	correctionGrain = 256
	correctionLimit = 32 * correctionGrain
)

// CorrectionHistory remembers how far the static eval was off for a pawn
// structure and nudges later evaluations of similar positions.
type CorrectionHistory struct {
	table [2][correctionSize]int32
}

func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

func correctionIndex(key uint64) uint64 {
	return (key ^ key>>32) & correctionMask
}

// Correct returns eval adjusted by the recorded error for s.
func (ch *CorrectionHistory) Correct(s *board.GameState, eval int) int {
	v := ch.table[s.SideToMove][correctionIndex(s.PawnKey)]
	corrected := eval + int(v)/correctionGrain
	return max(-MateBound+1, min(corrected, MateBound-1))
}

// Update folds searchScore - staticEval into the entry for s, weighted
// by depth.
func (ch *CorrectionHistory) Update(s *board.GameState, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}
	entry := &ch.table[s.SideToMove][correctionIndex(s.PawnKey)]
	weight := min(depth+1, 16)
	target := (searchScore - staticEval) * correctionGrain
	v := (int(*entry)*(256-weight) + target*weight) / 256
	*entry = int32(max(-correctionLimit, min(v, correctionLimit)))
}

func (ch *CorrectionHistory) Clear() {
	ch.table = [2][correctionSize]int32{}
}
