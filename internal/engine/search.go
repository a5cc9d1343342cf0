package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/hailam/chesscore/internal/board"
)

const (
	Infinity  = 32000
	MateScore = 31000
	MaxPly    = 128

	// MateBound is the smallest score that still encodes a forced mate.
	MateBound = MateScore - MaxPly
)

// Pruning and window parameters.
const (
	rfpMaxDepth      = 7
	rfpMargin        = 85
	nmpMinDepth      = 3
	aspirationDepth  = 5
	aspirationWindow = 25
	qsDeltaMargin    = 200
	seePruneDepth    = 3
)

// Futility margins by depth; quiet moves are skipped when the static eval
// plus the margin cannot reach alpha.
var futilityMargin = [4]int{0, 200, 300, 500}

// Prune quiet moves after lmpThreshold[depth] moves at shallow non-PV nodes.
var lmpThreshold = [8]int{0, 3, 5, 9, 15, 23, 33, 45}

// Helper threads skip depth d when (d + id) % skipCycle < skipPhase.
const (
	skipCycle = 2
	skipPhase = 1
)

// lmrReductions[d][m] is the late-move reduction at depth d for the m-th move.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			rd := 21.46 * math.Log(float64(d))
			rm := 21.46 * math.Log(float64(m))
			lmrReductions[d][m] = int(rd * rm / 1024)
		}
	}
}

// Info is reported after every completed iteration of the main thread.
type Info struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	HashFull int
	PV       []board.Move
}

// NPS returns nodes per second for the report.
func (i Info) NPS() uint64 {
	ms := i.Time.Milliseconds()
	if ms <= 0 {
		return i.Nodes * 1000
	}
	return i.Nodes * 1000 / uint64(ms)
}

// ThreadStat summarizes one worker after a search.
type ThreadStat struct {
	ID    int
	Depth int
	Nodes uint64
}

// Result is the outcome of Engine.Search. Move is NullMove only when the
// root has no legal move.
type Result struct {
	Move    board.Move
	Score   int
	Depth   int
	Nodes   uint64
	Time    time.Duration
	PV      []board.Move
	Threads []ThreadStat
}

// IsMateScore reports whether score encodes a forced mate for either side.
func IsMateScore(score int) bool {
	return score >= MateBound || score <= -MateBound
}

// MateIn converts a mate score to moves until mate, negative when the side
// to move is being mated.
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score) / 2
}

// ScoreToString renders a score the way the analysis API shows it.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		n := MateIn(score)
		if n > 0 {
			return fmt.Sprintf("M%d", n)
		}
		return fmt.Sprintf("-M%d", -n)
	}
	sign := "+"
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}

// skipDepth decides whether helper id sits out depth. ratio is the
// percentage of helpers that take part in skipping; 0 disables it.
func skipDepth(id, depth, ratio int) bool {
	if id == 0 || ratio <= 0 || depth <= 1 {
		return false
	}
	// Spread the skipping helpers evenly over the ids.
	if id*ratio/100 == (id-1)*ratio/100 {
		return false
	}
	return (depth+id)%skipCycle < skipPhase
}
