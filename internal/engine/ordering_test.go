package engine

import (
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

func TestScoreMovesOrder(t *testing.T) {
	tables := board.Default()
	// White can take the undefended queen, the rook defended by a pawn, or
	// play quiet moves.
	s := tables.MustParseFEN("4k3/8/2p5/1r1q4/8/8/8/1R1RK3 w - - 0 1")
	var ml board.MoveList
	tables.GenerateMoves(&s, &ml, board.GenAll)

	tt := board.NewQuiet(board.E1, board.F2, board.King)
	killer := board.NewQuiet(board.E1, board.E2, board.King)
	mo := NewMoveOrderer()
	mo.UpdateKillers(killer, 3)
	mo.ScoreMoves(tables, &s, &ml, 3, tt, board.NullMove)

	want := []string{"e1f2", "d1d5", "b1b5", "e1e2"}
	for i, w := range want {
		if got := PickMove(&ml, i).String(); got != w {
			t.Errorf("move %d = %s, want %s", i, got, w)
		}
	}
	for i := len(want); i < ml.Count; i++ {
		m := PickMove(&ml, i)
		if m.IsCapture() {
			t.Errorf("capture %v ordered after the killer", m)
		}
	}
}

func TestBadCaptureBelowQuiets(t *testing.T) {
	tables := board.Default()
	s := tables.MustParseFEN("4k3/2p5/3p4/8/8/8/3Q4/4K3 w - - 0 1")
	var ml board.MoveList
	tables.GenerateMoves(&s, &ml, board.GenAll)
	NewMoveOrderer().ScoreMoves(tables, &s, &ml, 0, board.NullMove, board.NullMove)

	for i := 0; i < ml.Count; i++ {
		m := ml.Moves[i]
		if m.String() == "d2d6" && ml.Scores[i] >= 0 {
			t.Errorf("losing capture scored %d", ml.Scores[i])
		}
		if m.IsQuiet() && ml.Scores[i] < BadCaptureBase/2 {
			t.Errorf("quiet %v scored like a bad capture", m)
		}
	}
}

func TestKillers(t *testing.T) {
	mo := NewMoveOrderer()
	a := board.NewQuiet(board.G1, board.F3, board.Knight)
	b := board.NewQuiet(board.B1, board.C3, board.Knight)
	c := board.NewQuiet(board.E2, board.E4, board.Pawn)

	mo.UpdateKillers(a, 5)
	mo.UpdateKillers(a, 5)
	mo.UpdateKillers(b, 5)
	if !mo.IsKiller(a, 5) || !mo.IsKiller(b, 5) {
		t.Fatal("killers not recorded")
	}
	mo.UpdateKillers(c, 5)
	if mo.IsKiller(a, 5) {
		t.Error("oldest killer not evicted")
	}
	if mo.IsKiller(c, 6) {
		t.Error("killer leaked into another ply")
	}

	mo.Clear()
	if mo.IsKiller(c, 5) {
		t.Error("Clear kept killers")
	}
}

func TestHistoryStaysBounded(t *testing.T) {
	mo := NewMoveOrderer()
	good := board.NewQuiet(board.G1, board.F3, board.Knight)
	bad := board.NewQuiet(board.B1, board.A3, board.Knight)
	for range 1000 {
		mo.UpdateQuietHistory(board.White, good, []board.Move{bad, good}, 40)
	}
	if h := mo.HistoryScore(board.White, good); h <= 0 || h > maxHistory {
		t.Errorf("good history = %d", h)
	}
	if h := mo.HistoryScore(board.White, bad); h >= 0 || h < -maxHistory {
		t.Errorf("bad history = %d", h)
	}
	if h := mo.HistoryScore(board.Black, good); h != 0 {
		t.Errorf("history leaked to the other side: %d", h)
	}

	before := mo.HistoryScore(board.White, good)
	mo.Clear()
	if h := mo.HistoryScore(board.White, good); h != before/2 {
		t.Errorf("aged history = %d, want %d", h, before/2)
	}
	mo.Reset()
	if h := mo.HistoryScore(board.White, good); h != 0 {
		t.Errorf("history after Reset = %d", h)
	}
}

func TestCounterMove(t *testing.T) {
	mo := NewMoveOrderer()
	prev := board.NewQuiet(board.E7, board.E5, board.Pawn)
	reply := board.NewQuiet(board.G1, board.F3, board.Knight)

	mo.UpdateCounterMove(prev, reply, board.Black)
	if got := mo.CounterMove(prev, board.Black); got != reply {
		t.Errorf("CounterMove = %v, want %v", got, reply)
	}
	if got := mo.CounterMove(prev, board.White); got != board.NullMove {
		t.Errorf("CounterMove for the other color = %v", got)
	}
	if got := mo.CounterMove(board.NullMove, board.Black); got != board.NullMove {
		t.Errorf("CounterMove after a null move = %v", got)
	}
}
