package board

import (
	"errors"
	"fmt"
	"testing"
)

// walk visits every state reachable within depth plies and calls check on
// each child together with the move that produced it.
func walk(t *testing.T, tables *Tables, s *GameState, depth int, check func(parent, child *GameState, m Move)) {
	if depth == 0 {
		return
	}
	var ml MoveList
	tables.GenerateMoves(s, &ml, GenAll)
	for _, m := range ml.Slice() {
		child := tables.MakeMove(s, m)
		check(s, &child, m)
		if t.Failed() {
			return
		}
		walk(t, tables, &child, depth-1, check)
	}
}

var incrementalFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
}

func TestIncrementalStateMatchesRecomputation(t *testing.T) {
	tables := Default()
	for _, fen := range incrementalFENs {
		t.Run(fen, func(t *testing.T) {
			root := tables.MustParseFEN(fen)
			walk(t, tables, &root, 3, func(parent, child *GameState, m Move) {
				if h := tables.ComputeHash(child); child.Hash != h {
					t.Fatalf("%v from %q: hash %016x, recomputed %016x", m, parent.FEN(), child.Hash, h)
				}
				if k := tables.ComputePawnKey(child); child.PawnKey != k {
					t.Fatalf("%v from %q: pawn key mismatch", m, parent.FEN())
				}
				acc, phase := tables.ComputePSQT(child)
				if child.PSQT != acc || child.Phase != phase {
					t.Fatalf("%v from %q: psqt (%d,%d) phase %d, recomputed (%d,%d) phase %d", m, parent.FEN(),
						child.PSQT.MG(), child.PSQT.EG(), child.Phase, acc.MG(), acc.EG(), phase)
				}
				mover := parent.SideToMove
				if tables.IsAttacked(child, child.KingSquare(mover), child.SideToMove) {
					t.Fatalf("%v from %q leaves the king attacked", m, parent.FEN())
				}
				checkers := tables.AttackersBy(child, child.KingSquare(child.SideToMove), mover, child.All)
				if checkers != child.Checkers {
					t.Fatalf("%v from %q: checkers mismatch", m, parent.FEN())
				}
			})
		})
	}
}

func TestNullMoveKeepsHashConsistent(t *testing.T) {
	tables := Default()
	s := tables.MustParseFEN("rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	n := tables.MakeNullMove(&s)
	if n.Hash != tables.ComputeHash(&n) {
		t.Fatal("null move hash differs from recomputation")
	}
	if n.EnPassant != 0 || n.SideToMove != Black {
		t.Fatalf("null move left ep=%v side=%v", n.EnPassantSquare(), n.SideToMove)
	}
	back := tables.MakeNullMove(&n)
	if back.Hash == s.Hash {
		t.Error("double null move should differ from the original: the ep file was dropped")
	}
}

func TestFENRoundTrip(t *testing.T) {
	tables := Default()
	var fens []string
	for rights := CastlingRights(0); rights <= AllCastling; rights++ {
		fens = append(fens,
			fmt.Sprintf("r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w %v - 0 1", rights),
			fmt.Sprintf("r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R b %v - 7 31", rights))
	}
	fens = append(fens,
		StartFEN,
		"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		"rnbqkbnr/pppp1ppp/8/8/3Pp3/8/PPP1PPPP/RNBQKBNR b KQkq d3 0 3",
		"8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"4k3/8/8/8/8/8/8/4K3 w - - 99 150",
	)
	for _, fen := range fens {
		s, err := tables.ParseFEN(fen)
		if err != nil {
			t.Errorf("ParseFEN(%q): %v", fen, err)
			continue
		}
		if got := s.FEN(); got != fen {
			t.Errorf("round trip: got %q, want %q", got, fen)
		}
	}
}

func TestParseFENRejectsMalformed(t *testing.T) {
	tables := Default()
	tests := []struct {
		name string
		fen  string
	}{
		{"too few fields", "8/8/8/8/8/8/8/8 w"},
		{"seven ranks", "8/8/8/8/8/8/8 w - - 0 1"},
		{"rank overflow", "9/8/8/8/8/8/8/4K2k w - - 0 1"},
		{"bad piece", "4k3/8/8/8/8/8/8/4X2K w - - 0 1"},
		{"bad side", "4k3/8/8/8/8/8/8/4K3 x - - 0 1"},
		{"bad castling", "4k3/8/8/8/8/8/8/4K3 w Z - 0 1"},
		{"castling without rook", "4k3/8/8/8/8/8/8/4K3 w K - 0 1"},
		{"bad ep square", "4k3/8/8/8/8/8/8/4K3 w - e9 0 1"},
		{"ep on wrong rank", "4k3/8/8/8/8/8/8/4K3 w - e3 0 1"},
		{"no black king", "8/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"pawn on last rank", "P3k3/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"opponent in check", "4k3/8/8/8/8/8/8/4R2K w - - 0 1"},
		{"bad clock", "4k3/8/8/8/8/8/8/4K3 w - - x 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tables.ParseFEN(tc.fen)
			if !errors.Is(err, ErrInvalidFEN) {
				t.Errorf("ParseFEN(%q) error = %v, want ErrInvalidFEN", tc.fen, err)
			}
		})
	}
}

func TestMustParseFENPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseFEN accepted garbage")
		}
	}()
	Default().MustParseFEN("not a fen")
}

func TestStatus(t *testing.T) {
	tables := Default()
	tests := []struct {
		name            string
		fen             string
		mate, stalemate bool
	}{
		{"back rank mate", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", true, false},
		{"king takes rook", "6Rk/8/8/8/8/8/8/K7 b - - 0 1", false, false},
		{"stalemate", "7k/5Q2/8/8/8/8/8/K7 b - - 0 1", false, true},
		{"only pawn push left", "7k/5Q2/8/8/8/8/p7/7K b - - 0 1", false, false},
		{"fools mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tables.MustParseFEN(tc.fen)
			mate, stale := tables.Status(&s)
			if mate != tc.mate || stale != tc.stalemate {
				t.Errorf("Status = (%v, %v), want (%v, %v)", mate, stale, tc.mate, tc.stalemate)
			}
		})
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tables := Default()
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1", true},
		{"4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/4KR2 w - - 0 1", false},
	}
	for _, tc := range tests {
		s := tables.MustParseFEN(tc.fen)
		if got := s.IsInsufficientMaterial(); got != tc.want {
			t.Errorf("%s: IsInsufficientMaterial = %v, want %v", tc.fen, got, tc.want)
		}
	}
}

func TestFiftyMoveClock(t *testing.T) {
	tables := Default()
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 99 80", false},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 100 80", true},
		{"4k3/8/8/8/8/8/8/R3K3 b - - 120 90", true},
	}
	for _, tc := range tests {
		s := tables.MustParseFEN(tc.fen)
		if got := s.IsFiftyMoveDraw(); got != tc.want {
			t.Errorf("%s: IsFiftyMoveDraw = %v, want %v", tc.fen, got, tc.want)
		}
	}

	// A capture resets the clock.
	s := tables.MustParseFEN("4k3/8/8/8/8/8/r7/R3K3 w - - 99 80")
	next, err := tables.ApplyMoves(s, []string{"a1a2"})
	if err != nil {
		t.Fatal(err)
	}
	if last := next[len(next)-1]; last.IsFiftyMoveDraw() || last.HalfMoveClock != 0 {
		t.Errorf("after capture: clock %d", last.HalfMoveClock)
	}
}

func TestScorePacking(t *testing.T) {
	for _, tc := range [][2]int{{0, 0}, {1, -1}, {-1, 1}, {-300, 250}, {1025, 936}, {-20000, -30000}, {32000, -32000}} {
		s := S(tc[0], tc[1])
		if s.MG() != tc[0] || s.EG() != tc[1] {
			t.Errorf("S(%d,%d) unpacks to (%d,%d)", tc[0], tc[1], s.MG(), s.EG())
		}
	}
	sum := S(10, -20) + S(-30, 5) - S(7, 7)
	if sum.MG() != -27 || sum.EG() != -22 {
		t.Errorf("packed arithmetic gave (%d,%d)", sum.MG(), sum.EG())
	}
}

func TestStartPositionPhase(t *testing.T) {
	s := Default().StartPosition()
	if s.Phase != MaxPhase {
		t.Errorf("start phase = %d, want %d", s.Phase, MaxPhase)
	}
	if s.PSQT.MG() != 0 || s.PSQT.EG() != 0 {
		t.Errorf("start psqt = (%d,%d), want symmetric zero", s.PSQT.MG(), s.PSQT.EG())
	}
}
