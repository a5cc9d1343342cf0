package engine

import (
	"strings"
	"testing"

	"github.com/hailam/chesscore/internal/board"
)

// mirrorFEN flips the board vertically and swaps the colors, producing the
// same position seen from the other side.
func mirrorFEN(t *testing.T, fen string) string {
	t.Helper()
	f := strings.Fields(fen)
	if len(f) < 4 {
		t.Fatalf("short fen %q", fen)
	}

	ranks := strings.Split(f[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	placement := swapCase(strings.Join(ranks, "/"))

	side := "w"
	if f[1] == "w" {
		side = "b"
	}

	castle := "-"
	if f[2] != "-" {
		var b strings.Builder
		swapped := swapCase(f[2])
		for _, c := range "KQkq" {
			if strings.ContainsRune(swapped, c) {
				b.WriteRune(c)
			}
		}
		castle = b.String()
	}

	ep := f[3]
	if ep != "-" {
		rank := ep[1]
		if rank == '3' {
			rank = '6'
		} else {
			rank = '3'
		}
		ep = string([]byte{ep[0], rank})
	}

	out := []string{placement, side, castle, ep}
	return strings.Join(append(out, f[4:]...), " ")
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		}
		return r
	}, s)
}

var evalFENs = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	"6k1/5ppp/8/3P4/8/8/5PPP/6K1 b - - 0 40",
	"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
}

func TestEvaluateSymmetry(t *testing.T) {
	tables := board.Default()
	e := NewEvaluator(tables, 1)
	for _, fen := range evalFENs {
		t.Run(fen, func(t *testing.T) {
			s := tables.MustParseFEN(fen)
			m := tables.MustParseFEN(mirrorFEN(t, fen))

			white, mirrored := e.EvaluateWhite(&s), e.EvaluateWhite(&m)
			if white != -mirrored {
				t.Errorf("EvaluateWhite = %d, mirrored = %d", white, mirrored)
			}
			if got, want := e.Evaluate(&s), e.Evaluate(&m); got != want {
				t.Errorf("side-to-move scores differ: %d vs %d", got, want)
			}
		})
	}
}

func TestEvaluateStartPosition(t *testing.T) {
	tables := board.Default()
	e := NewEvaluator(tables, 1)
	s := tables.StartPosition()
	if got := e.EvaluateWhite(&s); got != 0 {
		t.Errorf("EvaluateWhite(start) = %d, want 0", got)
	}
	if got := e.Evaluate(&s); got != tempoBonus {
		t.Errorf("Evaluate(start) = %d, want %d", got, tempoBonus)
	}
}

func TestEvaluateMaterial(t *testing.T) {
	tables := board.Default()
	e := NewEvaluator(tables, 1)

	up := tables.MustParseFEN("rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if got := e.EvaluateWhite(&up); got < 600 {
		t.Errorf("queen up scores %d", got)
	}

	black := tables.MustParseFEN("rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
	if got := e.Evaluate(&black); got > -600 {
		t.Errorf("queen down for the side to move scores %d", got)
	}
}

func TestEvaluatePassedPawnGrows(t *testing.T) {
	tables := board.Default()
	e := NewEvaluator(tables, 1)
	far := tables.MustParseFEN("4k3/8/8/8/8/8/P7/4K3 w - - 0 1")
	near := tables.MustParseFEN("4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	if a, b := e.EvaluateWhite(&far), e.EvaluateWhite(&near); b <= a {
		t.Errorf("advanced passer %d not better than home passer %d", b, a)
	}
}

func TestPawnCacheConsistent(t *testing.T) {
	tables := board.Default()
	e := NewEvaluator(tables, 1)
	for _, fen := range evalFENs {
		s := tables.MustParseFEN(fen)
		first := e.EvaluateWhite(&s)
		if _, ok := e.pawns.Probe(s.PawnKey); !ok {
			t.Errorf("%s: pawn entry not cached", fen)
		}
		if again := e.EvaluateWhite(&s); again != first {
			t.Errorf("%s: cached eval %d, fresh %d", fen, again, first)
		}
		e.Clear()
		if again := e.EvaluateWhite(&s); again != first {
			t.Errorf("%s: eval after Clear %d, before %d", fen, again, first)
		}
	}
}

func TestSEE(t *testing.T) {
	tables := board.Default()
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"free pawn", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", PawnValue},
		{"queen takes defended pawn", "4k3/2p5/3p4/8/8/8/3Q4/4K3 w - - 0 1", "d2d6", PawnValue - QueenValue},
		{"rook takes defended knight", "4k3/8/2p5/3n4/8/8/8/3RK3 w - - 0 1", "d1d5", KnightValue - RookValue},
		{"x-ray recapture", "3r3k/8/8/3p4/8/8/3R4/3R2K1 w - - 0 1", "d2d5", PawnValue},
		{"quiet move into pawn attack", "4k3/8/8/4p3/8/8/8/3QK3 w - - 0 1", "d1d4", -QueenValue},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", PawnValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tables.MustParseFEN(tc.fen)
			m, err := tables.ResolveMove(&s, tc.move)
			if err != nil {
				t.Fatal(err)
			}
			if got := SEE(tables, &s, m); got != tc.want {
				t.Errorf("SEE(%s) = %d, want %d", tc.move, got, tc.want)
			}
		})
	}
}
