package board

import (
	"os"
	"testing"
)

type perftCase struct {
	name  string
	fen   string
	nodes []uint64 // nodes[i] is perft(i+1)
	// fast is the deepest depth run under -short
	fast int
}

var perftSuite = []perftCase{
	{"startpos", StartFEN, []uint64{20, 400, 8902, 197281, 4865609}, 4},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		[]uint64{48, 2039, 97862, 4085603}, 3},
	{"position3", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		[]uint64{14, 191, 2812, 43238, 674624}, 4},
	{"position4", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		[]uint64{6, 264, 9467, 422333}, 3},
	{"position4-mirrored", "r2q1rk1/pP1p2pp/Q4n2/bbp1p3/Np6/1B3NBn/pPPP1PPP/R3K2R b KQ - 0 1",
		[]uint64{6, 264, 9467, 422333}, 3},
	{"position5", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		[]uint64{44, 1486, 62379, 2103487}, 3},
	{"position6", "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		[]uint64{46, 2079, 89890, 3894594}, 3},
	{"ep-rank-pin", "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []uint64{6, 94}, 2},
	{"ep-discovered-check", "8/8/1k6/2b5/2pP4/8/5K2/8 b - d3 0 1",
		[]uint64{0, 0, 0, 0, 0, 1440467}, 0},
	{"avoid-illegal-ep", "3k4/3p4/8/K1P4r/8/8/8/8 b - - 0 1",
		[]uint64{0, 0, 0, 0, 0, 1134888}, 0},
	{"short-castle-check", "5k2/8/8/8/8/8/8/4K2R w K - 0 1",
		[]uint64{0, 0, 0, 0, 0, 661072}, 0},
	{"long-castle-check", "3k4/8/8/8/8/8/8/R3K3 w Q - 0 1",
		[]uint64{0, 0, 0, 0, 0, 803711}, 0},
	{"castle-rights", "r3k2r/1b4bq/8/8/8/8/7B/R3K2R w KQkq - 0 1",
		[]uint64{0, 0, 0, 1274206}, 0},
	{"castle-prevented", "r3k2r/8/3Q4/8/8/5q2/8/R3K2R b KQkq - 0 1",
		[]uint64{0, 0, 0, 1720476}, 0},
	{"promote-out-of-check", "2K2r2/4P3/8/8/8/8/8/3k4 w - - 0 1",
		[]uint64{0, 0, 0, 0, 0, 3821001}, 0},
	{"discovered-check", "8/8/1P2K3/8/2n5/1q6/8/5k2 b - - 0 1",
		[]uint64{0, 0, 0, 0, 1004658}, 0},
	{"promote-to-check", "4k3/1P6/8/8/8/8/K7/8 w - - 0 1",
		[]uint64{0, 0, 0, 0, 0, 217342}, 0},
	{"underpromote-check", "8/P1k5/K7/8/8/8/8/8 w - - 0 1",
		[]uint64{0, 0, 0, 0, 0, 92683}, 0},
	{"self-stalemate", "K1k5/8/P7/8/8/8/8/8 w - - 0 1",
		[]uint64{0, 0, 0, 0, 0, 2217}, 0},
	{"queen-knight-vs-king", "8/8/2k5/5q2/5n2/8/5K2/8 b - - 0 1",
		[]uint64{0, 0, 0, 23527}, 0},
	{"promotion-capture-pinned", "7K/8/8/8/8/2k5/1p6/B1N5 b - - 0 1", []uint64{9}, 1},
}

func TestPerft(t *testing.T) {
	tables := Default()
	for _, tc := range perftSuite {
		t.Run(tc.name, func(t *testing.T) {
			s := tables.MustParseFEN(tc.fen)
			for i, want := range tc.nodes {
				depth := i + 1
				if want == 0 {
					continue
				}
				if testing.Short() && depth > tc.fast {
					t.Skipf("depth %d skipped in short mode", depth)
				}
				if got := tables.Perft(&s, depth); got != want {
					t.Errorf("perft(%d) = %d, want %d", depth, got, want)
				}
			}
		})
	}
}

// TestPerftStartDepth6 is the long run; set CHESSCORE_PERFT6=1 to enable.
func TestPerftStartDepth6(t *testing.T) {
	if os.Getenv("CHESSCORE_PERFT6") == "" {
		t.Skip("CHESSCORE_PERFT6 not set")
	}
	tables := Default()
	s := tables.StartPosition()
	if got := tables.Perft(&s, 6); got != 119060324 {
		t.Errorf("perft(6) = %d, want 119060324", got)
	}
}

func TestPerftIndexModesAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("builds extra tables")
	}
	magic := Default()
	pext := NewTables(Options{Index: IndexPext})
	for _, tc := range perftSuite[:6] {
		s := magic.MustParseFEN(tc.fen)
		if a, b := magic.Perft(&s, 3), pext.Perft(&s, 3); a != b {
			t.Errorf("%s: magic perft %d, pext perft %d", tc.name, a, b)
		}
	}
}

func TestDivideSumsToPerft(t *testing.T) {
	tables := Default()
	s := tables.MustParseFEN(perftSuite[1].fen)
	var sum uint64
	entries := tables.Divide(&s, 3)
	for _, e := range entries {
		sum += e.Nodes
	}
	if len(entries) != 48 {
		t.Errorf("divide has %d root moves, want 48", len(entries))
	}
	if sum != 97862 {
		t.Errorf("divide sum = %d, want 97862", sum)
	}
}
