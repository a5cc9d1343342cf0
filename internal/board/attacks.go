package board

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sys/cpu"
)

// Tables is the read-only handle holding every precomputed table the move
// generator, make-move and evaluator need. Build it once and share it;
// nothing mutates it after NewTables returns.
type Tables struct {
	index   IndexMode
	rook    [64]Magic
	bishop  [64]Magic
	sliders []Bitboard

	knight  [64]Bitboard
	king    [64]Bitboard
	pawn    [2][64]Bitboard
	between [64][64]Bitboard
	line    [64][64]Bitboard

	castleMask [64]CastlingRights
	psqt       [2][6][64]Score

	Zobrist Zobrist
}

// Options configures table construction.
type Options struct {
	Index IndexMode
	// SearchMagics ignores the built-in constants and looks for fresh
	// magics with a prng seeded by Seed. Only meaningful with IndexMagic.
	SearchMagics bool
	Seed         uint64
}

// ParseOptions understands the command-line spellings "magic", "search"
// and "pext".
func ParseOptions(s string) (Options, error) {
	switch strings.ToLower(s) {
	case "", "magic":
		return Options{Index: IndexMagic}, nil
	case "search":
		return Options{Index: IndexMagic, SearchMagics: true, Seed: 0x5EED}, nil
	case "pext":
		return Options{Index: IndexPext}, nil
	}
	return Options{}, fmt.Errorf("unknown index mode %q", s)
}

// HasBMI2 reports whether the CPU has a hardware PEXT. The pext index here
// is computed in software either way.
func HasBMI2() bool {
	return cpu.X86.HasBMI2
}

const sliderTableSize = 102400 + 5248

// NewTables builds all tables. It panics if a built-in magic collides,
// which would mean the constant table is corrupt.
func NewTables(opts Options) *Tables {
	t := &Tables{index: opts.Index, sliders: make([]Bitboard, sliderTableSize)}
	t.buildLeapers()
	t.buildRays()
	t.buildSliders(opts)
	t.buildCastleMasks()
	t.buildPSQT()
	t.Zobrist = newZobrist()
	return t
}

var defaultTables = sync.OnceValue(func() *Tables {
	return NewTables(Options{Index: IndexMagic})
})

// Default returns a shared magic-indexed handle, built on first use.
func Default() *Tables {
	return defaultTables()
}

func (t *Tables) IndexMode() IndexMode { return t.index }

func (t *Tables) buildLeapers() {
	for sq := A1; sq <= H8; sq++ {
		b := SquareBB(sq)
		t.king[sq] = b.North() | b.South() | b.East() | b.West() |
			b.NorthEast() | b.NorthWest() | b.SouthEast() | b.SouthWest()

		var n Bitboard
		for _, d := range [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}} {
			f, r := sq.File()+d[0], sq.Rank()+d[1]
			if f >= 0 && f < 8 && r >= 0 && r < 8 {
				n |= SquareBB(NewSquare(f, r))
			}
		}
		t.knight[sq] = n

		t.pawn[White][sq] = b.NorthEast() | b.NorthWest()
		t.pawn[Black][sq] = b.SouthEast() | b.SouthWest()
	}
}

// buildRays fills Between (exclusive) and Line (full board line) for every
// pair of squares sharing a rank, file or diagonal.
func (t *Tables) buildRays() {
	for a := A1; a <= H8; a++ {
		for _, dirs := range []*[4][2]int{&rookDirs, &bishopDirs} {
			for _, d := range dirs {
				var ray Bitboard
				f, r := a.File()+d[0], a.Rank()+d[1]
				for f >= 0 && f < 8 && r >= 0 && r < 8 {
					b := NewSquare(f, r)
					t.between[a][b] = ray
					ray |= SquareBB(b)
					f, r = f+d[0], r+d[1]
				}
			}
		}
	}
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			if a == b {
				continue
			}
			for _, dirs := range []*[4][2]int{&rookDirs, &bishopDirs} {
				// empty-board rays of a and b only overlap on their shared line
				if ra := slidingAttacks(a, 0, dirs); ra.Has(b) {
					t.line[a][b] = ra&slidingAttacks(b, 0, dirs) | SquareBB(a) | SquareBB(b)
				}
			}
		}
	}
}

func (t *Tables) buildCastleMasks() {
	for sq := range t.castleMask {
		t.castleMask[sq] = AllCastling
	}
	t.castleMask[E1] &^= WhiteKingSide | WhiteQueenSide
	t.castleMask[H1] &^= WhiteKingSide
	t.castleMask[A1] &^= WhiteQueenSide
	t.castleMask[E8] &^= BlackKingSide | BlackQueenSide
	t.castleMask[H8] &^= BlackKingSide
	t.castleMask[A8] &^= BlackQueenSide
}

func (t *Tables) KnightAttacks(sq Square) Bitboard { return t.knight[sq] }
func (t *Tables) KingAttacks(sq Square) Bitboard   { return t.king[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func (t *Tables) PawnAttacks(c Color, sq Square) Bitboard { return t.pawn[c][sq] }

func (t *Tables) RookAttacks(sq Square, occ Bitboard) Bitboard {
	m := &t.rook[sq]
	return t.sliders[m.Offset+m.index(occ, t.index)]
}

func (t *Tables) BishopAttacks(sq Square, occ Bitboard) Bitboard {
	m := &t.bishop[sq]
	return t.sliders[m.Offset+m.index(occ, t.index)]
}

func (t *Tables) QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return t.RookAttacks(sq, occ) | t.BishopAttacks(sq, occ)
}

// Between returns the squares strictly between a and b, empty when they
// are not aligned.
func (t *Tables) Between(a, b Square) Bitboard { return t.between[a][b] }

// Line returns the whole board line through a and b, empty when they are
// not aligned.
func (t *Tables) Line(a, b Square) Bitboard { return t.line[a][b] }

// Attacks returns the attack set of a piece type of color c on sq.
func (t *Tables) Attacks(pt PieceType, c Color, sq Square, occ Bitboard) Bitboard {
	switch pt {
	case Pawn:
		return t.pawn[c][sq]
	case Knight:
		return t.knight[sq]
	case Bishop:
		return t.BishopAttacks(sq, occ)
	case Rook:
		return t.RookAttacks(sq, occ)
	case Queen:
		return t.QueenAttacks(sq, occ)
	case King:
		return t.king[sq]
	}
	return 0
}

// AttackersTo returns pieces of both colors attacking sq under occupancy occ.
func (t *Tables) AttackersTo(s *GameState, sq Square, occ Bitboard) Bitboard {
	p := &s.Pieces
	diag := p[White][Bishop] | p[Black][Bishop] | p[White][Queen] | p[Black][Queen]
	orth := p[White][Rook] | p[Black][Rook] | p[White][Queen] | p[Black][Queen]
	return (t.pawn[Black][sq] & p[White][Pawn]) |
		(t.pawn[White][sq] & p[Black][Pawn]) |
		(t.knight[sq] & (p[White][Knight] | p[Black][Knight])) |
		(t.king[sq] & (p[White][King] | p[Black][King])) |
		(t.BishopAttacks(sq, occ) & diag) |
		(t.RookAttacks(sq, occ) & orth)
}

// AttackersBy returns the pieces of color by attacking sq under occupancy occ.
func (t *Tables) AttackersBy(s *GameState, sq Square, by Color, occ Bitboard) Bitboard {
	p := &s.Pieces[by]
	return (t.pawn[by.Other()][sq] & p[Pawn]) |
		(t.knight[sq] & p[Knight]) |
		(t.king[sq] & p[King]) |
		(t.BishopAttacks(sq, occ) & (p[Bishop] | p[Queen])) |
		(t.RookAttacks(sq, occ) & (p[Rook] | p[Queen]))
}

// IsAttacked reports whether color by attacks sq in s.
func (t *Tables) IsAttacked(s *GameState, sq Square, by Color) bool {
	return t.AttackersBy(s, sq, by, s.All) != 0
}

// attackedBy returns every square color by attacks under occupancy occ.
func (t *Tables) attackedBy(s *GameState, by Color, occ Bitboard) Bitboard {
	p := &s.Pieces[by]
	var att Bitboard
	if by == White {
		att = p[Pawn].NorthEast() | p[Pawn].NorthWest()
	} else {
		att = p[Pawn].SouthEast() | p[Pawn].SouthWest()
	}
	for bb := p[Knight]; bb != 0; {
		att |= t.knight[bb.PopLSB()]
	}
	for bb := p[Bishop] | p[Queen]; bb != 0; {
		att |= t.BishopAttacks(bb.PopLSB(), occ)
	}
	for bb := p[Rook] | p[Queen]; bb != 0; {
		att |= t.RookAttacks(bb.PopLSB(), occ)
	}
	for bb := p[King]; bb != 0; {
		att |= t.king[bb.PopLSB()]
	}
	return att
}
