package board

import (
	"fmt"
	"math/bits"
)

// Magic maps the relevant blockers of a slider on one square to a slot in
// the shared attack table.
type Magic struct {
	Mask   Bitboard
	Magic  uint64
	Shift  uint8
	Offset uint32
}

// IndexMode selects how blocker sets are turned into table slots.
type IndexMode uint8

const (
	// IndexMagic hashes with ((occ & mask) * magic) >> shift.
	IndexMagic IndexMode = iota
	// IndexPext extracts the masked blocker bits; it needs no magic.
	IndexPext
)

func (m IndexMode) String() string {
	if m == IndexPext {
		return "pext"
	}
	return "magic"
}

// Known collision-free constants, Pradu Kannan's set.
var bishopMagics = [64]uint64{
	0x0002020202020200, 0x0002020202020000, 0x0004010202000000, 0x0004040080000000,
	0x0001104000000000, 0x0000821040000000, 0x0000410410400000, 0x0000104104104000,
	0x0000040404040400, 0x0000020202020200, 0x0000040102020000, 0x0000040400800000,
	0x0000011040000000, 0x0000008210400000, 0x0000004104104000, 0x0000002082082000,
	0x0004000808080800, 0x0002000404040400, 0x0001000202020200, 0x0000800802004000,
	0x0000800400A00000, 0x0000200100884000, 0x0000400082082000, 0x0000200041041000,
	0x0002080010101000, 0x0001040008080800, 0x0000208004010400, 0x0000404004010200,
	0x0000840000802000, 0x0000404002011000, 0x0000808001041000, 0x0000404000820800,
	0x0001041000202000, 0x0000820800101000, 0x0000104400080800, 0x0000020080080080,
	0x0000404040040100, 0x0000808100020100, 0x0001010100020800, 0x0000808080010400,
	0x0000820820004000, 0x0000410410002000, 0x0000082088001000, 0x0000002011000800,
	0x0000080100400400, 0x0001010101000200, 0x0002020202000400, 0x0001010101000200,
	0x0000410410400000, 0x0000208208200000, 0x0000002084100000, 0x0000000020880000,
	0x0000001002020000, 0x0000040408020000, 0x0004040404040000, 0x0002020202020000,
	0x0000104104104000, 0x0000002082082000, 0x0000000020841000, 0x0000000000208800,
	0x0000000010020200, 0x0000000404080200, 0x0000040404040400, 0x0002020202020200,
}

var rookMagics = [64]uint64{
	0x0080001020400080, 0x0040001000200040, 0x0080081000200080, 0x0080040800100080,
	0x0080020400080080, 0x0080010200040080, 0x0080008001000200, 0x0080002040800100,
	0x0000800020400080, 0x0000400020005000, 0x0000801000200080, 0x0000800800100080,
	0x0000800400080080, 0x0000800200040080, 0x0000800100020080, 0x0000800040800100,
	0x0000208000400080, 0x0000404000201000, 0x0000808010002000, 0x0000808008001000,
	0x0000808004000800, 0x0000808002000400, 0x0000010100020004, 0x0000020000408104,
	0x0000208080004000, 0x0000200040005000, 0x0000100080200080, 0x0000080080100080,
	0x0000040080080080, 0x0000020080040080, 0x0000010080800200, 0x0000800080004100,
	0x0000204000800080, 0x0000200040401000, 0x0000100080802000, 0x0000080080801000,
	0x0000040080800800, 0x0000020080800400, 0x0000020001010004, 0x0000800040800100,
	0x0000204000808000, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000010002008080, 0x0000004081020004,
	0x0000204000800080, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000800100020080, 0x0000800041000080,
	0x00FFFCDDFCED714A, 0x007FFCDDFCED714A, 0x003FFFCDFFD88096, 0x0000040810002101,
	0x0001000204080011, 0x0001000204000801, 0x0001000082000401, 0x0001FFFAABFAD1A2,
}

var (
	rookDirs   = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	bishopDirs = [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

// slidingAttacks ray-traces the attack set, each ray ending on its first blocker.
func slidingAttacks(sq Square, occ Bitboard, dirs *[4][2]int) Bitboard {
	var att Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			s := NewSquare(f, r)
			att |= SquareBB(s)
			if occ.Has(s) {
				break
			}
			f, r = f+d[0], r+d[1]
		}
	}
	return att
}

// relevantMask drops the last square of every ray; a blocker there cannot
// change the attack set.
func relevantMask(sq Square, dirs *[4][2]int) Bitboard {
	var mask Bitboard
	for _, d := range dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f+d[0] >= 0 && f+d[0] < 8 && r+d[1] >= 0 && r+d[1] < 8 {
			mask |= SquareBB(NewSquare(f, r))
			f, r = f+d[0], r+d[1]
		}
	}
	return mask
}

// pext gathers the bits of x selected by mask into the low bits of the result.
func pext(x, mask uint64) uint64 {
	var res uint64
	for bit := uint64(1); mask != 0; bit <<= 1 {
		if x&mask&-mask != 0 {
			res |= bit
		}
		mask &= mask - 1
	}
	return res
}

// pdep scatters the low bits of x onto the set bits of mask.
func pdep(x, mask uint64) uint64 {
	var res uint64
	for bit := uint64(1); mask != 0; bit <<= 1 {
		if x&bit != 0 {
			res |= mask & -mask
		}
		mask &= mask - 1
	}
	return res
}

func (m *Magic) index(occ Bitboard, mode IndexMode) uint32 {
	if mode == IndexPext {
		return uint32(pext(uint64(occ), uint64(m.Mask)))
	}
	return uint32((uint64(occ&m.Mask) * m.Magic) >> m.Shift)
}

// sliderSet carries the blocker subsets and their true attacks for one square.
type sliderSet struct {
	occ []Bitboard
	att []Bitboard
}

func enumerate(sq Square, mask Bitboard, dirs *[4][2]int) sliderSet {
	n := 1 << mask.PopCount()
	set := sliderSet{occ: make([]Bitboard, n), att: make([]Bitboard, n)}
	for i := 0; i < n; i++ {
		occ := Bitboard(pdep(uint64(i), uint64(mask)))
		set.occ[i] = occ
		set.att[i] = slidingAttacks(sq, occ, dirs)
	}
	return set
}

// collides reports whether magic sends two subsets with different attacks
// to the same slot. Subsets sharing an attack set may share a slot.
func collides(set *sliderSet, magic uint64, shift uint8, used []Bitboard, epoch []uint32, gen uint32) bool {
	for i, occ := range set.occ {
		idx := (uint64(occ) * magic) >> shift
		if epoch[idx] != gen {
			epoch[idx] = gen
			used[idx] = set.att[i]
		} else if used[idx] != set.att[i] {
			return true
		}
	}
	return false
}

// findMagic searches sparse random candidates until one maps the subsets
// without a real collision.
func findMagic(mask Bitboard, set *sliderSet, rng *prng) uint64 {
	shift := uint8(64 - mask.PopCount())
	n := len(set.occ)
	used := make([]Bitboard, n)
	epoch := make([]uint32, n)
	for gen := uint32(1); ; gen++ {
		magic := rng.sparse()
		if bits.OnesCount64((uint64(mask)*magic)&0xFF00000000000000) < 6 {
			continue
		}
		if !collides(set, magic, shift, used, epoch, gen) {
			return magic
		}
	}
}

// buildSliders fills the magic records and the shared attack table, rooks
// first and then bishops, offsets assigned square by square.
func (t *Tables) buildSliders(opts Options) {
	rng := newPRNG(opts.Seed)
	var offset uint32
	kinds := []struct {
		magics  *[64]Magic
		dirs    *[4][2]int
		builtin *[64]uint64
		name    string
	}{
		{&t.rook, &rookDirs, &rookMagics, "rook"},
		{&t.bishop, &bishopDirs, &bishopMagics, "bishop"},
	}
	for _, k := range kinds {
		for sq := A1; sq <= H8; sq++ {
			mask := relevantMask(sq, k.dirs)
			set := enumerate(sq, mask, k.dirs)
			m := Magic{Mask: mask, Shift: uint8(64 - mask.PopCount()), Offset: offset}
			if opts.Index == IndexMagic {
				if opts.SearchMagics {
					m.Magic = findMagic(mask, &set, rng)
				} else {
					m.Magic = k.builtin[sq]
					n := len(set.occ)
					if collides(&set, m.Magic, m.Shift, make([]Bitboard, n), make([]uint32, n), 1) {
						panic(fmt.Sprintf("board: %s magic for %v collides", k.name, sq))
					}
				}
			}
			k.magics[sq] = m
			for i, occ := range set.occ {
				t.sliders[offset+m.index(occ, opts.Index)] = set.att[i]
			}
			offset += uint32(len(set.occ))
		}
	}
}
