package board

// Zobrist holds the random keys hashed into GameState.Hash.
type Zobrist struct {
	Piece  [2][6][64]uint64
	Side   uint64
	Castle [16]uint64 // indexed by the full rights mask
	EPFile [8]uint64
}

// xorshift64* generator; fixed seeds make keys and searched magics
// reproducible between runs.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &prng{state: seed}
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// sparse returns a candidate with few set bits, which makes good magics.
func (p *prng) sparse() uint64 {
	return p.next() & p.next() & p.next()
}

const zobristSeed = 0x98F107A2BEEF1234

func newZobrist() Zobrist {
	var z Zobrist
	rng := newPRNG(zobristSeed)
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				z.Piece[c][pt][sq] = rng.next()
			}
		}
	}
	z.Side = rng.next()
	for f := range z.EPFile {
		z.EPFile[f] = rng.next()
	}

	// One key per right; a combination is the XOR of its members so that
	// Castle[a]^Castle[b] is exactly the delta of the changed rights.
	var single [4]uint64
	for i := range single {
		single[i] = rng.next()
	}
	for mask := range z.Castle {
		for i := range single {
			if mask&(1<<i) != 0 {
				z.Castle[mask] ^= single[i]
			}
		}
	}
	return z
}

// ComputeHash recomputes the full Zobrist hash of s from scratch.
func (t *Tables) ComputeHash(s *GameState) uint64 {
	z := &t.Zobrist
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := s.Pieces[c][pt]; bb != 0; {
				h ^= z.Piece[c][pt][bb.PopLSB()]
			}
		}
	}
	if s.SideToMove == Black {
		h ^= z.Side
	}
	h ^= z.Castle[s.Castle]
	if s.EnPassant != 0 {
		h ^= z.EPFile[s.EnPassant.LSB().File()]
	}
	return h
}

// ComputePawnKey recomputes the pawn-only hash of s.
func (t *Tables) ComputePawnKey(s *GameState) uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		for bb := s.Pieces[c][Pawn]; bb != 0; {
			h ^= t.Zobrist.Piece[c][Pawn][bb.PopLSB()]
		}
	}
	return h
}
