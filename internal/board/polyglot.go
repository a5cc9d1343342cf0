package board

import (
	"encoding/binary"

	"github.com/corentings/chess/v2"
)

// polyglotTable follows the Polyglot key layout: 768 piece keys ordered
// black pawn, white pawn, black knight, ... white king, then four castling
// keys, eight en-passant file keys and the side key.
type polyglotTable struct {
	piece  [12][64]uint64
	castle [4]uint64
	ep     [8]uint64
	side   uint64
}

var polyglotKeys = func() *polyglotTable {
	key := func(i int) uint64 {
		return binary.BigEndian.Uint64(chess.GetPolyglotHashBytes(i))
	}
	pk := &polyglotTable{}
	for kind := range pk.piece {
		for sq := range pk.piece[kind] {
			pk.piece[kind][sq] = key(64*kind + sq)
		}
	}
	for i := range pk.castle {
		pk.castle[i] = key(768 + i)
	}
	for i := range pk.ep {
		pk.ep[i] = key(772 + i)
	}
	pk.side = key(780)
	return pk
}()

// PolyglotKey hashes s the way opening books index positions. The
// en-passant file only counts when a pawn of the side to move could
// actually capture there.
func (t *Tables) PolyglotKey(s *GameState) uint64 {
	pk := polyglotKeys
	var h uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			kind := 2*int(pt) + int(c^1)
			for bb := s.Pieces[c][pt]; bb != 0; {
				h ^= pk.piece[kind][bb.PopLSB()]
			}
		}
	}
	for i := range pk.castle {
		if s.Castle&(1<<i) != 0 {
			h ^= pk.castle[i]
		}
	}
	if s.EnPassant != 0 {
		ep := s.EnPassant.LSB()
		them := s.SideToMove.Other()
		if t.pawn[them][ep]&s.Pieces[s.SideToMove][Pawn] != 0 {
			h ^= pk.ep[ep.File()]
		}
	}
	if s.SideToMove == White {
		h ^= pk.side
	}
	return h
}
