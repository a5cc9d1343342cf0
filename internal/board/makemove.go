package board

import "fmt"

// toggle flips a piece on or off sq and keeps the hash, pawn key,
// accumulator and phase in step. sign is +1 when adding, -1 when removing.
func (s *GameState) toggle(t *Tables, c Color, pt PieceType, sq Square, sign int) {
	bb := SquareBB(sq)
	s.Pieces[c][pt] ^= bb
	s.Occupied[c] ^= bb
	s.All ^= bb
	key := t.Zobrist.Piece[c][pt][sq]
	s.Hash ^= key
	if pt == Pawn {
		s.PawnKey ^= key
	}
	if sign > 0 {
		s.PSQT += t.psqt[c][pt][sq]
		s.Phase += PhaseWeight[pt]
	} else {
		s.PSQT -= t.psqt[c][pt][sq]
		s.Phase -= PhaseWeight[pt]
	}
}

func (s *GameState) relocate(t *Tables, c Color, pt PieceType, from, to Square) {
	s.toggle(t, c, pt, from, -1)
	s.toggle(t, c, pt, to, +1)
}

// castleRook returns the rook's origin and target for a castling king
// landing on kingTo.
func castleRook(kingTo Square) (Square, Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	case C8:
		return A8, D8
	}
	panic(fmt.Sprintf("board: castling to invalid square %v", kingTo))
}

// MakeMove returns the state after m. m must be legal in s; it is not
// checked again.
func (t *Tables) MakeMove(s *GameState, m Move) GameState {
	n := *s
	us, them := s.SideToMove, s.SideToMove.Other()
	from, to, pt := m.From(), m.To(), m.Piece()
	z := &t.Zobrist

	n.HalfMoveClock++
	if n.EnPassant != 0 {
		n.Hash ^= z.EPFile[n.EnPassant.LSB().File()]
		n.EnPassant = 0
	}

	if captured := m.Captured(); captured != NoPieceType {
		capSq := to
		if m.IsEnPassant() {
			if us == White {
				capSq = to - 8
			} else {
				capSq = to + 8
			}
		}
		n.toggle(t, them, captured, capSq, -1)
		n.HalfMoveClock = 0
	}

	switch m.Kind() {
	case KindPromotion:
		n.toggle(t, us, Pawn, from, -1)
		n.toggle(t, us, m.Promotion(), to, +1)
	case KindCastling:
		rookFrom, rookTo := castleRook(to)
		n.relocate(t, us, King, from, to)
		n.relocate(t, us, Rook, rookFrom, rookTo)
	default:
		n.relocate(t, us, pt, from, to)
	}

	if pt == Pawn {
		n.HalfMoveClock = 0
		if to == from+16 || from == to+16 {
			ep := (from + to) / 2
			n.EnPassant = SquareBB(ep)
			n.Hash ^= z.EPFile[ep.File()]
		}
	}

	if rights := n.Castle & t.castleMask[from] & t.castleMask[to]; rights != n.Castle {
		n.Hash ^= z.Castle[n.Castle] ^ z.Castle[rights]
		n.Castle = rights
	}

	if us == Black {
		n.FullMoveNumber++
	}
	n.SideToMove = them
	n.Hash ^= z.Side
	n.Checkers = t.AttackersBy(&n, n.KingSquare(them), us, n.All)
	return n
}

// MakeNullMove passes the turn. It is only valid when s is not in check.
func (t *Tables) MakeNullMove(s *GameState) GameState {
	n := *s
	if n.EnPassant != 0 {
		n.Hash ^= t.Zobrist.EPFile[n.EnPassant.LSB().File()]
		n.EnPassant = 0
	}
	n.HalfMoveClock++
	n.SideToMove = s.SideToMove.Other()
	n.Hash ^= t.Zobrist.Side
	n.Checkers = t.AttackersBy(&n, n.KingSquare(n.SideToMove), s.SideToMove, n.All)
	return n
}
