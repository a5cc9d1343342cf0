package board

import (
	"errors"
	"fmt"
)

// GenMode selects which legal moves GenerateMoves emits.
type GenMode uint8

const (
	GenAll GenMode = iota
	// GenCaptures emits captures, en passant and promotions only.
	GenCaptures
)

// GenInfo carries the facts learned while generating. HasLegal covers all
// legal moves even when only captures were emitted, so mate and stalemate
// can be told apart without a second pass.
type GenInfo struct {
	InCheck  bool
	HasLegal bool
}

// ErrIllegalMove is returned when a move string matches no legal move.
var ErrIllegalMove = errors.New("illegal move")

// GenerateMoves fills ml with the strictly legal moves of s. The order is
// fixed: king moves, pawns, knights, bishops, rooks, queens, castling, each
// group by ascending origin and target square.
func (t *Tables) GenerateMoves(s *GameState, ml *MoveList, mode GenMode) GenInfo {
	ml.Clear()
	us, them := s.SideToMove, s.SideToMove.Other()
	own, enemy := s.Occupied[us], s.Occupied[them]
	ksq := s.KingSquare(us)
	info := GenInfo{InCheck: s.Checkers != 0}

	// The king is lifted off the board so that it cannot shelter behind
	// itself on a slider's ray.
	unsafe := t.attackedBy(s, them, s.All&^SquareBB(ksq))

	kingTo := t.king[ksq] &^ own &^ unsafe
	info.HasLegal = kingTo != 0
	if mode == GenCaptures {
		kingTo &= enemy
	}
	t.addMoves(s, ml, King, ksq, kingTo)

	if s.Checkers.Several() {
		return info
	}

	checkMask := Universe
	if s.Checkers != 0 {
		checkMask = s.Checkers | t.between[ksq][s.Checkers.LSB()]
	}

	// Enemy sliders seen from the king through our own pieces; a single
	// own piece between king and sniper is pinned.
	var pinned Bitboard
	snipers := t.RookAttacks(ksq, enemy)&(s.Pieces[them][Rook]|s.Pieces[them][Queen]) |
		t.BishopAttacks(ksq, enemy)&(s.Pieces[them][Bishop]|s.Pieces[them][Queen])
	for snipers != 0 {
		blockers := t.between[ksq][snipers.PopLSB()] & s.All
		if blockers != 0 && !blockers.Several() {
			pinned |= blockers
		}
	}

	if t.genPawns(s, ml, mode, checkMask, pinned) {
		info.HasLegal = true
	}

	for pt := Knight; pt <= Queen; pt++ {
		for bb := s.Pieces[us][pt]; bb != 0; {
			from := bb.PopLSB()
			to := t.Attacks(pt, us, from, s.All) &^ own & checkMask
			if pinned.Has(from) {
				to &= t.line[ksq][from]
			}
			if to == 0 {
				continue
			}
			info.HasLegal = true
			if mode == GenCaptures {
				to &= enemy
			}
			t.addMoves(s, ml, pt, from, to)
		}
	}

	if mode == GenAll && s.Checkers == 0 {
		t.genCastling(s, ml, unsafe)
	}
	return info
}

func (t *Tables) addMoves(s *GameState, ml *MoveList, pt PieceType, from Square, targets Bitboard) {
	them := s.SideToMove.Other()
	for targets != 0 {
		to := targets.PopLSB()
		if captured := s.typeOn(them, to); captured != NoPieceType {
			ml.add(NewCapture(from, to, pt, captured))
		} else {
			ml.add(NewQuiet(from, to, pt))
		}
	}
}

func addPromotions(ml *MoveList, from, to Square, captured PieceType) {
	ml.add(NewPromotion(from, to, Queen, captured))
	ml.add(NewPromotion(from, to, Rook, captured))
	ml.add(NewPromotion(from, to, Bishop, captured))
	ml.add(NewPromotion(from, to, Knight, captured))
}

// genPawns emits pawn moves and reports whether any legal pawn move exists.
func (t *Tables) genPawns(s *GameState, ml *MoveList, mode GenMode, checkMask, pinned Bitboard) bool {
	us, them := s.SideToMove, s.SideToMove.Other()
	enemy := s.Occupied[them]
	empty := ^s.All
	ksq := s.KingSquare(us)

	startRank, lastRank := Rank2, Rank8
	if us == Black {
		startRank, lastRank = Rank7, Rank1
	}

	found := false
	for bb := s.Pieces[us][Pawn]; bb != 0; {
		from := bb.PopLSB()
		allowed := checkMask
		if pinned.Has(from) {
			allowed &= t.line[ksq][from]
		}
		fromBB := SquareBB(from)

		push := fromBB.Forward(us) & empty
		if push != 0 && fromBB&startRank != 0 {
			push |= push.Forward(us) & empty
		}
		push &= allowed
		caps := t.pawn[us][from] & enemy & allowed

		if push|caps != 0 {
			found = true
		}

		for caps != 0 {
			to := caps.PopLSB()
			captured := s.typeOn(them, to)
			if SquareBB(to)&lastRank != 0 {
				addPromotions(ml, from, to, captured)
			} else {
				ml.add(NewCapture(from, to, Pawn, captured))
			}
		}
		for push != 0 {
			to := push.PopLSB()
			if SquareBB(to)&lastRank != 0 {
				addPromotions(ml, from, to, NoPieceType)
			} else if mode == GenAll {
				ml.add(NewQuiet(from, to, Pawn))
			}
		}

		if s.EnPassant != 0 && t.pawn[us][from]&s.EnPassant != 0 && t.legalEnPassant(s, from) {
			found = true
			ml.add(NewEnPassant(from, s.EnPassant.LSB()))
		}
	}
	return found
}

// legalEnPassant replays the capture on the occupancy and looks for any
// attack on the king. This covers the pinned capturer, the checker being
// the captured pawn, and the rank pin through both pawns.
func (t *Tables) legalEnPassant(s *GameState, from Square) bool {
	us, them := s.SideToMove, s.SideToMove.Other()
	to := s.EnPassant.LSB()
	capSq := to - 8
	if us == Black {
		capSq = to + 8
	}
	occ := s.All&^SquareBB(from)&^SquareBB(capSq) | SquareBB(to)
	ksq := s.KingSquare(us)
	p := &s.Pieces[them]
	return t.knight[ksq]&p[Knight] == 0 &&
		t.pawn[us][ksq]&(p[Pawn]&^SquareBB(capSq)) == 0 &&
		t.RookAttacks(ksq, occ)&(p[Rook]|p[Queen]) == 0 &&
		t.BishopAttacks(ksq, occ)&(p[Bishop]|p[Queen]) == 0
}

type castlePath struct {
	right  CastlingRights
	king   Square
	to     Square
	rook   Square
	empty  Bitboard // must hold no piece
	unsafe Bitboard // king path, must not be attacked
}

var castlePaths = [2][2]castlePath{
	{
		{WhiteKingSide, E1, G1, H1, SquareBB(F1) | SquareBB(G1), SquareBB(F1) | SquareBB(G1)},
		{WhiteQueenSide, E1, C1, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(C1) | SquareBB(D1)},
	},
	{
		{BlackKingSide, E8, G8, H8, SquareBB(F8) | SquareBB(G8), SquareBB(F8) | SquareBB(G8)},
		{BlackQueenSide, E8, C8, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(C8) | SquareBB(D8)},
	},
}

func (t *Tables) genCastling(s *GameState, ml *MoveList, unsafe Bitboard) {
	us := s.SideToMove
	for i := range castlePaths[us] {
		cp := &castlePaths[us][i]
		if s.Castle&cp.right == 0 || !s.Pieces[us][Rook].Has(cp.rook) || !s.Pieces[us][King].Has(cp.king) {
			continue
		}
		if s.All&cp.empty != 0 || unsafe&cp.unsafe != 0 {
			continue
		}
		ml.add(NewCastling(cp.king, cp.to))
	}
}

// LegalMoves returns a fresh slice of all legal moves.
func (t *Tables) LegalMoves(s *GameState) []Move {
	var ml MoveList
	t.GenerateMoves(s, &ml, GenAll)
	return append([]Move(nil), ml.Slice()...)
}

// Status reports whether the side to move is checkmated or stalemated.
func (t *Tables) Status(s *GameState) (checkmate, stalemate bool) {
	var ml MoveList
	info := t.GenerateMoves(s, &ml, GenCaptures)
	if info.HasLegal {
		return false, false
	}
	return info.InCheck, !info.InCheck
}

// ResolveMove finds the legal move written as UCI text, e.g. "e7e8q".
func (t *Tables) ResolveMove(s *GameState, text string) (Move, error) {
	var ml MoveList
	t.GenerateMoves(s, &ml, GenAll)
	for _, m := range ml.Slice() {
		if m.String() == text {
			return m, nil
		}
	}
	return NullMove, fmt.Errorf("%w: %q in %s", ErrIllegalMove, text, s.FEN())
}

// ApplyMoves resolves and plays a sequence of UCI moves from s, returning
// every state reached, s included.
func (t *Tables) ApplyMoves(s GameState, moves []string) ([]GameState, error) {
	states := make([]GameState, 1, len(moves)+1)
	states[0] = s
	for _, text := range moves {
		m, err := t.ResolveMove(&s, text)
		if err != nil {
			return nil, err
		}
		s = t.MakeMove(&s, m)
		states = append(states, s)
	}
	return states, nil
}
