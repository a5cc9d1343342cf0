package board

import (
	"fmt"
	"strings"
)

// CastlingRights is a set of the four castling permissions.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}

// GameState is one position. It is a plain value: make-move copies it and
// returns the child, the parent is never modified.
type GameState struct {
	Pieces   [2][6]Bitboard
	Occupied [2]Bitboard
	All      Bitboard

	SideToMove Color
	Castle     CastlingRights
	// EnPassant holds the square a pawn just skipped, or nothing.
	EnPassant      Bitboard
	HalfMoveClock  int
	FullMoveNumber int

	Hash    uint64
	PawnKey uint64
	PSQT    Score
	Phase   int

	// Checkers attack the king of the side to move.
	Checkers Bitboard
}

// PieceAt returns the piece on sq, or NoPiece.
func (s *GameState) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if s.All&bb == 0 {
		return NoPiece
	}
	c := White
	if s.Occupied[Black]&bb != 0 {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if s.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// typeOn returns the piece type of color c on sq, NoPieceType when absent.
func (s *GameState) typeOn(c Color, sq Square) PieceType {
	bb := SquareBB(sq)
	if s.Occupied[c]&bb == 0 {
		return NoPieceType
	}
	for pt := Pawn; pt < King; pt++ {
		if s.Pieces[c][pt]&bb != 0 {
			return pt
		}
	}
	return King
}

func (s *GameState) KingSquare(c Color) Square {
	return s.Pieces[c][King].LSB()
}

func (s *GameState) InCheck() bool {
	return s.Checkers != 0
}

// EnPassantSquare returns the en-passant target or NoSquare.
func (s *GameState) EnPassantSquare() Square {
	return s.EnPassant.LSB()
}

// HasNonPawnMaterial reports whether c has a piece other than pawns and king.
func (s *GameState) HasNonPawnMaterial(c Color) bool {
	p := &s.Pieces[c]
	return p[Knight]|p[Bishop]|p[Rook]|p[Queen] != 0
}

// IsInsufficientMaterial reports dead positions: bare kings, a single minor
// piece, or bishops that all stand on one square color.
func (s *GameState) IsInsufficientMaterial() bool {
	w, b := &s.Pieces[White], &s.Pieces[Black]
	if w[Pawn]|b[Pawn]|w[Rook]|b[Rook]|w[Queen]|b[Queen] != 0 {
		return false
	}
	knights := w[Knight] | b[Knight]
	bishops := w[Bishop] | b[Bishop]
	if knights == 0 {
		return bishops&LightSquares == 0 || bishops&DarkSquares == 0
	}
	return bishops == 0 && !knights.Several()
}

// IsFiftyMoveDraw reports the fifty-move rule; mate on the hundredth ply
// still wins, the caller checks that.
func (s *GameState) IsFiftyMoveDraw() bool {
	return s.HalfMoveClock >= 100
}

// String draws the board with the FEN and hash underneath.
func (s *GameState) String() string {
	var sb strings.Builder
	sb.WriteString("\n +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			p := s.PieceAt(NewSquare(file, rank))
			ch := " "
			if p != NoPiece {
				ch = p.String()
			}
			fmt.Fprintf(&sb, " | %s", ch)
		}
		fmt.Fprintf(&sb, " | %d\n +---+---+---+---+---+---+---+---+\n", rank+1)
	}
	sb.WriteString("   a   b   c   d   e   f   g   h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", s.FEN(), s.Hash)
	if s.Checkers != 0 {
		sb.WriteString("Checkers:")
		for bb := s.Checkers; bb != 0; {
			fmt.Fprintf(&sb, " %v", bb.PopLSB())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// put adds a piece without touching the incremental fields.
func (s *GameState) put(c Color, pt PieceType, sq Square) {
	bb := SquareBB(sq)
	s.Pieces[c][pt] |= bb
	s.Occupied[c] |= bb
	s.All |= bb
}

// validate checks the structural facts the generator relies on.
func (t *Tables) validate(s *GameState) error {
	for c := White; c <= Black; c++ {
		if n := s.Pieces[c][King].PopCount(); n != 1 {
			return fmt.Errorf("%v has %d kings", c, n)
		}
	}
	if (s.Pieces[White][Pawn]|s.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("pawn on first or last rank")
	}
	them := s.SideToMove.Other()
	if t.IsAttacked(s, s.KingSquare(them), s.SideToMove) {
		return fmt.Errorf("side not to move is in check")
	}
	if s.EnPassant != 0 {
		ep := s.EnPassant.LSB()
		want := 5
		if s.SideToMove == Black {
			want = 2
		}
		if ep.Rank() != want {
			return fmt.Errorf("en-passant square %v on wrong rank", ep)
		}
	}
	for c := White; c <= Black; c++ {
		home := [2]Square{E1, E8}[c]
		rooks := [2][2]Square{{H1, A1}, {H8, A8}}[c]
		rights := [2][2]CastlingRights{{WhiteKingSide, WhiteQueenSide}, {BlackKingSide, BlackQueenSide}}[c]
		for i := range rooks {
			if s.Castle&rights[i] == 0 {
				continue
			}
			if !s.Pieces[c][King].Has(home) || !s.Pieces[c][Rook].Has(rooks[i]) {
				return fmt.Errorf("castling right %v without king and rook at home", rights[i])
			}
		}
	}
	return nil
}

// finish derives the hash, pawn key, accumulators and checkers of a state
// built piece by piece.
func (t *Tables) finish(s *GameState) {
	s.Hash = t.ComputeHash(s)
	s.PawnKey = t.ComputePawnKey(s)
	s.PSQT, s.Phase = t.ComputePSQT(s)
	s.Checkers = t.AttackersBy(s, s.KingSquare(s.SideToMove), s.SideToMove.Other(), s.All)
}
