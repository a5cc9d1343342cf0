package board

// Move packs a move into 23 bits:
//
//	bits  0-5   from square
//	bits  6-11  to square
//	bits 12-14  moving piece type
//	bits 15-17  captured piece type, NoPieceType for none
//	bits 18-20  promotion piece type, NoPieceType for none
//	bits 21-22  kind
//
// A move only has meaning against the state it was generated from.
type Move uint32

// MoveKind distinguishes the special moves.
type MoveKind uint32

const (
	KindNormal MoveKind = iota
	KindPromotion
	KindEnPassant
	KindCastling
)

// NullMove is the empty move; no legal move has from == to.
const NullMove Move = 0

// MoveBits is the number of significant bits in a Move.
const MoveBits = 23

func newMove(from, to Square, pt, captured, promo PieceType, kind MoveKind) Move {
	return Move(from) | Move(to)<<6 | Move(pt)<<12 | Move(captured)<<15 |
		Move(promo)<<18 | Move(kind)<<21
}

// NewQuiet builds a non-capturing move of a piece.
func NewQuiet(from, to Square, pt PieceType) Move {
	return newMove(from, to, pt, NoPieceType, NoPieceType, KindNormal)
}

// NewCapture builds a capture of the captured piece type.
func NewCapture(from, to Square, pt, captured PieceType) Move {
	return newMove(from, to, pt, captured, NoPieceType, KindNormal)
}

// NewPromotion builds a pawn promotion, captured is NoPieceType for a push.
func NewPromotion(from, to Square, promo, captured PieceType) Move {
	return newMove(from, to, Pawn, captured, promo, KindPromotion)
}

func NewEnPassant(from, to Square) Move {
	return newMove(from, to, Pawn, Pawn, NoPieceType, KindEnPassant)
}

// NewCastling builds a castling move from the king's origin and target squares.
func NewCastling(from, to Square) Move {
	return newMove(from, to, King, NoPieceType, NoPieceType, KindCastling)
}

func (m Move) From() Square         { return Square(m & 0x3F) }
func (m Move) To() Square           { return Square((m >> 6) & 0x3F) }
func (m Move) Piece() PieceType     { return PieceType((m >> 12) & 7) }
func (m Move) Captured() PieceType  { return PieceType((m >> 15) & 7) }
func (m Move) Promotion() PieceType { return PieceType((m >> 18) & 7) }
func (m Move) Kind() MoveKind       { return MoveKind((m >> 21) & 3) }

func (m Move) IsCapture() bool   { return m.Captured() != NoPieceType }
func (m Move) IsPromotion() bool { return m.Kind() == KindPromotion }
func (m Move) IsEnPassant() bool { return m.Kind() == KindEnPassant }
func (m Move) IsCastling() bool  { return m.Kind() == KindCastling }

// IsQuiet reports a move that neither captures nor promotes.
func (m Move) IsQuiet() bool {
	return !m.IsCapture() && !m.IsPromotion()
}

// IsTactical reports the moves emitted in capture-only generation.
func (m Move) IsTactical() bool {
	return m.IsCapture() || m.IsPromotion()
}

// String formats the move in UCI long algebraic notation, "0000" for NullMove.
func (m Move) String() string {
	if m == NullMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// MoveList is a fixed-capacity move buffer that never allocates.
type MoveList struct {
	Moves  [256]Move
	Scores [256]int32
	Count  int
}

func (ml *MoveList) add(m Move) {
	ml.Moves[ml.Count] = m
	ml.Count++
}

func (ml *MoveList) Len() int { return ml.Count }

func (ml *MoveList) Clear() { ml.Count = 0 }

// Slice returns a view of the generated moves.
func (ml *MoveList) Slice() []Move {
	return ml.Moves[:ml.Count]
}

func (ml *MoveList) Contains(m Move) bool {
	for _, x := range ml.Moves[:ml.Count] {
		if x == m {
			return true
		}
	}
	return false
}

// Swap exchanges two moves together with their scores.
func (ml *MoveList) Swap(i, j int) {
	ml.Moves[i], ml.Moves[j] = ml.Moves[j], ml.Moves[i]
	ml.Scores[i], ml.Scores[j] = ml.Scores[j], ml.Scores[i]
}
