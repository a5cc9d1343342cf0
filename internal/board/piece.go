package board

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// PieceType is a kind of piece, colorless.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType
)

const pieceLetters = "pnbrqk"

// Char returns the lowercase letter used by FEN and UCI promotions.
func (pt PieceType) Char() byte {
	if pt >= NoPieceType {
		return '-'
	}
	return pieceLetters[pt]
}

func (pt PieceType) String() string {
	return string(pt.Char())
}

// Piece is a colored piece, encoded as type + 6*color.
type Piece uint8

const NoPiece Piece = 12

func NewPiece(pt PieceType, c Color) Piece {
	return Piece(pt) + Piece(c)*6
}

func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

func (p Piece) Color() Color {
	return Color(p / 6)
}

// String returns the FEN letter, uppercase for White.
func (p Piece) String() string {
	if p >= NoPiece {
		return "."
	}
	return string("PNBRQKpnbrqk"[p])
}

// PieceFromChar maps a FEN letter to a piece, NoPiece when unknown.
func PieceFromChar(ch byte) Piece {
	for i := 0; i < 12; i++ {
		if "PNBRQKpnbrqk"[i] == ch {
			return Piece(i)
		}
	}
	return NoPiece
}
