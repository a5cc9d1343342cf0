package board

// Score packs a middlegame and an endgame value into one int32 so both
// can be accumulated with a single add.
type Score int32

// S packs mg and eg.
func S(mg, eg int) Score {
	return Score(int32(uint32(eg)<<16) + int32(mg))
}

func (s Score) MG() int { return int(int16(uint16(uint32(s)))) }
func (s Score) EG() int { return int(int16(uint16(uint32(s+0x8000) >> 16))) }

// MaxPhase is the phase of the starting material; larger values are clamped.
const MaxPhase = 24

// PhaseWeight is each piece type's contribution to the game phase.
var PhaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// Material values, middlegame then endgame.
var (
	MaterialMG = [6]int{82, 337, 365, 477, 1025, 0}
	MaterialEG = [6]int{94, 281, 297, 512, 936, 0}
)

// Piece-square tables below are laid out as printed, a8 first, for White.

var pawnMG = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var pawnEG = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	80, 80, 80, 80, 80, 80, 80, 80,
	50, 50, 45, 40, 40, 45, 50, 50,
	30, 28, 24, 20, 20, 24, 28, 30,
	16, 14, 12, 10, 10, 12, 14, 16,
	6, 6, 4, 2, 2, 4, 6, 6,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightMG = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var knightEG = [64]int{
	-50, -35, -25, -20, -20, -25, -35, -50,
	-35, -20, -5, 0, 0, -5, -20, -35,
	-25, -5, 10, 15, 15, 10, -5, -25,
	-20, 0, 15, 20, 20, 15, 0, -20,
	-20, 0, 15, 20, 20, 15, 0, -20,
	-25, -5, 10, 15, 15, 10, -5, -25,
	-35, -20, -5, 0, 0, -5, -20, -35,
	-50, -35, -25, -20, -20, -25, -35, -50,
}

var bishopMG = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var bishopEG = [64]int{
	-15, -10, -8, -5, -5, -8, -10, -15,
	-10, -3, 0, 2, 2, 0, -3, -10,
	-8, 0, 5, 7, 7, 5, 0, -8,
	-5, 2, 7, 10, 10, 7, 2, -5,
	-5, 2, 7, 10, 10, 7, 2, -5,
	-8, 0, 5, 7, 7, 5, 0, -8,
	-10, -3, 0, 2, 2, 0, -3, -10,
	-15, -10, -8, -5, -5, -8, -10, -15,
}

var rookMG = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var rookEG = [64]int{
	5, 5, 5, 5, 5, 5, 5, 5,
	10, 10, 10, 10, 10, 10, 10, 10,
	3, 3, 3, 3, 3, 3, 3, 3,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	-2, -2, -2, -2, -2, -2, -2, -2,
	-4, -4, -4, -4, -4, -4, -4, -4,
	-5, -5, -3, 0, 0, -3, -5, -5,
}

var queenMG = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var queenEG = [64]int{
	-25, -15, -10, -5, -5, -10, -15, -25,
	-15, -5, 0, 5, 5, 0, -5, -15,
	-10, 0, 10, 15, 15, 10, 0, -10,
	-5, 5, 15, 20, 20, 15, 5, -5,
	-5, 5, 15, 20, 20, 15, 5, -5,
	-10, 0, 10, 15, 15, 10, 0, -10,
	-15, -5, 0, 5, 5, 0, -5, -15,
	-25, -15, -10, -5, -5, -10, -15, -25,
}

var kingMG = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEG = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var (
	tablesMG = [6]*[64]int{&pawnMG, &knightMG, &bishopMG, &rookMG, &queenMG, &kingMG}
	tablesEG = [6]*[64]int{&pawnEG, &knightEG, &bishopEG, &rookEG, &queenEG, &kingEG}
)

// buildPSQT folds material into the square tables. White reads the
// printed layout through Mirror; Black reads it directly and is negated,
// so the accumulator is always from White's point of view.
func (t *Tables) buildPSQT() {
	for pt := Pawn; pt <= King; pt++ {
		for sq := A1; sq <= H8; sq++ {
			w := sq.Mirror()
			t.psqt[White][pt][sq] = S(MaterialMG[pt]+tablesMG[pt][w], MaterialEG[pt]+tablesEG[pt][w])
			t.psqt[Black][pt][sq] = -S(MaterialMG[pt]+tablesMG[pt][sq], MaterialEG[pt]+tablesEG[pt][sq])
		}
	}
}

// PSQT returns the accumulator contribution of a piece on a square.
func (t *Tables) PSQT(c Color, pt PieceType, sq Square) Score {
	return t.psqt[c][pt][sq]
}

// ComputePSQT recomputes the piece-square accumulator and the game phase.
func (t *Tables) ComputePSQT(s *GameState) (Score, int) {
	var acc Score
	phase := 0
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for bb := s.Pieces[c][pt]; bb != 0; {
				acc += t.psqt[c][pt][bb.PopLSB()]
				phase += PhaseWeight[pt]
			}
		}
	}
	return acc, phase
}
