// Package engine searches GameStates: evaluation, move ordering, the
// shared transposition table and the lazy-SMP driver.
package engine

import "github.com/hailam/chesscore/internal/board"

// Exchange values used by SEE and capture ordering.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Passed pawn bonus by relative rank.
var passedPawnBonus = [8]int{0, 10, 20, 40, 70, 120, 200, 0}

var kingDistanceBonus = [8]int{0, 0, 10, 20, 30, 40, 50, 60}

var (
	passedProtected   = board.S(15, 22)
	passedFreePath    = board.S(30, 45)
	passedUnstoppable = board.S(0, 200)
)

var (
	mobilityMgWeight = [6]int{0, 4, 5, 2, 1, 0}
	mobilityEgWeight = [6]int{0, 3, 4, 4, 2, 0}
)

// King zone attack weights, in safetyTable units of ten.
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

// safetyTable maps accumulated attack units to a middlegame penalty.
var safetyTable = [100]int{
	0, 0, 1, 2, 3, 5, 7, 9, 12, 15,
	18, 22, 26, 30, 35, 39, 44, 50, 56, 62,
	68, 75, 82, 85, 89, 97, 105, 113, 122, 131,
	140, 150, 169, 180, 191, 202, 213, 225, 237, 248,
	260, 272, 283, 295, 307, 319, 330, 342, 354, 366,
	377, 389, 401, 412, 424, 436, 448, 459, 471, 483,
	494, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500,
}

const (
	pawnShieldBonus      = 10
	pawnShieldMissing    = -15
	openFileNearKing     = -20
	semiOpenFileNearKing = -10
)

var (
	doubledPawn   = board.S(-15, -20)
	isolatedPawn  = board.S(-20, -25)
	backwardPawn  = board.S(-15, -10)
	supportedPawn = board.S(8, 6)
)

var (
	rookOpenFile      = board.S(20, 25)
	rookSemiOpenFile  = board.S(10, 15)
	queenOpenFile     = board.S(6, 4)
	queenSemiOpenFile = board.S(3, 2)
	bishopPair        = board.S(25, 50)
)

// knightPawnAdjust is added per knight, indexed by the owner's pawn count.
var knightPawnAdjust = [9]int{-20, -16, -12, -8, -4, 0, 4, 8, 12}

const tempoBonus = 10

// Evaluator scores positions statically. Each search worker owns one; the
// pawn cache inside is not shared.
type Evaluator struct {
	tables *board.Tables
	pawns  *PawnTable
}

// NewEvaluator creates an evaluator with a pawn cache of pawnMB megabytes.
func NewEvaluator(tables *board.Tables, pawnMB int) *Evaluator {
	return &Evaluator{tables: tables, pawns: NewPawnTable(pawnMB)}
}

// Clear drops the pawn cache.
func (e *Evaluator) Clear() { e.pawns.Clear() }

// Evaluate returns the static score from the side to move's point of view.
func (e *Evaluator) Evaluate(s *board.GameState) int {
	score := e.EvaluateWhite(s)
	if s.SideToMove == board.Black {
		score = -score
	}
	return score + tempoBonus
}

// EvaluateWhite returns the tapered score from White's point of view,
// without the tempo bonus.
func (e *Evaluator) EvaluateWhite(s *board.GameState) int {
	total := s.PSQT

	entry := e.pawnStructure(s)
	total += entry.Score
	total += e.passedPawns(s, entry)

	for c := board.White; c <= board.Black; c++ {
		side := e.mobility(s, c) + e.pieces(s, c) + board.S(e.kingSafety(s, c), 0)
		if c == board.White {
			total += side
		} else {
			total -= side
		}
	}

	phase := min(s.Phase, board.MaxPhase)
	return (total.MG()*phase + total.EG()*(board.MaxPhase-phase)) / board.MaxPhase
}

// frontSpan is the set of squares ahead of sq on its file, seen from c.
func frontSpan(c board.Color, sq board.Square) board.Bitboard {
	b := board.SquareBB(sq).Forward(c)
	if c == board.White {
		return b.NorthFill()
	}
	return b.SouthFill()
}

// passedMask covers the file and both neighbours ahead of sq.
func passedMask(c board.Color, sq board.Square) board.Bitboard {
	span := frontSpan(c, sq)
	return span | span.East() | span.West()
}

func pawnAttackSet(pawns board.Bitboard, c board.Color) board.Bitboard {
	if c == board.White {
		return pawns.NorthEast() | pawns.NorthWest()
	}
	return pawns.SouthEast() | pawns.SouthWest()
}

// pawnStructure returns the cached pawn-only terms, computing them on a miss.
func (e *Evaluator) pawnStructure(s *board.GameState) *PawnEntry {
	if entry, ok := e.pawns.Probe(s.PawnKey); ok {
		return entry
	}
	var total board.Score
	var passed [2]board.Bitboard
	for c := board.White; c <= board.Black; c++ {
		score, p := evaluatePawns(s, c)
		passed[c] = p
		if c == board.White {
			total += score
		} else {
			total -= score
		}
	}
	return e.pawns.Store(s.PawnKey, total, passed)
}

func evaluatePawns(s *board.GameState, c board.Color) (score board.Score, passed board.Bitboard) {
	own := s.Pieces[c][board.Pawn]
	enemy := s.Pieces[c.Other()][board.Pawn]
	enemyAttacks := pawnAttackSet(enemy, c.Other())
	defended := pawnAttackSet(own, c)

	for f := 0; f < 8; f++ {
		if n := (own & board.FileMask[f]).PopCount(); n > 1 {
			score += doubledPawn * board.Score(n-1)
		}
	}

	for bb := own; bb != 0; {
		sq := bb.PopLSB()
		adjacent := board.AdjacentFiles(sq.File())

		if defended.Has(sq) {
			score += supportedPawn
		}

		if enemy&passedMask(c, sq) == 0 && own&frontSpan(c, sq) == 0 {
			passed |= board.SquareBB(sq)
			rank := sq.RelativeRank(c)
			score += board.S(passedPawnBonus[rank], passedPawnBonus[rank]*3/2)
			if defended.Has(sq) {
				score += passedProtected
			}
		}

		if own&adjacent == 0 {
			score += isolatedPawn
			continue
		}

		// Backward: every neighbour is ahead and the stop square is
		// covered by an enemy pawn.
		behind := board.SquareBB(sq) | frontSpan(c.Other(), sq)
		stop := board.SquareBB(sq).Forward(c)
		if own&adjacent&(behind.East()|behind.West()|behind) == 0 && stop&enemyAttacks != 0 {
			score += backwardPawn
		}
	}
	return score, passed
}

// passedPawns scores the parts of passed pawns that depend on pieces:
// a clear path, king proximity and the square rule.
func (e *Evaluator) passedPawns(s *board.GameState, entry *PawnEntry) board.Score {
	var total board.Score
	for c := board.White; c <= board.Black; c++ {
		them := c.Other()
		var side board.Score
		ownKing, theirKing := s.KingSquare(c), s.KingSquare(them)
		for bb := entry.Passed[c]; bb != 0; {
			sq := bb.PopLSB()
			rank := sq.RelativeRank(c)
			promo := board.NewSquare(sq.File(), 7)
			if c == board.Black {
				promo = board.NewSquare(sq.File(), 0)
			}

			eg := kingDistanceBonus[7-min(board.Distance(ownKing, sq), 7)] +
				kingDistanceBonus[min(board.Distance(theirKing, promo), 7)]
			side += board.S(0, eg)

			if frontSpan(c, sq)&s.All != 0 {
				continue
			}
			side += passedFreePath

			if rank >= 4 && !s.HasNonPawnMaterial(them) {
				tempo := 0
				if s.SideToMove == c {
					tempo = 1
				}
				if board.Distance(theirKing, promo) > 7-rank+1-tempo {
					side += passedUnstoppable
				}
			}
		}
		if c == board.White {
			total += side
		} else {
			total -= side
		}
	}
	return total
}

func (e *Evaluator) mobility(s *board.GameState, c board.Color) board.Score {
	them := c.Other()
	blocked := s.Occupied[c] | pawnAttackSet(s.Pieces[them][board.Pawn], them)
	mg, eg := 0, 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		for bb := s.Pieces[c][pt]; bb != 0; {
			sq := bb.PopLSB()
			n := (e.tables.Attacks(pt, c, sq, s.All) &^ blocked).PopCount()
			mg += mobilityMgWeight[pt] * n
			eg += mobilityEgWeight[pt] * n
		}
	}
	return board.S(mg, eg)
}

// kingSafety returns the middlegame king safety of c.
func (e *Evaluator) kingSafety(s *board.GameState, c board.Color) int {
	them := c.Other()
	ksq := s.KingSquare(c)
	zone := e.tables.KingAttacks(ksq) | board.SquareBB(ksq)
	zone |= zone.Forward(c)

	attackers, units := 0, 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		for bb := s.Pieces[them][pt]; bb != 0; {
			sq := bb.PopLSB()
			if e.tables.Attacks(pt, them, sq, s.All)&zone != 0 {
				attackers++
				units += attackerWeight[pt] / 10
			}
		}
	}

	score := 0
	if attackers >= 2 {
		score -= safetyTable[min(units*attackers/2, len(safetyTable)-1)]
	}

	own := s.Pieces[c][board.Pawn]
	enemy := s.Pieces[them][board.Pawn]
	shield := board.RankMask[1] | board.RankMask[2]
	if c == board.Black {
		shield = board.RankMask[6] | board.RankMask[5]
	}
	for f := max(ksq.File()-1, 0); f <= min(ksq.File()+1, 7); f++ {
		file := board.FileMask[f]
		switch {
		case own&file&shield != 0:
			score += pawnShieldBonus
		case own&file == 0:
			score += pawnShieldMissing
		}
		if own&file == 0 {
			if enemy&file == 0 {
				score += openFileNearKing
			} else {
				score += semiOpenFileNearKing
			}
		}
	}
	return score
}

// pieces collects the file, pair and knight terms of c.
func (e *Evaluator) pieces(s *board.GameState, c board.Color) board.Score {
	var score board.Score
	own := s.Pieces[c][board.Pawn]
	enemy := s.Pieces[c.Other()][board.Pawn]

	for bb := s.Pieces[c][board.Rook]; bb != 0; {
		file := board.FileMask[bb.PopLSB().File()]
		if own&file == 0 {
			if enemy&file == 0 {
				score += rookOpenFile
			} else {
				score += rookSemiOpenFile
			}
		}
	}
	for bb := s.Pieces[c][board.Queen]; bb != 0; {
		file := board.FileMask[bb.PopLSB().File()]
		if own&file == 0 {
			if enemy&file == 0 {
				score += queenOpenFile
			} else {
				score += queenSemiOpenFile
			}
		}
	}

	if s.Pieces[c][board.Bishop].PopCount() >= 2 {
		score += bishopPair
	}

	knights := s.Pieces[c][board.Knight].PopCount()
	adj := knightPawnAdjust[min(own.PopCount(), 8)] * knights
	score += board.S(adj, adj)
	return score
}

// SEE estimates the material balance of the exchange that m starts on its
// target square, from the mover's point of view. Quiet moves are scored
// as an exchange that begins with nothing captured.
func SEE(t *board.Tables, s *board.GameState, m board.Move) int {
	from, to := m.From(), m.To()
	us := s.SideToMove

	var gain [32]int
	gain[0] = pieceValues[m.Captured()]
	attackerValue := pieceValues[m.Piece()]
	if m.IsPromotion() {
		gain[0] += pieceValues[m.Promotion()] - PawnValue
		attackerValue = pieceValues[m.Promotion()]
	}

	occ := s.All &^ board.SquareBB(from)
	if m.IsEnPassant() {
		occ &^= board.SquareBB(to).Forward(us.Other())
	}
	side := us.Other()

	d := 0
	for d < len(gain)-1 {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}
		sq, pt := leastValuableAttacker(t, s, to, side, occ)
		if sq == board.NoSquare {
			break
		}
		occ &^= board.SquareBB(sq)
		attackerValue = pieceValues[pt]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds side's cheapest piece attacking target
// through occ. Sliders behind removed pieces show up as occ shrinks.
func leastValuableAttacker(t *board.Tables, s *board.GameState, target board.Square, side board.Color, occ board.Bitboard) (board.Square, board.PieceType) {
	p := &s.Pieces[side]
	if bb := p[board.Pawn] & t.PawnAttacks(side.Other(), target) & occ; bb != 0 {
		return bb.LSB(), board.Pawn
	}
	if bb := p[board.Knight] & t.KnightAttacks(target) & occ; bb != 0 {
		return bb.LSB(), board.Knight
	}
	diag := t.BishopAttacks(target, occ)
	if bb := p[board.Bishop] & diag & occ; bb != 0 {
		return bb.LSB(), board.Bishop
	}
	straight := t.RookAttacks(target, occ)
	if bb := p[board.Rook] & straight & occ; bb != 0 {
		return bb.LSB(), board.Rook
	}
	if bb := p[board.Queen] & (diag | straight) & occ; bb != 0 {
		return bb.LSB(), board.Queen
	}
	if bb := p[board.King] & t.KingAttacks(target) & occ; bb != 0 {
		return bb.LSB(), board.King
	}
	return board.NoSquare, board.NoPieceType
}
