package board

import "strings"

// SAN formats a legal move of s in standard algebraic notation.
func (t *Tables) SAN(s *GameState, m Move) string {
	if m == NullMove {
		return "--"
	}
	var sb strings.Builder
	from, to, pt := m.From(), m.To(), m.Piece()

	switch {
	case m.IsCastling() && to > from:
		sb.WriteString("O-O")
	case m.IsCastling():
		sb.WriteString("O-O-O")
	default:
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(t.disambiguate(s, m))
		} else if m.IsCapture() {
			sb.WriteByte(byte('a' + from.File()))
		}
		if m.IsCapture() {
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	child := t.MakeMove(s, m)
	if child.InCheck() {
		if mate, _ := t.Status(&child); mate {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('+')
		}
	}
	return sb.String()
}

// disambiguate returns the file, rank or square needed to tell m apart
// from other pieces of the same type reaching the same square.
func (t *Tables) disambiguate(s *GameState, m Move) string {
	var ml MoveList
	t.GenerateMoves(s, &ml, GenAll)
	sameFile, sameRank, clash := false, false, false
	for _, o := range ml.Slice() {
		if o.To() != m.To() || o.From() == m.From() || o.Piece() != m.Piece() {
			continue
		}
		clash = true
		sameFile = sameFile || o.From().File() == m.From().File()
		sameRank = sameRank || o.From().Rank() == m.From().Rank()
	}
	switch {
	case !clash:
		return ""
	case !sameFile:
		return string(rune('a' + m.From().File()))
	case !sameRank:
		return string(rune('1' + m.From().Rank()))
	}
	return m.From().String()
}

// SANLine formats a move sequence played from s.
func (t *Tables) SANLine(s GameState, moves []Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, t.SAN(&s, m))
		s = t.MakeMove(&s, m)
	}
	return out
}
