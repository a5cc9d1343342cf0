package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (t *Tables) Perft(s *GameState, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var ml MoveList
	t.GenerateMoves(s, &ml, GenAll)
	if depth == 1 {
		return uint64(ml.Count)
	}
	var nodes uint64
	for _, m := range ml.Slice() {
		child := t.MakeMove(s, m)
		nodes += t.Perft(&child, depth-1)
	}
	return nodes
}

// DivideEntry is the subtree count below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs perft per root move, in generation order.
func (t *Tables) Divide(s *GameState, depth int) []DivideEntry {
	moves := t.LegalMoves(s)
	out := make([]DivideEntry, 0, len(moves))
	for _, m := range moves {
		child := t.MakeMove(s, m)
		out = append(out, DivideEntry{Move: m, Nodes: t.Perft(&child, depth-1)})
	}
	return out
}
