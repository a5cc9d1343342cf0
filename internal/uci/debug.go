package uci

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
)

// minCachedPerft is the smallest subtree depth worth a database lookup.
const minCachedPerft = 3

// handlePerft prints the node count below every root move, then the total.
func (u *UCI) handlePerft(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: perft needs a depth", ErrSyntax)
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 1 {
		return fmt.Errorf("%w: perft depth %q", ErrSyntax, args[0])
	}

	start := time.Now()
	var total uint64
	for _, e := range u.divide(&u.root, depth) {
		u.printf("%s: %d", e.Move, e.Nodes)
		total += e.Nodes
	}
	elapsed := time.Since(start)
	u.printf("")
	u.printf("Nodes searched: %d", total)

	log.Debug().Int("depth", depth).Uint64("nodes", total).Dur("elapsed", elapsed).Msg("perft finished")
	return nil
}

// divide runs perft per root move. With storage attached, subtree counts
// are read from and written to the perft cache by child FEN.
func (u *UCI) divide(s *board.GameState, depth int) []board.DivideEntry {
	if u.store == nil || depth-1 < minCachedPerft {
		return u.tables.Divide(s, depth)
	}

	moves := u.tables.LegalMoves(s)
	out := make([]board.DivideEntry, 0, len(moves))
	for _, m := range moves {
		child := u.tables.MakeMove(s, m)
		fen := child.FEN()
		nodes, ok, err := u.store.Perft(fen, depth-1)
		if err != nil {
			log.Warn().Err(err).Msg("perft cache read failed")
		}
		if !ok {
			nodes = u.tables.Perft(&child, depth-1)
			if err := u.store.SavePerft(fen, depth-1, nodes); err != nil {
				log.Warn().Err(err).Msg("perft cache write failed")
			}
		}
		out = append(out, board.DivideEntry{Move: m, Nodes: nodes})
	}
	return out
}
