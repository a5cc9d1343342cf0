package engine

import "github.com/hailam/chesscore/internal/board"

// PawnEntry caches the static part of the pawn structure term.
type PawnEntry struct {
	Key    uint64
	Score  board.Score // White's view
	Passed [2]board.Bitboard
}

// PawnTable is a per-worker cache indexed by the pawn key. It is not safe
// for concurrent use.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
}

// NewPawnTable creates a table of roughly sizeMB megabytes.
func NewPawnTable(sizeMB int) *PawnTable {
	const entrySize = 32
	numEntries := max(sizeMB, 1) * 1024 * 1024 / entrySize

	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &PawnTable{
		entries: make([]PawnEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe returns the entry for key, if cached.
func (pt *PawnTable) Probe(key uint64) (*PawnEntry, bool) {
	e := &pt.entries[key&pt.mask]
	return e, e.Key == key
}

// Store overwrites the slot for key.
func (pt *PawnTable) Store(key uint64, score board.Score, passed [2]board.Bitboard) *PawnEntry {
	e := &pt.entries[key&pt.mask]
	*e = PawnEntry{Key: key, Score: score, Passed: passed}
	return e
}

func (pt *PawnTable) Clear() {
	clear(pt.entries)
}
