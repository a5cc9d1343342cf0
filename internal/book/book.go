// Package book reads and writes Polyglot opening books.
package book

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/hailam/chesscore/internal/board"
)

const entrySize = 16

// Entry is one Polyglot record. Raw is the move in Polyglot encoding:
// to file, to rank, from file, from rank and promotion, three bits each
// from the low end.
type Entry struct {
	Key    uint64
	Raw    uint16
	Weight uint16
	Learn  uint32
}

// Candidate is a book move that is legal in the probed position.
type Candidate struct {
	Move   board.Move
	Weight uint16
}

// Book is an in-memory Polyglot book, sorted by key.
type Book struct {
	entries []Entry
}

// Open loads a Polyglot book file.
func Open(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read book %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("entries", b.Len()).Msg("opening book loaded")
	return b, nil
}

// Read loads a Polyglot book from r.
func Read(r io.Reader) (*Book, error) {
	b := &Book{}
	var rec [entrySize]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		b.entries = append(b.entries, Entry{
			Key:    binary.BigEndian.Uint64(rec[0:8]),
			Raw:    binary.BigEndian.Uint16(rec[8:10]),
			Weight: binary.BigEndian.Uint16(rec[10:12]),
			Learn:  binary.BigEndian.Uint32(rec[12:16]),
		})
	}
	// Books are sorted on disk; hand-made ones may not be.
	slices.SortStableFunc(b.entries, func(x, y Entry) int { return cmp.Compare(x.Key, y.Key) })
	return b, nil
}

// Len returns the number of records.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

func (b *Book) lookup(key uint64) []Entry {
	i, found := slices.BinarySearchFunc(b.entries, key, func(e Entry, k uint64) int { return cmp.Compare(e.Key, k) })
	if !found {
		return nil
	}
	j := i
	for j < len(b.entries) && b.entries[j].Key == key {
		j++
	}
	return b.entries[i:j]
}

// Moves returns the legal book moves for s, heaviest first. Records whose
// move is not legal in s are skipped.
func (b *Book) Moves(t *board.Tables, s *board.GameState) []Candidate {
	if b == nil {
		return nil
	}
	var out []Candidate
	for _, e := range b.lookup(t.PolyglotKey(s)) {
		m, ok := decodeMove(t, s, e.Raw)
		if !ok {
			continue
		}
		out = append(out, Candidate{Move: m, Weight: e.Weight})
	}
	slices.SortStableFunc(out, func(x, y Candidate) int { return cmp.Compare(y.Weight, x.Weight) })
	return out
}

// Probe picks a book move for s at random, in proportion to the weights.
// When every weight is zero the first move is returned.
func (b *Book) Probe(t *board.Tables, s *board.GameState) (board.Move, bool) {
	moves := b.Moves(t, s)
	if len(moves) == 0 {
		return board.NullMove, false
	}

	total := 0
	for _, c := range moves {
		total += int(c.Weight)
	}
	if total == 0 {
		return moves[0].Move, true
	}

	r := frand.Intn(total)
	for _, c := range moves {
		r -= int(c.Weight)
		if r < 0 {
			return c.Move, true
		}
	}
	return moves[0].Move, true
}

var promoChars = [5]string{"", "n", "b", "r", "q"}

// decodeMove resolves a Polyglot move against the legal moves of s.
// Castling is stored as the king capturing its own rook.
func decodeMove(t *board.Tables, s *board.GameState, raw uint16) (board.Move, bool) {
	to := board.NewSquare(int(raw&7), int(raw>>3&7))
	from := board.NewSquare(int(raw>>6&7), int(raw>>9&7))
	promo := int(raw >> 12 & 7)
	if promo >= len(promoChars) {
		return board.NullMove, false
	}

	if s.PieceAt(from) == board.NewPiece(board.King, s.SideToMove) {
		switch {
		case from == board.E1 && to == board.H1:
			to = board.G1
		case from == board.E1 && to == board.A1:
			to = board.C1
		case from == board.E8 && to == board.H8:
			to = board.G8
		case from == board.E8 && to == board.A8:
			to = board.C8
		}
	}

	m, err := t.ResolveMove(s, from.String()+to.String()+promoChars[promo])
	if err != nil {
		return board.NullMove, false
	}
	return m, true
}

// EncodeMove returns the Polyglot encoding of m.
func EncodeMove(m board.Move) uint16 {
	from, to := m.From(), m.To()
	if m.IsCastling() {
		// King takes rook.
		if to.File() == 6 {
			to = board.NewSquare(7, to.Rank())
		} else {
			to = board.NewSquare(0, to.Rank())
		}
	}
	raw := uint16(to.File()) | uint16(to.Rank())<<3 | uint16(from.File())<<6 | uint16(from.Rank())<<9
	if m.IsPromotion() {
		// Knight..Queen map to 1..4.
		raw |= uint16(m.Promotion()) << 12
	}
	return raw
}

// Write stores entries as a Polyglot file, sorted by key.
func Write(w io.Writer, entries []Entry) error {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(x, y Entry) int { return cmp.Compare(x.Key, y.Key) })

	bw := bufio.NewWriter(w)
	var rec [entrySize]byte
	for _, e := range sorted {
		binary.BigEndian.PutUint64(rec[0:8], e.Key)
		binary.BigEndian.PutUint16(rec[8:10], e.Raw)
		binary.BigEndian.PutUint16(rec[10:12], e.Weight)
		binary.BigEndian.PutUint32(rec[12:16], e.Learn)
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
