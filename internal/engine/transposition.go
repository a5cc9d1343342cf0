package engine

import (
	"math"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// Bound tells how a stored score relates to the true value.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // the score is exact
	BoundLower       // failed high, the true value is at least the score
	BoundUpper       // failed low, the true value is at most the score
)

const bucketSlots = 4

// Layout of the data word, low bits first.
const (
	moveBits  = board.MoveBits
	scoreBits = 16
	depthBits = 8
	boundBits = 2
	genBits   = 6

	scoreShift = moveBits
	depthShift = scoreShift + scoreBits
	boundShift = depthShift + depthBits
	genShift   = boundShift + boundBits

	genMask = 1<<genBits - 1
)

// Entry is a decoded table slot.
type Entry struct {
	Move  board.Move
	Score int
	Depth int
	Bound Bound
	Gen   uint8
}

func pack(move board.Move, score, depth int, bound Bound, gen uint8) uint64 {
	depth = max(0, min(depth, 1<<depthBits-1))
	return uint64(move)&(1<<moveBits-1) |
		uint64(uint16(int16(score)))<<scoreShift |
		uint64(depth)<<depthShift |
		uint64(bound)<<boundShift |
		uint64(gen&genMask)<<genShift
}

func unpack(data uint64) Entry {
	return Entry{
		Move:  board.Move(data & (1<<moveBits - 1)),
		Score: int(int16(uint16(data >> scoreShift))),
		Depth: int(uint8(data >> depthShift)),
		Bound: Bound(data >> boundShift & (1<<boundBits - 1)),
		Gen:   uint8(data >> genShift & genMask),
	}
}

// A slot is written as two independent words. check holds key^data, so a
// slot torn between two writers, or holding another position, fails the
// key test on read and counts as a miss.
type ttSlot struct {
	check atomic.Uint64
	data  atomic.Uint64
}

type ttBucket [bucketSlots]ttSlot

// TransTable is the shared transposition table. It takes no locks: every
// access is an atomic load or store of one word.
type TransTable struct {
	buckets []ttBucket
	shift   uint
	gen     atomic.Uint32
	mb      int
}

// NewTransTable sizes the table to the largest power-of-two bucket count
// that fits in mb megabytes. Anything under 1 MB is raised to 1 MB.
func NewTransTable(mb int) *TransTable {
	mb = max(mb, 1)
	const bucketBytes = bucketSlots * 16
	n := uint64(mb) << 20 / bucketBytes
	n = roundDownToPowerOf2(n)
	return &TransTable{
		buckets: make([]ttBucket, n),
		shift:   uint(64 - log2(n)),
		mb:      mb,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func log2(n uint64) int {
	k := 0
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}

// Megabytes returns the size the table was built for.
func (tt *TransTable) Megabytes() int { return tt.mb }

// Buckets returns the number of four-slot buckets.
func (tt *TransTable) Buckets() int { return len(tt.buckets) }

func (tt *TransTable) bucket(key uint64) *ttBucket {
	// High bits pick the bucket; the full key is still verified per slot.
	return &tt.buckets[key>>tt.shift]
}

func (tt *TransTable) generation() uint8 {
	return uint8(tt.gen.Load() & genMask)
}

// Probe looks the key up in its bucket.
func (tt *TransTable) Probe(key uint64) (Entry, bool) {
	b := tt.bucket(key)
	for i := range b {
		data := b[i].data.Load()
		if b[i].check.Load()^data == key && Bound(data>>boundShift&3) != BoundNone {
			return unpack(data), true
		}
	}
	return Entry{}, false
}

// Store records a search result. A slot already holding the key is
// refined; otherwise the slot with the lowest depth, discounted by age,
// is replaced.
func (tt *TransTable) Store(key uint64, depth, score int, bound Bound, move board.Move) {
	b := tt.bucket(key)
	gen := tt.generation()

	victim, worst := 0, math.MaxInt
	for i := range b {
		data := b[i].data.Load()
		if b[i].check.Load()^data == key {
			old := unpack(data)
			if old.Bound != BoundNone && bound != BoundExact && depth < old.Depth-3 && old.Gen == gen {
				return
			}
			if move == board.NullMove {
				move = old.Move
			}
			victim = i
			break
		}
		old := unpack(data)
		v := math.MinInt
		if old.Bound != BoundNone {
			v = old.Depth - 8*ageDistance(gen, old.Gen)
		}
		if v < worst {
			victim, worst = i, v
		}
	}

	data := pack(move, score, depth, bound, gen)
	b[victim].data.Store(data)
	b[victim].check.Store(key ^ data)
}

func ageDistance(now, then uint8) int {
	return int((now - then) & genMask)
}

// NewSearch advances the generation so older entries become preferred
// victims.
func (tt *TransTable) NewSearch() {
	tt.gen.Add(1)
}

// Clear empties every slot. It must not race with a running search.
func (tt *TransTable) Clear() {
	for i := range tt.buckets {
		for j := range tt.buckets[i] {
			tt.buckets[i][j].data.Store(0)
			tt.buckets[i][j].check.Store(0)
		}
	}
	tt.gen.Store(0)
}

// HashFull estimates table occupancy in permille from the first buckets,
// counting only entries of the current generation.
func (tt *TransTable) HashFull() int {
	n := min(250, len(tt.buckets))
	gen := tt.generation()
	used := 0
	for i := 0; i < n; i++ {
		for j := range tt.buckets[i] {
			e := unpack(tt.buckets[i][j].data.Load())
			if e.Bound != BoundNone && e.Gen == gen {
				used++
			}
		}
	}
	return used * 1000 / (n * bucketSlots)
}

// AdjustScoreToTT makes a mate score relative to the node that stores it.
func AdjustScoreToTT(score, ply int) int {
	switch {
	case score >= MateBound:
		return score + ply
	case score <= -MateBound:
		return score - ply
	}
	return score
}

// AdjustScoreFromTT turns a stored mate score back into distance from the root.
func AdjustScoreFromTT(score, ply int) int {
	switch {
	case score >= MateBound:
		return score - ply
	case score <= -MateBound:
		return score + ply
	}
	return score
}
