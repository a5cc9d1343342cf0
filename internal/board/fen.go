package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN wraps every FEN parsing failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN builds a root state. The move counters may be omitted and
// default to "0 1".
func (t *Tables) ParseFEN(fen string) (GameState, error) {
	var s GameState
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return s, fmt.Errorf("%w: want 4 to 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	if err := parsePlacement(&s, fields[0]); err != nil {
		return s, err
	}

	switch fields[1] {
	case "w":
		s.SideToMove = White
	case "b":
		s.SideToMove = Black
	default:
		return s, fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if fields[2] != "-" {
		for _, ch := range fields[2] {
			i := strings.IndexRune("KQkq", ch)
			if i < 0 {
				return s, fmt.Errorf("%w: castling %q", ErrInvalidFEN, fields[2])
			}
			s.Castle |= 1 << i
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
		}
		s.EnPassant = SquareBB(sq)
	}

	s.FullMoveNumber = 1
	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return s, fmt.Errorf("%w: half-move clock %q", ErrInvalidFEN, fields[4])
		}
		s.HalfMoveClock = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return s, fmt.Errorf("%w: full-move number %q", ErrInvalidFEN, fields[5])
		}
		s.FullMoveNumber = n
	}

	if err := t.validate(&s); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	t.finish(&s)
	return s, nil
}

// MustParseFEN is ParseFEN for trusted input; it panics on error.
func (t *Tables) MustParseFEN(fen string) GameState {
	s, err := t.ParseFEN(fen)
	if err != nil {
		panic(err)
	}
	return s
}

// StartPosition returns the initial position.
func (t *Tables) StartPosition() GameState {
	return t.MustParseFEN(StartFEN)
}

func parsePlacement(s *GameState, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: %d ranks", ErrInvalidFEN, len(ranks))
	}
	for i, row := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			p := PieceFromChar(ch)
			if p == NoPiece {
				return fmt.Errorf("%w: piece %q", ErrInvalidFEN, ch)
			}
			if file > 7 {
				return fmt.Errorf("%w: rank %d overflows", ErrInvalidFEN, rank+1)
			}
			s.put(p.Color(), p.Type(), NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}
	return nil
}

// FEN formats the state as a six-field FEN.
func (s *GameState) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := s.PieceAt(NewSquare(file, rank))
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	fmt.Fprintf(&sb, " %v %v %v %d %d", s.SideToMove, s.Castle, s.EnPassantSquare(),
		s.HalfMoveClock, s.FullMoveNumber)
	return sb.String()
}
