package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

type legalMove struct {
	UCI string `json:"uci"`
	SAN string `json:"san"`
}

type legalResponse struct {
	FEN       string      `json:"fen"`
	Moves     []legalMove `json:"moves"`
	InCheck   bool        `json:"in_check"`
	Checkmate bool        `json:"checkmate"`
	Stalemate bool        `json:"stalemate"`
}

func (s *Server) legalHandler(w http.ResponseWriter, r *http.Request) {
	pos, _, err := s.position(r.URL.Query().Get("fen"), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mate, stale := s.tables.Status(&pos)
	writeJSON(w, http.StatusOK, legalResponse{
		FEN: pos.FEN(),
		Moves: lo.Map(s.tables.LegalMoves(&pos), func(m board.Move, _ int) legalMove {
			return legalMove{UCI: m.String(), SAN: s.tables.SAN(&pos, m)}
		}),
		InCheck:   pos.InCheck(),
		Checkmate: mate,
		Stalemate: stale,
	})
}

type perftResponse struct {
	FEN    string            `json:"fen"`
	Depth  int               `json:"depth"`
	Nodes  uint64            `json:"nodes"`
	Divide map[string]uint64 `json:"divide,omitempty"`
	Cached bool              `json:"cached"`
	TimeMS int64             `json:"time_ms"`
}

func (s *Server) perftHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	depth, err := strconv.Atoi(q.Get("depth"))
	if err != nil || depth < 1 || depth > MaxPerftDepth {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: depth must be 1..%d", errBadRequest, MaxPerftDepth))
		return
	}
	pos, _, err := s.position(q.Get("fen"), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fen := pos.FEN()
	resp := perftResponse{FEN: fen, Depth: depth}
	start := time.Now()

	if s.store != nil {
		nodes, ok, err := s.store.Perft(fen, depth)
		if err != nil {
			log.Warn().Err(err).Msg("perft cache read failed")
		}
		if ok {
			resp.Nodes, resp.Cached = nodes, true
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	resp.Divide = make(map[string]uint64)
	for _, e := range s.tables.Divide(&pos, depth) {
		resp.Divide[e.Move.String()] = e.Nodes
		resp.Nodes += e.Nodes
	}
	resp.TimeMS = time.Since(start).Milliseconds()

	if s.store != nil {
		if err := s.store.SavePerft(fen, depth, resp.Nodes); err != nil {
			log.Warn().Err(err).Msg("perft cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	FEN      string   `json:"fen"`
	Moves    []string `json:"moves"`
	Depth    int      `json:"depth"`
	MoveTime int      `json:"movetime"`
}

type searchResponse struct {
	FEN      string   `json:"fen"`
	BestMove string   `json:"bestmove"`
	SAN      string   `json:"san,omitempty"`
	Score    int      `json:"score"`
	Mate     int      `json:"mate,omitempty"`
	Depth    int      `json:"depth"`
	Nodes    uint64   `json:"nodes"`
	TimeMS   int64    `json:"time_ms"`
	PV       []string `json:"pv"`
	Cached   bool     `json:"cached"`
}

// limits turns a request into engine limits. Without a depth or a time
// the search gets DefaultMoveTime.
func (req *searchRequest) limits() (engine.Limits, error) {
	if req.Depth < 0 || req.MoveTime < 0 {
		return engine.Limits{}, fmt.Errorf("%w: negative depth or movetime", errBadRequest)
	}
	l := engine.Limits{Depth: min(req.Depth, engine.MaxPly-1)}
	mt := time.Duration(req.MoveTime) * time.Millisecond
	if mt == 0 && l.Depth == 0 {
		mt = DefaultMoveTime
	}
	if mt > 0 {
		l.Control = engine.MoveTime{D: min(mt, MaxMoveTime)}
	}
	return l, nil
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	resp, err := s.analyse(r.Context(), &req, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// analyse runs one search for req. A stored analysis at least as deep as
// a depth-only request is returned without searching. onInfo, if set,
// receives every completed iteration.
func (s *Server) analyse(ctx context.Context, req *searchRequest, onInfo func(engine.Info)) (*searchResponse, error) {
	limits, err := req.limits()
	if err != nil {
		return nil, err
	}
	pos, history, err := s.position(req.FEN, req.Moves)
	if err != nil {
		return nil, err
	}
	fen := pos.FEN()

	if s.store != nil && limits.Depth > 0 && limits.Control == nil {
		a, ok, err := s.store.Analysis(fen)
		if err != nil {
			log.Warn().Err(err).Msg("analysis cache read failed")
		}
		if ok && a.Depth >= limits.Depth {
			return cachedResponse(a), nil
		}
	}

	s.searchMu.Lock()
	s.eng.OnInfo = onInfo
	res, err := s.eng.Search(ctx, pos, history, limits)
	s.eng.OnInfo = nil
	s.searchMu.Unlock()
	if err != nil {
		return nil, err
	}

	resp := &searchResponse{
		FEN:    fen,
		Score:  res.Score,
		Depth:  res.Depth,
		Nodes:  res.Nodes,
		TimeMS: res.Time.Milliseconds(),
		PV:     s.tables.SANLine(pos, res.PV),
	}
	if res.Move != board.NullMove {
		resp.BestMove = res.Move.String()
		resp.SAN = s.tables.SAN(&pos, res.Move)
	}
	if engine.IsMateScore(res.Score) {
		resp.Mate = engine.MateIn(res.Score)
	}

	if s.store != nil && res.Move != board.NullMove {
		_, err := s.store.SaveAnalysis(&storage.Analysis{
			FEN:   fen,
			Move:  resp.BestMove,
			Score: res.Score,
			Depth: res.Depth,
			Nodes: res.Nodes,
			PV:    resp.PV,
		})
		if err != nil {
			log.Warn().Err(err).Msg("analysis cache write failed")
		}
	}
	return resp, nil
}

func cachedResponse(a *storage.Analysis) *searchResponse {
	resp := &searchResponse{
		FEN:      a.FEN,
		BestMove: a.Move,
		Score:    a.Score,
		Depth:    a.Depth,
		Nodes:    a.Nodes,
		PV:       a.PV,
		Cached:   true,
	}
	if len(a.PV) > 0 {
		resp.SAN = a.PV[0]
	}
	if engine.IsMateScore(a.Score) {
		resp.Mate = engine.MateIn(a.Score)
	}
	return resp
}

type bookMove struct {
	UCI    string `json:"uci"`
	SAN    string `json:"san"`
	Weight uint16 `json:"weight"`
}

type bookResponse struct {
	FEN   string     `json:"fen"`
	Moves []bookMove `json:"moves"`
}

func (s *Server) bookHandler(w http.ResponseWriter, r *http.Request) {
	if s.book == nil {
		writeError(w, http.StatusNotFound, errors.New("no opening book loaded"))
		return
	}
	pos, _, err := s.position(r.URL.Query().Get("fen"), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{
		FEN: pos.FEN(),
		Moves: lo.Map(s.book.Moves(s.tables, &pos), func(c book.Candidate, _ int) bookMove {
			return bookMove{UCI: c.Move.String(), SAN: s.tables.SAN(&pos, c.Move), Weight: c.Weight}
		}),
	})
}
