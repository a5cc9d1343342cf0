// Package server exposes the engine over HTTP and WebSocket for analysis
// front ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// Request limits
const (
	MaxPerftDepth   = 6
	MaxMoveTime     = 60 * time.Second
	DefaultMoveTime = time.Second
)

var errBadRequest = errors.New("bad request")

// Server routes the analysis API. Searches are serialized: the engine has
// one transposition table and one info callback.
type Server struct {
	router   *mux.Router
	tables   *board.Tables
	eng      *engine.Engine
	store    *storage.Storage
	book     *book.Book
	upgrader websocket.Upgrader

	searchMu sync.Mutex
}

// New creates a server. store may be nil, which disables caching.
func New(eng *engine.Engine, store *storage.Storage) *Server {
	s := &Server{
		router: mux.NewRouter(),
		tables: eng.Tables(),
		eng:    eng,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.Use(requestLogger)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/legal", s.legalHandler).Methods(http.MethodGet)
	api.HandleFunc("/perft", s.perftHandler).Methods(http.MethodGet)
	api.HandleFunc("/search", s.searchHandler).Methods(http.MethodPost)
	api.HandleFunc("/book", s.bookHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/analyse", s.wsHandler)
	return s
}

// UseBook serves b from /api/book.
func (s *Server) UseBook(b *book.Book) {
	s.book = b
}

// Handler returns the router wrapped with CORS for browser clients.
func (s *Server) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(s.router)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("analysis server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.eng.Stop()
		return srv.Shutdown(shutdown)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		log.Debug().
			Str("method", p.Request.Method).
			Str("path", p.URL.Path).
			Int("status", p.StatusCode).
			Int("size", p.Size).
			Dur("elapsed", time.Since(p.TimeStamp)).
			Msg("request")
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("writing response failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// position parses fen, or the start position when fen is empty, and plays
// moves from it. It returns the final position and the hashes of the
// positions before it.
func (s *Server) position(fen string, moves []string) (board.GameState, []uint64, error) {
	root := s.tables.StartPosition()
	if fen != "" {
		var err error
		if root, err = s.tables.ParseFEN(fen); err != nil {
			return root, nil, err
		}
	}
	states, err := s.tables.ApplyMoves(root, moves)
	if err != nil {
		return root, nil, err
	}
	history := make([]uint64, 0, len(states)-1)
	for _, st := range states[:len(states)-1] {
		history = append(history, st.Hash)
	}
	return states[len(states)-1], history, nil
}
