package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

func newTestServer(t *testing.T, withStore bool) *Server {
	t.Helper()
	var store *storage.Storage
	if withStore {
		var err error
		if store, err = storage.OpenInMemory(); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { store.Close() })
	}
	return New(engine.New(board.Default(), 8), store)
}

func do(t *testing.T, s *Server, method, target string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("%s %s: content type %q", method, target, ct)
	}
	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: %v", method, target, err)
		}
	}
	return rec.Code
}

func TestLegal(t *testing.T) {
	s := newTestServer(t, false)

	var resp legalResponse
	if code := do(t, s, http.MethodGet, "/api/legal", nil, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.FEN != board.StartFEN || len(resp.Moves) != 20 {
		t.Errorf("start: fen %q, %d moves", resp.FEN, len(resp.Moves))
	}
	found := false
	for _, m := range resp.Moves {
		if m.UCI == "e2e4" && m.SAN == "e4" {
			found = true
		}
	}
	if !found {
		t.Error("e2e4 missing")
	}

	resp = legalResponse{}
	if code := do(t, s, http.MethodGet, "/api/legal?fen=R5k1/5ppp/8/8/8/8/8/6K1+b+-+-+0+1", nil, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(resp.Moves) != 0 || !resp.Checkmate || !resp.InCheck || resp.Stalemate {
		t.Errorf("mated: %+v", resp)
	}

	var e map[string]string
	if code := do(t, s, http.MethodGet, "/api/legal?fen=8/8/8+w", nil, &e); code != http.StatusBadRequest || e["error"] == "" {
		t.Errorf("bad fen: status %d, %v", code, e)
	}
}

func TestPerft(t *testing.T) {
	s := newTestServer(t, true)

	var resp perftResponse
	if code := do(t, s, http.MethodGet, "/api/perft?depth=3", nil, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Nodes != 8902 || len(resp.Divide) != 20 || resp.Cached {
		t.Errorf("first: %+v", resp)
	}
	if resp.Divide["g1f3"] != 440 {
		t.Errorf("g1f3 = %d", resp.Divide["g1f3"])
	}

	resp = perftResponse{}
	do(t, s, http.MethodGet, "/api/perft?depth=3", nil, &resp)
	if resp.Nodes != 8902 || !resp.Cached {
		t.Errorf("second: %+v", resp)
	}

	for _, q := range []string{"", "?depth=0", "?depth=7", "?depth=two", "?depth=1&fen=x"} {
		if code := do(t, s, http.MethodGet, "/api/perft"+q, nil, nil); code != http.StatusBadRequest {
			t.Errorf("%q: status %d", q, code)
		}
	}
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, true)

	var resp searchResponse
	req := searchRequest{Moves: []string{"e2e4", "e7e5"}, Depth: 3}
	if code := do(t, s, http.MethodPost, "/api/search", req, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	tables := board.Default()
	states, err := tables.ApplyMoves(tables.StartPosition(), req.Moves)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tables.ResolveMove(&states[2], resp.BestMove); err != nil {
		t.Errorf("bestmove %q: %v", resp.BestMove, err)
	}
	if resp.Depth != 3 || resp.Cached || len(resp.PV) == 0 || resp.PV[0] != resp.SAN {
		t.Errorf("first: %+v", resp)
	}

	var again searchResponse
	do(t, s, http.MethodPost, "/api/search", searchRequest{FEN: states[2].FEN(), Depth: 2}, &again)
	if !again.Cached || again.BestMove != resp.BestMove {
		t.Errorf("shallower request not served from cache: %+v", again)
	}
}

func TestSearchMate(t *testing.T) {
	s := newTestServer(t, false)
	var resp searchResponse
	do(t, s, http.MethodPost, "/api/search", searchRequest{FEN: "6k1/5ppp/8/8/8/8/8/3R2K1 w - - 0 1", Depth: 3}, &resp)
	if resp.BestMove != "d1d8" || resp.SAN != "Rd8#" || resp.Mate != 1 {
		t.Errorf("got %+v", resp)
	}
}

func TestSearchBadRequest(t *testing.T) {
	s := newTestServer(t, false)
	for _, body := range []any{
		"not an object",
		searchRequest{Moves: []string{"e2e5"}},
		searchRequest{FEN: "nonsense"},
		searchRequest{Depth: -1},
	} {
		var e map[string]string
		if code := do(t, s, http.MethodPost, "/api/search", body, &e); code != http.StatusBadRequest || e["error"] == "" {
			t.Errorf("%v: status %d, %v", body, code, e)
		}
	}
}

func TestSearchLimits(t *testing.T) {
	tests := []struct {
		req     searchRequest
		depth   int
		control engine.TimeControl
	}{
		{searchRequest{}, 0, engine.MoveTime{D: DefaultMoveTime}},
		{searchRequest{Depth: 5}, 5, nil},
		{searchRequest{Depth: 1000}, engine.MaxPly - 1, nil},
		{searchRequest{MoveTime: 200}, 0, engine.MoveTime{D: 200 * time.Millisecond}},
		{searchRequest{Depth: 4, MoveTime: 10 * 60 * 1000}, 4, engine.MoveTime{D: MaxMoveTime}},
	}
	for _, tc := range tests {
		l, err := tc.req.limits()
		if err != nil {
			t.Errorf("%+v: %v", tc.req, err)
			continue
		}
		if l.Depth != tc.depth || l.Control != tc.control {
			t.Errorf("%+v: limits %+v", tc.req, l)
		}
	}
}

func TestNotFoundAndCORS(t *testing.T) {
	s := newTestServer(t, false)
	var e map[string]string
	if code := do(t, s, http.MethodGet, "/api/nothing", nil, &e); code != http.StatusNotFound || e["error"] == "" {
		t.Errorf("status %d, %v", code, e)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/legal", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestAnalyseWebSocket(t *testing.T) {
	s := newTestServer(t, false)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/analyse", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(20 * time.Second))

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatal(err)
	}
	var e wsError
	if err := conn.ReadJSON(&e); err != nil || e.Type != "error" {
		t.Fatalf("bogus message: %+v, %v", e, err)
	}

	if err := conn.WriteJSON(map[string]any{"type": "analyse", "depth": 4}); err != nil {
		t.Fatal(err)
	}
	var depths []int
	for {
		var msg struct {
			Type     string   `json:"type"`
			Depth    int      `json:"depth"`
			BestMove string   `json:"bestmove"`
			UCI      []string `json:"uci"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type == "info" {
			depths = append(depths, msg.Depth)
			if len(msg.UCI) == 0 {
				t.Errorf("info at depth %d has no pv", msg.Depth)
			}
			continue
		}
		if msg.Type != "bestmove" {
			t.Fatalf("unexpected %+v", msg)
		}
		tables := board.Default()
		root := tables.StartPosition()
		if _, err := tables.ResolveMove(&root, msg.BestMove); err != nil {
			t.Errorf("bestmove %q: %v", msg.BestMove, err)
		}
		if msg.Depth != 4 {
			t.Errorf("final depth %d", msg.Depth)
		}
		break
	}
	if len(depths) != 4 || depths[0] != 1 || depths[3] != 4 {
		t.Errorf("info depths %v", depths)
	}
}

func TestBook(t *testing.T) {
	s := newTestServer(t, false)
	if code := do(t, s, http.MethodGet, "/api/book", nil, nil); code != http.StatusNotFound {
		t.Errorf("without book: status %d", code)
	}

	tables := board.Default()
	root := tables.StartPosition()
	d4, err := tables.ResolveMove(&root, "d2d4")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := book.Write(&buf, []book.Entry{{Key: tables.PolyglotKey(&root), Raw: book.EncodeMove(d4), Weight: 7}}); err != nil {
		t.Fatal(err)
	}
	b, err := book.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	s.UseBook(b)

	var resp bookResponse
	if code := do(t, s, http.MethodGet, "/api/book", nil, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(resp.Moves) != 1 || resp.Moves[0] != (bookMove{UCI: "d2d4", SAN: "d4", Weight: 7}) {
		t.Errorf("moves %+v", resp.Moves)
	}
}
