package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// wsMessage is sent by the client: "analyse" starts a search, replacing
// any running one, and "stop" ends the running search early.
type wsMessage struct {
	Type string `json:"type"`
	searchRequest
}

type wsInfo struct {
	Type     string   `json:"type"`
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth"`
	Score    int      `json:"score"`
	Mate     int      `json:"mate,omitempty"`
	Nodes    uint64   `json:"nodes"`
	NPS      uint64   `json:"nps"`
	HashFull int      `json:"hashfull"`
	PV       []string `json:"pv"`
	UCI      []string `json:"uci"`
}

type wsResult struct {
	Type string `json:"type"`
	searchResponse
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// wsClient is one analysis connection. Writes come from the read loop and
// from the search goroutine.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

func (c *wsClient) send(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		log.Debug().Err(err).Msg("websocket write failed")
	}
}

// stop cancels the running search and waits for its result message.
func (c *wsClient) stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel, c.done = nil, nil
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket connected")

	c := &wsClient{conn: conn}
	defer func() {
		c.stop()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(wsError{Type: "error", Error: err.Error()})
			continue
		}

		switch msg.Type {
		case "stop":
			c.stop()
		case "analyse", "":
			c.stop()
			ctx, cancel := context.WithCancel(context.Background())
			c.cancel, c.done = cancel, make(chan struct{})
			go s.streamSearch(ctx, c, msg.searchRequest, c.done)
		default:
			c.send(wsError{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

func (s *Server) streamSearch(ctx context.Context, c *wsClient, req searchRequest, done chan struct{}) {
	defer close(done)

	// The root is parsed again inside analyse; this copy only renders
	// the streamed PVs in SAN.
	pos, _, err := s.position(req.FEN, req.Moves)
	if err != nil {
		c.send(wsError{Type: "error", Error: err.Error()})
		return
	}
	onInfo := func(info engine.Info) {
		msg := wsInfo{
			Type:     "info",
			Depth:    info.Depth,
			SelDepth: info.SelDepth,
			Score:    info.Score,
			Nodes:    info.Nodes,
			NPS:      info.NPS(),
			HashFull: info.HashFull,
			PV:       s.tables.SANLine(pos, info.PV),
			UCI:      pvStrings(info.PV),
		}
		if engine.IsMateScore(info.Score) {
			msg.Mate = engine.MateIn(info.Score)
		}
		c.send(msg)
	}

	resp, err := s.analyse(ctx, &req, onInfo)
	if err != nil {
		c.send(wsError{Type: "error", Error: err.Error()})
		return
	}
	c.send(wsResult{Type: "bestmove", searchResponse: *resp})
}

// pvStrings renders moves in coordinate notation.
func pvStrings(pv []board.Move) []string {
	return lo.Map(pv, func(m board.Move, _ int) string { return m.String() })
}
