// Package server lets remote clients play over a websocket.
//
// Every connection gets its own Session driven by session.Run on the
// connection's goroutine. Clients send {"action":"turn-up"} style messages and
// receive a Snapshot as JSON each time the visible state changes.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/session"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 512
	inputBuffer    = 16
)

type Options struct {
	// Store is shared by every connection and must be safe for concurrent use.
	Store session.HighScoreStore
	// Listeners, if set, is called once per connection for that Session's
	// listeners. Listeners that implement io.Closer are closed when the
	// connection ends.
	Listeners func() []session.Listener
	// Seed makes food placement reproducible per connection; 0 means time based.
	Seed   int64
	Frame  time.Duration
	Logger *slog.Logger
}

type Server struct {
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader

	active atomic.Int64
	total  atomic.Int64
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Frame <= 0 {
		opts.Frame = session.DefaultFrame
	}
	return &Server{
		opts: opts,
		log:  opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser clients are served from anywhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler routes GET / to server info and GET /play to the game socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /play", s.handlePlay)
	return mux
}

// Info is the body of GET /.
type Info struct {
	Name           string   `json:"name"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	HighScore      int      `json:"high_score"`
	ActiveSessions int64    `json:"active_sessions"`
	TotalSessions  int64    `json:"total_sessions"`
	Actions        []string `json:"actions"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := Info{
		Name:           "snek5110",
		Width:          game.Width,
		Height:         game.Height,
		ActiveSessions: s.active.Load(),
		TotalSessions:  s.total.Load(),
	}
	for _, a := range []session.Action{session.TurnUp, session.TurnDown, session.TurnLeft, session.TurnRight, session.PauseToggle, session.Confirm} {
		info.Actions = append(info.Actions, a.String())
	}
	if s.opts.Store != nil {
		if hs, err := s.opts.Store.Load(); err == nil {
			info.HighScore = hs
		} else {
			s.log.Warn("high score unavailable", "err", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		s.log.Debug("write info failed", "err", err)
	}
}

// ClientMessage is what players send.
type ClientMessage struct {
	Action string `json:"action"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	n := s.total.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	log := s.log.With("conn", n, "remote", r.RemoteAddr)
	log.Info("player connected")
	defer log.Info("player disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var rng *rand.Rand
	if s.opts.Seed != 0 {
		rng = rand.New(rand.NewSource(s.opts.Seed + n))
	}
	opts := session.Options{Rand: rng, Store: s.opts.Store, Logger: log}
	if s.opts.Listeners != nil {
		opts.Listeners = s.opts.Listeners()
	}
	sess := session.New(opts)

	actions := make(chan session.Action, inputBuffer)
	go s.readLoop(ctx, cancel, conn, actions, log)

	out := &socketRenderer{conn: conn, cancel: cancel, log: log}
	_ = session.Run(ctx, sess, actions, out, s.opts.Frame)

	for _, l := range opts.Listeners {
		if c, ok := l.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn("listener close failed", "err", err)
			}
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readLoop forwards parsed actions until the socket fails. Unknown actions are
// dropped.
func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- session.Action, log *slog.Logger) {
	defer cancel()
	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", "err", err)
			}
			return
		}
		a, ok := session.ParseAction(msg.Action)
		if !ok {
			log.Debug("unknown action", "action", msg.Action)
			continue
		}
		select {
		case out <- a:
		case <-ctx.Done():
			return
		}
	}
}

// socketRenderer sends a Snapshot whenever something visible changed since the
// last one it sent. Only the Run goroutine writes to the connection.
type socketRenderer struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	log    *slog.Logger

	sent bool
	last frameKey
}

type frameKey struct {
	gameID    string
	phase     session.Phase
	tick      int64
	score     int
	highScore int
}

func (r *socketRenderer) Render(snap session.Snapshot) {
	k := frameKey{snap.GameID, snap.Phase, snap.Tick, snap.Score, snap.HighScore}
	if r.sent && k == r.last {
		return
	}
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := r.conn.WriteJSON(snap); err != nil {
		r.log.Debug("write failed", "err", err)
		r.cancel()
		return
	}
	r.sent = true
	r.last = k
}
