package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwrk-planet/tempvoice/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

type GeneratorLister interface {
	List(ctx context.Context, guildID string) ([]domain.GeneratorCategory, error)
	Rooms(ctx context.Context, guildID, categoryID string) ([]string, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	tokens   TokenVerifier
	gens     GeneratorLister
	log      *slog.Logger

	pingEvery time.Duration
	outbox    int
}

func NewServer(hub *Hub, tokens TokenVerifier, gens GeneratorLister, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:    hub,
		tokens: tokens,
		gens:   gens,
		log:    log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		outbox:    64,
	}
}

// WS endpoint: GET /ws/guilds/{guildID}/events?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if accessToken == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	subject, err := s.tokens.Verify(accessToken)
	if err != nil {
		http.Error(w, "invalid access_token", http.StatusUnauthorized)
		return
	}
	guildID := chi.URLParam(r, "guildID")
	if !domain.ValidSnowflake(guildID) {
		http.Error(w, "invalid guild id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, guildID, subject, s.outbox)
	s.hub.Add(c)
	defer s.hub.Remove(c)

	if err := s.sendState(r.Context(), c); err != nil {
		s.log.Warn("ws send initial state failed", "guild_id", guildID, "subject", subject, "err", err)
	}

	go s.writeLoop(c)
	s.readLoop(c)

	if err := c.Close(); err != nil {
		s.log.Debug("ws close failed", "guild_id", guildID, "subject", subject, "err", err)
	}
}

func (s *Server) sendState(ctx context.Context, c *wsConn) error {
	gens, err := s.gens.List(ctx, c.guildID)
	if err != nil {
		return err
	}
	items := make([]GeneratorState, 0, len(gens))
	for _, g := range gens {
		rooms, err := s.gens.Rooms(ctx, c.guildID, g.CategoryID)
		if err != nil {
			return err
		}
		if rooms == nil {
			rooms = []string{}
		}
		items = append(items, GeneratorState{CategoryID: g.CategoryID, Name: g.Name, Rooms: rooms})
	}

	c.Send(Message{
		Type:    TypeState,
		Payload: StatePayload{GuildID: c.guildID, Generators: items},
	})
	return nil
}

// readLoop only drains control frames; subscribers do not send anything.
func (s *Server) readLoop(c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 12)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// --- conn ---

type wsConn struct {
	conn    *websocket.Conn
	guildID string
	subject string
	out     chan Message
	closed  chan struct{}
	once    chan struct{}
}

func newWsConn(c *websocket.Conn, guildID, subject string, outbox int) *wsConn {
	return &wsConn{
		conn:    c,
		guildID: guildID,
		subject: subject,
		out:     make(chan Message, outbox),
		closed:  make(chan struct{}),
		once:    make(chan struct{}, 1),
	}
}

func (c *wsConn) Send(msg Message) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() error {
	select {
	case c.once <- struct{}{}:
		close(c.closed)
		return c.conn.Close()
	default:
		return nil
	}
}

func (c *wsConn) Subject() string { return c.subject }
func (c *wsConn) GuildID() string { return c.guildID }
