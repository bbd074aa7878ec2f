package web

import (
	"context"
	"deskpilot/pkg/api"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type WebConfig struct {
	Host string `json:"host"` // Default: all interfaces
	Port int    `json:"port"` // Default: 8080
	// AllowedOrigins restricts which browser origins may connect.
	// Empty allows any origin, for a decoupled UI.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// IncomingMessage is a client frame. Plain non-JSON text frames are accepted too.
type IncomingMessage struct {
	Text string `json:"text"`
}

// OutgoingMessage is every server frame: "hello" on connect, "signal"
// while a command runs, "reply" with the rendered outcome.
type OutgoingMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Value   string `json:"value,omitempty"`
	Session string `json:"session,omitempty"`
}

type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return sc.Conn.WriteMessage(websocket.TextMessage, data)
}

type WebChannel struct {
	config      WebConfig
	cors        *cors.Cors
	upgrader    websocket.Upgrader
	server      *http.Server
	connections map[string]*SafeConn // session id -> connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig) *WebChannel {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})

	return &WebChannel{
		config: cfg,
		cors:   c,
		upgrader: websocket.Upgrader{
			// browsers send Origin on websocket upgrades; other clients do not
			CheckOrigin: func(r *http.Request) bool {
				return r.Header.Get("Origin") == "" || c.OriginAllowed(r)
			},
		},
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

// Handler returns the HTTP handler serving the websocket endpoint on /ws
// and a liveness probe on /healthz, behind the CORS policy.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	}).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	return c.cors.Handler(router)
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	addr := net.JoinHostPort(c.config.Host, fmt.Sprint(c.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web channel listen on %s: %w", addr, err)
	}

	c.server = &http.Server{
		Handler:           c.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Web channel listening", "addr", ln.Addr().String())

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web channel server error", "error", err)
		}
	}()
	return nil
}

func (c *WebChannel) Stop() error {
	c.mu.Lock()
	for id, conn := range c.connections {
		conn.Close()
		delete(c.connections, id)
	}
	c.mu.Unlock()

	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

func (c *WebChannel) conn(session api.SessionContext) (*SafeConn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.connections[session.UserID]
	if !ok {
		return nil, fmt.Errorf("web session %s not connected", session.UserID)
	}
	return conn, nil
}

func (c *WebChannel) Send(session api.SessionContext, message string) error {
	conn, err := c.conn(session)
	if err != nil {
		return err
	}
	return conn.WriteJSON(OutgoingMessage{Type: "reply", Text: message})
}

// SendSignal implements the api.SignalingChannel interface
func (c *WebChannel) SendSignal(session api.SessionContext, signal string) error {
	conn, err := c.conn(session)
	if err != nil {
		return err
	}
	return conn.WriteJSON(OutgoingMessage{Type: "signal", Value: signal})
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	rawConn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}
	sessionID := uuid.NewString()

	c.mu.Lock()
	c.connections[sessionID] = conn
	c.mu.Unlock()

	connCtx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.connections, sessionID)
		c.mu.Unlock()
		conn.Close()
		slog.Debug("Web session closed", "session", sessionID)
	}()

	slog.Debug("Web session opened", "session", sessionID, "remote", r.RemoteAddr)
	if err := conn.WriteJSON(OutgoingMessage{Type: "hello", Session: sessionID}); err != nil {
		return
	}

	session := api.SessionContext{
		ChannelID: c.ID(),
		UserID:    sessionID,
		ChatID:    sessionID,
		Username:  "WebUser",
	}

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Web session read error", "session", sessionID, "error", err)
			}
			return
		}

		var incoming IncomingMessage
		content := string(msgBytes)
		if err := json.Unmarshal(msgBytes, &incoming); err == nil {
			content = incoming.Text
		}

		// one utterance at a time per connection
		ctx.OnMessage(c.ID(), &api.UnifiedMessage{
			Session: session,
			Content: content,
			Raw:     msgBytes,
			Ctx:     connCtx,
		})
	}
}
