// Package node implements a single client session to one Lavalink v4 audio
// node: its WebSocket event stream, its REST client, reconnection with
// exponential backoff, and plugin/capability discovery.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/MrWong99/rias/metrics"
	"github.com/MrWong99/rias/revent"
	"github.com/coder/websocket"
)

// Default reconnection and timeout parameters.
const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelay       = 3 * time.Second
	defaultMaxReconnectDelay    = 30 * time.Second
	defaultUserAgent            = "Rias"
	defaultInfoTTL              = 300 * time.Second
)

// Config configures a Node at construction. ID, Host, Port, and Password are
// required; all other fields have documented defaults.
type Config struct {
	ID       string
	Host     string
	Port     int
	Secure   bool
	Password string

	Region   string
	Priority int

	ResumeKey     string
	ResumeTimeout time.Duration

	UserAgent            string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

// Node is one client session to one Lavalink v4 node. A Node is safe for
// concurrent use: mutable fields are guarded by a single mutex, mirroring
// the reference codebase's Reconnector/Host pattern.
type Node struct {
	id       string
	host     string
	port     int
	secure   bool
	password string
	region   string
	priority int

	resumeKey     string
	resumeTimeout time.Duration

	userAgent            string
	maxReconnectAttempts int
	reconnectDelay       time.Duration

	httpClient *http.Client
	metrics    *metrics.Metrics

	ConnectEvents      *revent.Bus[ConnectEvent]
	ReadyEvents        *revent.Bus[ReadyEvent]
	DisconnectEvents   *revent.Bus[DisconnectEvent]
	StatsEvents        *revent.Bus[StatsEvent]
	PlayerUpdateEvents *revent.Bus[PlayerUpdateEvent]
	ServerEvents       *revent.Bus[ServerEvent]
	RawEvents          *revent.Bus[RawEvent]
	InfoEvents         *revent.Bus[InfoUpdateEvent]
	PluginEvents       *revent.Bus[PluginLoadedEvent]
	ErrorEvents        *revent.Bus[ErrorEvent]

	mu                sync.Mutex
	state             State
	sessionID         string
	reconnectAttempts int
	stats             Stats
	info              *Info
	infoFetchedAt     time.Time
	plugins           map[string]Plugin

	conn          *websocket.Conn
	clientID      string
	stopReconnect chan struct{}
	stopOnce      sync.Once
	closed        bool
}

// New constructs a Node. Host, Port, and Password must be non-empty; ID
// defaults to "host:port" when empty.
func New(cfg Config) *Node {
	id := cfg.ID
	if id == "" {
		id = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxReconnectAttempts
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop()
	}

	return &Node{
		id:                   id,
		host:                 cfg.Host,
		port:                 cfg.Port,
		secure:               cfg.Secure,
		password:             cfg.Password,
		region:               cfg.Region,
		priority:             cfg.Priority,
		resumeKey:            cfg.ResumeKey,
		resumeTimeout:        cfg.ResumeTimeout,
		userAgent:            userAgent,
		maxReconnectAttempts: maxAttempts,
		reconnectDelay:       delay,
		httpClient:           httpClient,
		metrics:              m,

		ConnectEvents:      revent.New[ConnectEvent](),
		ReadyEvents:        revent.New[ReadyEvent](),
		DisconnectEvents:   revent.New[DisconnectEvent](),
		StatsEvents:        revent.New[StatsEvent](),
		PlayerUpdateEvents: revent.New[PlayerUpdateEvent](),
		ServerEvents:       revent.New[ServerEvent](),
		RawEvents:          revent.New[RawEvent](),
		InfoEvents:         revent.New[InfoUpdateEvent](),
		PluginEvents:       revent.New[PluginLoadedEvent](),
		ErrorEvents:        revent.New[ErrorEvent](),

		state:   Disconnected,
		plugins: make(map[string]Plugin),
	}
}

// ID returns the node's configured identifier.
func (n *Node) ID() string { return n.id }

// Region returns the node's configured region hint, if any.
func (n *Node) Region() string { return n.region }

// Priority returns the node's configured priority (lower wins ties).
func (n *Node) Priority() int { return n.priority }

// State returns the current connection state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// SessionID returns the currently active resumable session id, or "" if
// none.
func (n *Node) SessionID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sessionID
}

// Stats returns the most recently reported stats snapshot.
func (n *Node) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// IsReady reports whether the node is connected and has an active session.
func (n *Node) IsReady() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == Connected && n.sessionID != ""
}

// IsConnected reports whether the node's socket is currently open.
func (n *Node) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state == Connected
}

// readyGate returns a tagged error if the node cannot currently serve a REST
// call: ErrNodeNotConnected (which wraps ErrNodeNotReady) when the node is
// Disconnected, ErrNodeNotReady when no session has been established yet
// (Connecting/Reconnecting, or Connected without a sessionId). Returns nil
// when the node is ready.
func (n *Node) readyGate() error {
	n.mu.Lock()
	state := n.state
	sessionID := n.sessionID
	n.mu.Unlock()

	if state == Disconnected {
		return ErrNodeNotConnected
	}
	if state != Connected || sessionID == "" {
		return ErrNodeNotReady
	}
	return nil
}

func (n *Node) baseHTTPURL() string {
	scheme := "http"
	if n.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d/v4", scheme, n.host, n.port)
}

func (n *Node) baseWSURL() string {
	scheme := "ws"
	if n.secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/v4/websocket", scheme, n.host, n.port)
}

// Open opens the node's WebSocket event stream for the given bot client id
// and starts its read loop in a background goroutine. Open returns once the
// socket has been dialed; it does not wait for the `ready` frame — callers
// that need readiness subscribe to n.ReadyEvents.
func (n *Node) Open(ctx context.Context, clientID string) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return fmt.Errorf("node %s: open after close", n.id)
	}
	n.clientID = clientID
	n.state = Connecting
	n.stopReconnect = make(chan struct{})
	n.mu.Unlock()

	if err := n.dial(ctx); err != nil {
		n.mu.Lock()
		n.state = Disconnected
		n.mu.Unlock()
		return err
	}
	return nil
}

func (n *Node) dial(ctx context.Context) error {
	headers := http.Header{}
	headers.Set("Authorization", n.password)
	headers.Set("User-Id", n.clientID)
	headers.Set("Client-Name", n.userAgent)

	n.mu.Lock()
	resuming := n.resumeKey != "" && n.sessionID != ""
	sessionID := n.sessionID
	n.mu.Unlock()
	if resuming {
		headers.Set("Session-Id", sessionID)
	}

	conn, _, err := websocket.Dial(ctx, n.baseWSURL(), &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return fmt.Errorf("node %s: dial: %w: %w", n.id, ErrWebSocket, err)
	}

	n.mu.Lock()
	n.conn = conn
	n.state = Connected
	n.reconnectAttempts = 0
	n.mu.Unlock()

	n.metrics.RecordNodeState(n.id, Connected.String())
	n.ConnectEvents.Emit(ConnectEvent{NodeID: n.id})

	if resuming {
		n.sendConfigureResuming(ctx)
	}
	go n.discoverPlugins(context.Background())
	go n.readLoop()

	return nil
}

// sendConfigureResuming sends the `configureResuming` op so the node keeps
// this session alive across a short disconnect.
func (n *Node) sendConfigureResuming(ctx context.Context) {
	payload := map[string]any{
		"op":      "configureResuming",
		"key":     n.resumeKey,
		"timeout": int64(n.resumeTimeout.Seconds()),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Write(ctx, websocket.MessageText, b)
}

// Disconnect intentionally closes the node's socket. It cancels any pending
// reconnect and, unless a ResumeKey is configured, forgets the session id.
func (n *Node) Disconnect(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	conn := n.conn
	stop := n.stopReconnect
	if n.resumeKey == "" {
		n.sessionID = ""
	}
	n.state = Disconnected
	n.mu.Unlock()

	n.stopOnce.Do(func() {
		if stop != nil {
			close(stop)
		}
	})

	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "disconnect")
}

// readLoop drives the node's event stream on a dedicated goroutine, matching
// the reference codebase's one-goroutine-per-connection convention. It
// exits when the socket closes; a non-normal close schedules a reconnect.
func (n *Node) readLoop() {
	n.mu.Lock()
	conn := n.conn
	n.mu.Unlock()
	if conn == nil {
		return
	}

	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			code := websocket.CloseStatus(err)
			if code != websocket.StatusNormalClosure {
				n.ErrorEvents.Emit(ErrorEvent{NodeID: n.id, Err: fmt.Errorf("%w: %w", ErrWebSocket, err)})
			}
			n.handleClose(int(code), err.Error())
			return
		}
		n.dispatch(data)
	}
}

func (n *Node) handleClose(code int, reason string) {
	n.mu.Lock()
	wasClosed := n.closed
	if code != 0 && int(websocket.StatusNormalClosure) == code {
		if n.resumeKey == "" {
			n.sessionID = ""
		}
		n.state = Disconnected
	} else {
		n.state = Reconnecting
	}
	n.mu.Unlock()

	n.DisconnectEvents.Emit(DisconnectEvent{NodeID: n.id, Code: code, Reason: reason, ByRemote: true})
	n.metrics.RecordNodeState(n.id, n.State().String())

	if wasClosed {
		return
	}
	if code == int(websocket.StatusNormalClosure) {
		return
	}
	go n.scheduleReconnect()
}

// scheduleReconnect implements the backoff state machine described in
// §4.2: delay = min(base*2^(attempt-1) + U(0,1000ms), maxDelay).
func (n *Node) scheduleReconnect() {
	n.mu.Lock()
	stop := n.stopReconnect
	n.mu.Unlock()

	for {
		n.mu.Lock()
		n.reconnectAttempts++
		attempt := n.reconnectAttempts
		maxAttempts := n.maxReconnectAttempts
		n.mu.Unlock()

		if attempt > maxAttempts {
			n.mu.Lock()
			n.state = Disconnected
			n.mu.Unlock()
			err := fmt.Errorf("node %s: exceeded max reconnect attempts (%d)", n.id, maxAttempts)
			slog.Error("node reconnect giving up", "node_id", n.id, "attempts", attempt-1)
			n.ErrorEvents.Emit(ErrorEvent{NodeID: n.id, Err: err})
			return
		}

		delay := n.backoffDelay(attempt)
		n.metrics.RecordReconnectAttempt(n.id)
		slog.Warn("node reconnecting", "node_id", n.id, "attempt", attempt, "delay", delay)

		select {
		case <-stop:
			return
		case <-time.After(delay):
		}

		n.mu.Lock()
		n.state = Connecting
		n.mu.Unlock()

		if err := n.dial(context.Background()); err != nil {
			slog.Warn("node reconnect attempt failed", "node_id", n.id, "attempt", attempt, "error", err)
			continue
		}
		return
	}
}

func (n *Node) backoffDelay(attempt int) time.Duration {
	base := n.reconnectDelay
	mult := time.Duration(1)
	for i := 1; i < attempt; i++ {
		mult *= 2
	}
	delay := base*mult + time.Duration(rand.Intn(1000))*time.Millisecond
	if delay > defaultMaxReconnectDelay {
		delay = defaultMaxReconnectDelay
	}
	return delay
}

// dispatch decodes one inbound frame and routes it by op.
func (n *Node) dispatch(data []byte) {
	var env struct {
		Op string `json:"op"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("node: malformed frame", "node_id", n.id, "error", err)
		return
	}

	switch env.Op {
	case "ready":
		n.handleReady(data)
	case "stats":
		n.handleStats(data)
	case "event":
		n.handleEvent(data)
	case "playerUpdate":
		n.handlePlayerUpdate(data)
	default:
		n.RawEvents.Emit(RawEvent{NodeID: n.id, Op: env.Op, Data: data})
	}
}

func (n *Node) handleReady(data []byte) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Resumed   bool   `json:"resumed"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("node: malformed ready frame", "node_id", n.id, "error", err)
		return
	}
	n.mu.Lock()
	n.sessionID = payload.SessionID
	n.mu.Unlock()
	n.ReadyEvents.Emit(ReadyEvent{NodeID: n.id, SessionID: payload.SessionID, Resumed: payload.Resumed})
}

func (n *Node) handleStats(data []byte) {
	var payload Stats
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("node: malformed stats frame", "node_id", n.id, "error", err)
		return
	}
	n.mu.Lock()
	n.stats = payload
	n.mu.Unlock()
	n.StatsEvents.Emit(StatsEvent{NodeID: n.id, Stats: payload})
	n.metrics.RecordNodeStats(n.id, payload.Players, payload.PlayingPlayers, payload.CPU.LavalinkLoad)
}

func (n *Node) handleEvent(data []byte) {
	var payload struct {
		GuildID string `json:"guildId"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("node: malformed event frame", "node_id", n.id, "error", err)
		return
	}
	n.ServerEvents.Emit(ServerEvent{NodeID: n.id, GuildID: payload.GuildID, Type: payload.Type, Data: data})
}

func (n *Node) handlePlayerUpdate(data []byte) {
	var payload struct {
		GuildID string `json:"guildId"`
		State   struct {
			Time      int64 `json:"time"`
			Position  int64 `json:"position"`
			Connected bool  `json:"connected"`
			Ping      int64 `json:"ping"`
		} `json:"state"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("node: malformed playerUpdate frame", "node_id", n.id, "error", err)
		return
	}
	n.PlayerUpdateEvents.Emit(PlayerUpdateEvent{
		NodeID:     n.id,
		GuildID:    payload.GuildID,
		TimeMs:     payload.State.Time,
		PositionMs: payload.State.Position,
		Connected:  payload.State.Connected,
		PingMs:     payload.State.Ping,
	})
}
