// Package rias is a client library bridging a chat-platform voice bot to a
// cluster of Lavalink-v4-protocol audio nodes: it manages node connections,
// per-guild players, and the voice handshake between them.
package rias

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/rias/filters"
	"github.com/MrWong99/rias/metrics"
	"github.com/MrWong99/rias/node"
	"github.com/MrWong99/rias/player"
)

// Config configures a Cluster at construction.
type Config struct {
	// Strategy selects among eligible nodes when a Player is created.
	// Zero value is LoadBalanced.
	Strategy SelectionStrategy

	// ClientID is the chat-platform user id of the bot itself, used both to
	// open node sockets and to filter inbound voice-state packets to the
	// bot's own membership.
	ClientID string

	// Send delivers outbound voice-join packets to the chat platform. If
	// nil, VoiceUpdateEvents from Players are dropped.
	Send SendFunc

	Metrics *metrics.Metrics
}

// Cluster owns a registry of Nodes and Players, routes raw voice packets
// between them, and selects a Node for each newly created Player.
type Cluster struct {
	strategy SelectionStrategy
	clientID string
	send     SendFunc
	metrics  *metrics.Metrics

	mu           sync.RWMutex
	nodes        map[string]*node.Node
	players      map[string]*player.Player
	unsubs       map[string][]func()      // per-guild player subscriptions, keyed by guildID
	nodeUnsubs   map[string][]func()      // per-node eligibility-metric subscriptions, keyed by node ID
	nodeEligible map[string]*atomic.Bool  // per-node eligibility latch, keyed by node ID
	shutdown     bool
}

// New constructs an empty Cluster. Nodes must be added via AddNode before
// Create can succeed.
func New(cfg Config) *Cluster {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop()
	}
	return &Cluster{
		strategy:     cfg.Strategy,
		clientID:     cfg.ClientID,
		send:         cfg.Send,
		metrics:      m,
		nodes:        make(map[string]*node.Node),
		players:      make(map[string]*player.Player),
		unsubs:       make(map[string][]func()),
		nodeUnsubs:   make(map[string][]func()),
		nodeEligible: make(map[string]*atomic.Bool),
	}
}

// AddNode constructs a Node from cfg, opens its socket, and registers it in
// the cluster. On dial failure the error is returned and the node is not
// registered; the caller may retry.
func (c *Cluster) AddNode(ctx context.Context, cfg node.Config) (*node.Node, error) {
	if cfg.Metrics == nil {
		cfg.Metrics = c.metrics
	}
	n := node.New(cfg)

	if err := n.Open(ctx, c.clientID); err != nil {
		return nil, fmt.Errorf("rias: add node %s: %w", cfg.ID, err)
	}

	c.mu.Lock()
	c.nodes[n.ID()] = n
	c.nodeUnsubs[n.ID()] = c.wireNodeEligibility(n)
	count := len(c.nodes)
	c.mu.Unlock()

	c.metrics.RecordActiveNodesDelta(1)
	slog.Info("rias: node added", "node", n.ID(), "total", count)
	return n, nil
}

// wireNodeEligibility subscribes to n's readiness transitions so the
// eligible-nodes gauge tracks selection eligibility (IsConnected && IsReady)
// over the node's whole lifetime, not just at registration. Eligibility is
// latched behind a CAS so a ReadyEvent racing the initial IsReady() snapshot
// below (the node's read loop runs concurrently with this call) can never
// record the delta twice.
func (c *Cluster) wireNodeEligibility(n *node.Node) []func() {
	elig := new(atomic.Bool)
	c.nodeEligible[n.ID()] = elig

	markEligible := func() {
		if elig.CompareAndSwap(false, true) {
			c.metrics.RecordEligibleNodesDelta(1)
		}
	}
	markIneligible := func() {
		if elig.CompareAndSwap(true, false) {
			c.metrics.RecordEligibleNodesDelta(-1)
		}
	}

	unsubReady := n.ReadyEvents.On(func(node.ReadyEvent) { markEligible() })
	unsubDisconnect := n.DisconnectEvents.On(func(node.DisconnectEvent) { markIneligible() })

	if n.IsConnected() && n.IsReady() {
		markEligible()
	}

	return []func(){unsubReady, unsubDisconnect}
}

// RemoveNode disconnects and unregisters a node. Players still pinned to it
// are left as-is; their next REST call will fail with ErrNodeNotReady or
// ErrNodeNotConnected.
func (c *Cluster) RemoveNode(ctx context.Context, nodeID string) error {
	c.mu.Lock()
	n, ok := c.nodes[nodeID]
	if ok {
		delete(c.nodes, nodeID)
	}
	unsubs := c.nodeUnsubs[nodeID]
	delete(c.nodeUnsubs, nodeID)
	elig, hadElig := c.nodeEligible[nodeID]
	delete(c.nodeEligible, nodeID)
	c.mu.Unlock()
	if !ok {
		return ErrNodeNotFound
	}

	for _, unsub := range unsubs {
		unsub()
	}
	if hadElig && elig.CompareAndSwap(true, false) {
		c.metrics.RecordEligibleNodesDelta(-1)
	}

	c.metrics.RecordActiveNodesDelta(-1)
	return n.Disconnect(ctx)
}

// Nodes returns a snapshot of currently registered nodes.
func (c *Cluster) Nodes() []*node.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*node.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// Create validates guildID, returns the existing Player if one is already
// registered for it, and otherwise selects a Node (using region as a hint
// for the Regional strategy) and constructs a new Player bound to it.
func (c *Cluster) Create(ctx context.Context, guildID, region string) (*player.Player, error) {
	if err := filters.ValidateSnowflake("guildID", guildID); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return nil, ErrClusterShutdown
	}
	if p, ok := c.players[guildID]; ok {
		return p, nil
	}

	n, err := selectNode(c.strategy, region, c.nodes)
	if err != nil {
		return nil, err
	}

	p := player.New(guildID, n, c.metrics)
	c.players[guildID] = p
	c.unsubs[guildID] = c.wirePlayer(n, p)
	c.metrics.RecordActivePlayersDelta(1)

	return p, nil
}

// wirePlayer subscribes p to n's per-guild event streams and translates its
// outbound VoiceUpdateEvents into Send calls, returning the unsubscribe
// functions so Destroy can tear them down.
func (c *Cluster) wirePlayer(n *node.Node, p *player.Player) []func() {
	guildID := p.GuildID()

	unsubServer := n.ServerEvents.On(func(ev node.ServerEvent) {
		if ev.GuildID == guildID {
			p.HandleServerEvent(ev)
		}
	})
	unsubUpdate := n.PlayerUpdateEvents.On(func(ev node.PlayerUpdateEvent) {
		if ev.GuildID == guildID {
			p.HandlePlayerUpdate(ev)
		}
	})
	unsubVoice := p.VoiceUpdate.On(func(ev player.VoiceUpdateEvent) {
		c.sendVoiceUpdate(ev.Intent)
	})

	return []func(){unsubServer, unsubUpdate, unsubVoice}
}

func (c *Cluster) sendVoiceUpdate(intent player.VoiceJoinIntent) {
	if c.send == nil {
		return
	}
	var channelID *string
	if intent.ChannelID != "" {
		channelID = &intent.ChannelID
	}
	packet := VoicePacket{
		GuildID:   intent.GuildID,
		ChannelID: channelID,
		SelfMute:  intent.SelfMute,
		SelfDeaf:  intent.SelfDeaf,
	}
	if err := c.send(intent.GuildID, packet); err != nil {
		slog.Error("rias: send voice update failed", "guild", intent.GuildID, "err", err)
	}
}

// DispatchVoiceServerUpdate routes a raw voice-server packet (converted by
// the voice package) to the owning Player, if one is registered for its
// guild. It is a no-op otherwise.
func (c *Cluster) DispatchVoiceServerUpdate(ctx context.Context, vs player.VoiceServer) {
	if p, err := c.Get(vs.GuildID); err == nil {
		p.HandleVoiceServerUpdate(ctx, vs)
	}
}

// DispatchVoiceStateUpdate routes a raw voice-state packet (converted by the
// voice package, already filtered to the bot's own user) to the owning
// Player, if one is registered for its guild. It is a no-op otherwise.
func (c *Cluster) DispatchVoiceStateUpdate(ctx context.Context, vs player.VoiceState) {
	if p, err := c.Get(vs.GuildID); err == nil {
		p.HandleVoiceStateUpdate(ctx, vs)
	}
}

// Get returns the Player registered for guildID, or ErrPlayerNotFound if
// none is registered.
func (c *Cluster) Get(guildID string) (*player.Player, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[guildID]
	if !ok {
		return nil, player.ErrPlayerNotFound
	}
	return p, nil
}

// Destroy destroys and unregisters the Player for guildID, returning
// ErrPlayerNotFound if no Player is registered.
func (c *Cluster) Destroy(ctx context.Context, guildID string) error {
	c.mu.Lock()
	p, ok := c.players[guildID]
	if ok {
		delete(c.players, guildID)
		for _, unsub := range c.unsubs[guildID] {
			unsub()
		}
		delete(c.unsubs, guildID)
	}
	c.mu.Unlock()
	if !ok {
		return player.ErrPlayerNotFound
	}

	p.Destroy(ctx)
	c.metrics.RecordActivePlayersDelta(-1)
	return nil
}

// DestroyAll destroys every registered Player.
func (c *Cluster) DestroyAll(ctx context.Context) error {
	c.mu.RLock()
	guildIDs := make([]string, 0, len(c.players))
	for id := range c.players {
		guildIDs = append(guildIDs, id)
	}
	c.mu.RUnlock()

	for _, id := range guildIDs {
		_ = c.Destroy(ctx, id)
	}
	return nil
}

// Shutdown races DestroyAll against timeout, then disconnects every node.
// It is idempotent; subsequent calls return immediately.
func (c *Cluster) Shutdown(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	c.mu.Unlock()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = c.DestroyAll(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("rias: shutdown timed out waiting for DestroyAll")
	}

	c.mu.Lock()
	nodeIDs := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		nodeIDs = append(nodeIDs, id)
	}
	c.mu.Unlock()

	// RemoveNode (rather than a bare Disconnect) keeps the eligible/active
	// node gauges and event unsubscriptions consistent with any other path
	// that drops a node.
	var errs []error
	for _, id := range nodeIDs {
		if err := c.RemoveNode(context.Background(), id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
