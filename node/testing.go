package node

import "net/http"

// NewTestReady constructs a Node already latched into the Connected state
// with a synthetic session id, bypassing the WebSocket handshake, and
// pointed at httpClient for its REST calls. It exists so other packages'
// tests (player, cluster) can exercise REST-driven behavior against an
// httptest.Server without a real Lavalink node.
func NewTestReady(host string, port int, httpClient *http.Client) *Node {
	n := New(Config{ID: "test-node", Host: host, Port: port, Password: "secret"})
	n.mu.Lock()
	n.state = Connected
	n.sessionID = "test-session"
	n.mu.Unlock()
	n.httpClient = httpClient
	return n
}

// NewTestReadyWithConfig is like NewTestReady but takes a full Config (so
// tests can set ID, Region, Priority) and an initial Stats snapshot.
func NewTestReadyWithConfig(cfg Config, stats Stats) *Node {
	n := New(cfg)
	n.mu.Lock()
	n.state = Connected
	n.sessionID = "test-session"
	n.stats = stats
	n.mu.Unlock()
	return n
}

// SetStatsForTest overwrites the node's cached stats snapshot, for tests
// exercising selection strategies without a real stats frame.
func (n *Node) SetStatsForTest(s Stats) {
	n.mu.Lock()
	n.stats = s
	n.mu.Unlock()
}
