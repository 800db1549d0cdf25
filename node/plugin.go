package node

import (
	"context"
	"log/slog"
)

// discoverPlugins refreshes the node's plugin index. It is invoked
// automatically after every successful open; failures are logged and
// emitted as a background error but never tear down the session.
func (n *Node) discoverPlugins(ctx context.Context) {
	info, err := n.getInfo(ctx, true)
	if err != nil {
		slog.Warn("node: plugin discovery failed", "node_id", n.id, "error", err)
		n.ErrorEvents.Emit(ErrorEvent{NodeID: n.id, Err: err})
		return
	}
	_ = info
}

// HasPlugin reports whether the node's cached plugin index contains name.
// It does not trigger a refresh; callers that need a guaranteed-fresh view
// should call GetInfo(ctx, true) first.
func (n *Node) HasPlugin(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.plugins[name]
	return ok
}

// Plugins returns a snapshot of the node's cached plugin index.
func (n *Node) Plugins() []Plugin {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Plugin, 0, len(n.plugins))
	for _, p := range n.plugins {
		out = append(out, p)
	}
	return out
}

// rebuildPluginIndex replaces the cached plugin index from a freshly fetched
// Info and emits one PluginLoadedEvent per plugin.
func (n *Node) rebuildPluginIndex(info Info) {
	n.mu.Lock()
	n.plugins = make(map[string]Plugin, len(info.Plugins))
	for _, p := range info.Plugins {
		n.plugins[p.Name] = p
	}
	n.mu.Unlock()

	for _, p := range info.Plugins {
		n.PluginEvents.Emit(PluginLoadedEvent{NodeID: n.id, Plugin: p})
	}
}
