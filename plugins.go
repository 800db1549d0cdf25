package rias

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/MrWong99/rias/node"
	"golang.org/x/sync/errgroup"
)

// GetInfo fans out GetInfo(ctx, force) to every registered node concurrently
// and returns a map keyed by node ID. Per-node failures are logged and
// omitted from the result rather than failing the whole call.
func (c *Cluster) GetInfo(ctx context.Context, force bool) map[string]node.Info {
	nodes := c.Nodes()

	var mu sync.Mutex
	result := make(map[string]node.Info, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		n := n
		g.Go(func() error {
			info, err := n.GetInfo(gctx, force)
			if err != nil {
				slog.Warn("rias: GetInfo failed", "node", n.ID(), "err", err)
				return nil
			}
			mu.Lock()
			result[n.ID()] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// GetAllPlugins fans out GetInfo and returns each node's plugin list keyed
// by node ID.
func (c *Cluster) GetAllPlugins(ctx context.Context, force bool) map[string][]node.Plugin {
	infos := c.GetInfo(ctx, force)
	out := make(map[string][]node.Plugin, len(infos))
	for id, info := range infos {
		out[id] = info.Plugins
	}
	return out
}

// GetUniquePlugins deduplicates plugins by name across all nodes, in
// registry order (by node ID), first occurrence winning.
func (c *Cluster) GetUniquePlugins(ctx context.Context, force bool) []node.Plugin {
	all := c.GetAllPlugins(ctx, force)
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seen := make(map[string]bool)
	var out []node.Plugin
	for _, id := range ids {
		for _, p := range all[id] {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	return out
}

// HasPlugin reports whether any registered node's cached plugin list
// contains name.
func (c *Cluster) HasPlugin(name string) bool {
	for _, n := range c.Nodes() {
		if n.HasPlugin(name) {
			return true
		}
	}
	return false
}

// GetNodesWithPlugin lists every registered node whose cached plugin list
// contains name.
func (c *Cluster) GetNodesWithPlugin(name string) []*node.Node {
	var out []*node.Node
	for _, n := range c.Nodes() {
		if n.HasPlugin(name) {
			out = append(out, n)
		}
	}
	return out
}

// PluginRequest finds nodes carrying pluginName, selects among them using
// the cluster's configured strategy, and delegates the request to the
// chosen node.
func (c *Cluster) PluginRequest(ctx context.Context, pluginName, method, endpoint string, body []byte) (json.RawMessage, error) {
	candidates := c.GetNodesWithPlugin(pluginName)
	if len(candidates) == 0 {
		return nil, node.ErrPluginNotInstalled
	}

	subset := make(map[string]*node.Node, len(candidates))
	for _, n := range candidates {
		subset[n.ID()] = n
	}

	n, err := selectNode(c.strategy, "", subset)
	if err != nil {
		return nil, err
	}
	return n.PluginRequest(ctx, pluginName, method, endpoint, body)
}
