package rias

import (
	"sort"

	"github.com/MrWong99/rias/node"
)

// eligibleNodes returns connected+ready nodes from the supplied snapshot,
// sorted by ID for deterministic tie-breaking.
func eligibleNodes(nodes map[string]*node.Node) []*node.Node {
	out := make([]*node.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsConnected() && n.IsReady() {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func loadScore(n *node.Node) float64 {
	s := n.Stats()
	return s.CPU.LavalinkLoad * (1 + float64(s.Players)*0.1)
}

// selectNode implements the node-selection table from the node-selection
// strategy spec: given an eligible snapshot, pick one node according to
// strategy, falling back to LoadBalanced for Regional when no region match
// exists.
func selectNode(strategy SelectionStrategy, region string, nodes map[string]*node.Node) (*node.Node, error) {
	eligible := eligibleNodes(nodes)
	if len(eligible) == 0 {
		return nil, ErrNoAvailableNodes
	}
	if len(eligible) == 1 {
		return eligible[0], nil
	}

	switch strategy {
	case Regional:
		var regional []*node.Node
		for _, n := range eligible {
			if n.Region() == region {
				regional = append(regional, n)
			}
		}
		if len(regional) > 0 {
			return pickBy(regional, loadScore), nil
		}
		return pickBy(eligible, loadScore), nil

	case LeastPlayers:
		return pickBy(eligible, func(n *node.Node) float64 { return float64(n.Stats().Players) }), nil

	case LeastLoad:
		return pickBy(eligible, func(n *node.Node) float64 { return n.Stats().CPU.LavalinkLoad }), nil

	case Priority:
		return pickBy(eligible, func(n *node.Node) float64 { return float64(n.Priority()) }), nil

	default: // LoadBalanced
		return pickBy(eligible, loadScore), nil
	}
}

// pickBy returns the node with the smallest key(n), breaking ties by the
// earlier position in nodes (which callers pass pre-sorted by ID).
func pickBy(nodes []*node.Node, key func(*node.Node) float64) *node.Node {
	best := nodes[0]
	bestKey := key(best)
	for _, n := range nodes[1:] {
		if k := key(n); k < bestKey {
			best = n
			bestKey = k
		}
	}
	return best
}
