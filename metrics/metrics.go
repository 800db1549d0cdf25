// Package metrics wraps OpenTelemetry instrumentation for Rias's node,
// player, and cluster components, with a Prometheus exporter bridge for a
// standard /metrics scrape endpoint.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Rias metrics.
const meterName = "github.com/MrWong99/rias"

// latencyBuckets defines histogram bucket boundaries (in seconds), tuned for
// REST calls and connect handshakes rather than sub-millisecond operations.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Metrics holds every OpenTelemetry instrument Rias reports to. All fields
// are safe for concurrent use — the underlying OTel types handle their own
// synchronization. The zero value is not usable; construct via [NewMetrics]
// or obtain a inert instance via [Noop].
type Metrics struct {
	NodeConnectDuration metric.Float64Histogram
	RESTCallDuration    metric.Float64Histogram
	ReconnectAttempts   metric.Int64Counter

	NodePlayers        metric.Int64Gauge
	NodePlayingPlayers metric.Int64Gauge
	NodeLavalinkLoad   metric.Float64Gauge

	ActiveNodes   metric.Int64UpDownCounter
	EligibleNodes metric.Int64UpDownCounter
	ActivePlayers metric.Int64UpDownCounter

	QueueOperations metric.Int64Counter

	noop bool
}

// NewMetrics creates a fully-initialized Metrics using the given
// metric.MeterProvider. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.NodeConnectDuration, err = m.Float64Histogram("rias.node.connect.duration",
		metric.WithDescription("Latency of node WebSocket connect attempts."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RESTCallDuration, err = m.Float64Histogram("rias.node.rest.duration",
		metric.WithDescription("Latency of REST calls to a node, by endpoint."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ReconnectAttempts, err = m.Int64Counter("rias.node.reconnect.attempts",
		metric.WithDescription("Total reconnect attempts, by node."),
	); err != nil {
		return nil, err
	}
	if met.NodePlayers, err = m.Int64Gauge("rias.node.players",
		metric.WithDescription("Players currently registered on a node, per last stats frame."),
	); err != nil {
		return nil, err
	}
	if met.NodePlayingPlayers, err = m.Int64Gauge("rias.node.playing_players",
		metric.WithDescription("Players currently playing on a node, per last stats frame."),
	); err != nil {
		return nil, err
	}
	if met.NodeLavalinkLoad, err = m.Float64Gauge("rias.node.lavalink_load",
		metric.WithDescription("Node-reported Lavalink process CPU load fraction."),
	); err != nil {
		return nil, err
	}
	if met.ActiveNodes, err = m.Int64UpDownCounter("rias.cluster.active_nodes",
		metric.WithDescription("Nodes currently connected to the cluster."),
	); err != nil {
		return nil, err
	}
	if met.EligibleNodes, err = m.Int64UpDownCounter("rias.cluster.eligible_nodes",
		metric.WithDescription("Nodes currently eligible for player routing."),
	); err != nil {
		return nil, err
	}
	if met.ActivePlayers, err = m.Int64UpDownCounter("rias.cluster.active_players",
		metric.WithDescription("Players currently registered on the cluster."),
	); err != nil {
		return nil, err
	}
	if met.QueueOperations, err = m.Int64Counter("rias.queue.operations",
		metric.WithDescription("Queue mutations, by operation."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	noopMetrics     *Metrics
	noopMetricsOnce sync.Once
)

// Noop returns a Metrics instance whose Record* convenience methods are
// safe to call but report nothing, for callers (and tests) that do not wire
// a MeterProvider.
func Noop() *Metrics {
	noopMetricsOnce.Do(func() {
		noopMetrics = &Metrics{noop: true}
	})
	return noopMetrics
}

// RecordNodeState records a connection-state transition as a zero-valued
// sample on the node-connect-duration histogram, tagged by node id and
// state. No elapsed time is measured or recorded.
func (m *Metrics) RecordNodeState(nodeID, state string) {
	if m == nil || m.noop {
		return
	}
	m.NodeConnectDuration.Record(context.Background(), 0,
		metric.WithAttributes(attribute.String("node_id", nodeID), attribute.String("state", state)),
	)
}

// RecordReconnectAttempt increments the reconnect-attempts counter for nodeID.
func (m *Metrics) RecordReconnectAttempt(nodeID string) {
	if m == nil || m.noop {
		return
	}
	m.ReconnectAttempts.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("node_id", nodeID)),
	)
}

// RecordRESTLatency records how long a REST call to path took on nodeID.
func (m *Metrics) RecordRESTLatency(nodeID, path string, d time.Duration) {
	if m == nil || m.noop {
		return
	}
	m.RESTCallDuration.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.String("node_id", nodeID), attribute.String("endpoint", path)),
	)
}

// RecordNodeStats mirrors a node's latest stats frame into the node gauges.
func (m *Metrics) RecordNodeStats(nodeID string, players, playingPlayers int, lavalinkLoad float64) {
	if m == nil || m.noop {
		return
	}
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))
	m.NodePlayers.Record(context.Background(), int64(players), attrs)
	m.NodePlayingPlayers.Record(context.Background(), int64(playingPlayers), attrs)
	m.NodeLavalinkLoad.Record(context.Background(), lavalinkLoad, attrs)
}

// RecordActiveNodesDelta adjusts the active-nodes gauge (positive on
// registration, negative on removal).
func (m *Metrics) RecordActiveNodesDelta(delta int64) {
	if m == nil || m.noop {
		return
	}
	m.ActiveNodes.Add(context.Background(), delta)
}

// RecordEligibleNodesDelta adjusts the eligible-nodes gauge by delta; the
// Cluster calls it as nodes become ready, disconnect, or are removed.
func (m *Metrics) RecordEligibleNodesDelta(delta int64) {
	if m == nil || m.noop {
		return
	}
	m.EligibleNodes.Add(context.Background(), delta)
}

// RecordActivePlayersDelta adjusts the active-players gauge.
func (m *Metrics) RecordActivePlayersDelta(delta int64) {
	if m == nil || m.noop {
		return
	}
	m.ActivePlayers.Add(context.Background(), delta)
}

// RecordQueueOperation increments the queue-operations counter for op
// (e.g. "add", "remove", "shuffle", "smartShuffle", "clear").
func (m *Metrics) RecordQueueOperation(op string) {
	if m == nil || m.noop {
		return
	}
	m.QueueOperations.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}
