package player

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/MrWong99/rias/node"
	"github.com/MrWong99/rias/track"
)

// HandlePlayerUpdate applies a node playerUpdate frame to local state and
// republishes it as a PlayerUpdateEvent. Callers (ordinarily the Cluster)
// must filter ev.GuildID to this Player's guild before calling.
func (p *Player) HandlePlayerUpdate(ev node.PlayerUpdateEvent) {
	p.mu.Lock()
	p.positionMs = ev.PositionMs
	p.connected = ev.Connected
	if p.current != nil {
		p.current.PositionMs = ev.PositionMs
	}
	p.mu.Unlock()

	p.PlayerUpdates.Emit(PlayerUpdateEvent{
		GuildID:    p.guildID,
		PositionMs: ev.PositionMs,
		Connected:  ev.Connected,
	})
}

type wireTrackEvent struct {
	Track track.Wire `json:"track"`
}

type wireEndEvent struct {
	Track  track.Wire `json:"track"`
	Reason string     `json:"reason"`
}

type wireStuckEvent struct {
	Track       track.Wire `json:"track"`
	ThresholdMs int64      `json:"thresholdMs"`
}

type wireExceptionEvent struct {
	Track     track.Wire `json:"track"`
	Exception struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
		Cause    string `json:"cause"`
	} `json:"exception"`
}

type wireClosedEvent struct {
	Code     int    `json:"code"`
	Reason   string `json:"reason"`
	ByRemote bool   `json:"byRemote"`
}

// HandleServerEvent decodes a node op=event frame by its Type and
// republishes the appropriate typed event. Callers (ordinarily the Cluster)
// must filter ev.GuildID to this Player's guild before calling. Unknown
// event types and decode failures are logged and otherwise ignored.
func (p *Player) HandleServerEvent(ev node.ServerEvent) {
	switch ev.Type {
	case "TrackStartEvent":
		var w wireTrackEvent
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			slog.Error("player: decode TrackStartEvent", "guild", p.guildID, "err", err)
			return
		}
		t := w.Track.ToTrack()
		p.mu.Lock()
		p.current = &t
		p.playing = true
		p.mu.Unlock()
		p.TrackStart.Emit(TrackStartEvent{GuildID: p.guildID, Track: t})

	case "TrackEndEvent":
		var w wireEndEvent
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			slog.Error("player: decode TrackEndEvent", "guild", p.guildID, "err", err)
			return
		}
		t := w.Track.ToTrack()
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
		p.TrackEnd.Emit(TrackEndEvent{GuildID: p.guildID, Track: t, Reason: w.Reason})
		p.maybeAdvance(w.Reason)

	case "TrackStuckEvent":
		var w wireStuckEvent
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			slog.Error("player: decode TrackStuckEvent", "guild", p.guildID, "err", err)
			return
		}
		p.TrackStuck.Emit(TrackStuckEvent{GuildID: p.guildID, Track: w.Track.ToTrack(), ThresholdMs: w.ThresholdMs})

	case "TrackExceptionEvent":
		var w wireExceptionEvent
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			slog.Error("player: decode TrackExceptionEvent", "guild", p.guildID, "err", err)
			return
		}
		p.TrackException.Emit(TrackExceptionEvent{GuildID: p.guildID, Track: w.Track.ToTrack(), Exception: w.Exception.Message})

	case "WebSocketClosedEvent":
		var w wireClosedEvent
		if err := json.Unmarshal(ev.Data, &w); err != nil {
			slog.Error("player: decode WebSocketClosedEvent", "guild", p.guildID, "err", err)
			return
		}
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
		p.WebSocketClosed.Emit(WebSocketClosedEvent{GuildID: p.guildID, Code: w.Code, Reason: w.Reason, ByRemote: w.ByRemote})

	default:
		slog.Warn("player: unhandled server event type", "guild", p.guildID, "type", ev.Type)
	}
}

// maybeAdvance implements queue-driven autoplay: on a natural end ("finished")
// or a failed load ("loadFailed") with autoplay enabled, it plays the next
// queued track (honoring loop mode via Queue.Poll), or emits QueueEnd if the
// queue is empty. "stopped", "replaced", and "cleanup" are left to the caller
// to react to explicitly.
func (p *Player) maybeAdvance(reason string) {
	if reason != "finished" && reason != "loadFailed" {
		return
	}
	p.mu.Lock()
	auto := p.autoplay
	p.mu.Unlock()
	if !auto {
		return
	}

	p.mu.Lock()
	next := p.queue.Poll()
	p.mu.Unlock()

	if next == nil {
		p.QueueEnd.Emit(QueueEndEvent{GuildID: p.guildID})
		return
	}

	go func() {
		if err := p.Play(context.Background(), PlayOptions{Track: next}); err != nil {
			p.emitError(err)
		}
	}()
}
