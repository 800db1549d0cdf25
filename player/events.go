package player

import "github.com/MrWong99/rias/track"

// TrackStartEvent fires when the node reports a track has started playing.
type TrackStartEvent struct {
	GuildID string
	Track   track.Track
}

// TrackEndEvent fires when the node reports a track has stopped, whether it
// finished naturally, was replaced, or failed to load.
type TrackEndEvent struct {
	GuildID string
	Track   track.Track
	Reason  string
}

// TrackStuckEvent fires when the node reports playback has stalled past the
// given threshold.
type TrackStuckEvent struct {
	GuildID     string
	Track       track.Track
	ThresholdMs int64
}

// TrackExceptionEvent fires when the node reports a decoding/playback
// exception for the current track.
type TrackExceptionEvent struct {
	GuildID   string
	Track     track.Track
	Exception string
}

// WebSocketClosedEvent fires when the node reports its own voice-gateway
// connection to the chat platform closed.
type WebSocketClosedEvent struct {
	GuildID  string
	Code     int
	Reason   string
	ByRemote bool
}

// PlayerUpdateEvent fires on every node playerUpdate frame for this guild.
type PlayerUpdateEvent struct {
	GuildID    string
	PositionMs int64
	Connected  bool
}

// QueueEvent fires for queue mutations driven through the Player
// (add/remove/clear/shuffle/smartShuffle); Kind names the operation.
type QueueEvent struct {
	GuildID string
	Kind    string
}

// QueueEndEvent fires when Skip (or autoplay after a finished track) finds
// the queue empty.
type QueueEndEvent struct {
	GuildID string
}

// DestroyEvent fires once, when Destroy completes.
type DestroyEvent struct {
	GuildID string
}

// VoiceUpdateEvent fires when Connect validates a channel id and the Player
// wants the chat platform to join/move/leave voice. The Cluster translates
// this into the platform's outbound payload.
type VoiceUpdateEvent struct {
	Intent VoiceJoinIntent
}

// ErrorEvent fires whenever a user-initiated operation fails, alongside the
// error returned to the caller.
type ErrorEvent struct {
	GuildID string
	Err     error
}
