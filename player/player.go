// Package player implements the per-guild Player state machine: the voice
// handshake that combines chat-platform voice-server/voice-state updates
// into a single voice REST update, playback control, and queue delegation.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrWong99/rias/filters"
	"github.com/MrWong99/rias/metrics"
	"github.com/MrWong99/rias/node"
	"github.com/MrWong99/rias/queue"
	"github.com/MrWong99/rias/revent"
	"github.com/MrWong99/rias/track"
)

const defaultVolume = 100

// PlayOptions configures a Play call. Exactly one of Track or Identifier
// should be set; Track takes precedence when both are present.
type PlayOptions struct {
	Track      *track.Track
	Identifier string

	Volume     *int
	Paused     *bool
	NoReplace  bool
	StartMs    *int64
	EndMs      *int64
}

// Player is the client-side state machine for one guild's voice session.
// It is pinned to a single Node at creation and does not migrate; all
// mutable fields are guarded by a single mutex.
type Player struct {
	guildID string
	node    *node.Node
	metrics *metrics.Metrics

	TrackStart      *revent.Bus[TrackStartEvent]
	TrackEnd        *revent.Bus[TrackEndEvent]
	TrackStuck      *revent.Bus[TrackStuckEvent]
	TrackException  *revent.Bus[TrackExceptionEvent]
	WebSocketClosed *revent.Bus[WebSocketClosedEvent]
	PlayerUpdates   *revent.Bus[PlayerUpdateEvent]
	QueueEvents     *revent.Bus[QueueEvent]
	QueueEnd        *revent.Bus[QueueEndEvent]
	Destroyed       *revent.Bus[DestroyEvent]
	VoiceUpdate     *revent.Bus[VoiceUpdateEvent]
	Errors          *revent.Bus[ErrorEvent]

	mu           sync.Mutex
	current      *track.Track
	voiceChannel string
	textChannel  string
	volume       int
	paused       bool
	playing      bool
	positionMs   int64
	connected    bool
	autoplay     bool
	queue        *queue.Queue
	filters      filters.Filters

	pendingServer *VoiceServer
	pendingState  *VoiceState

	destroyed bool
}

// New constructs a Player for guildID, pinned to n. Callers (ordinarily the
// Cluster) are responsible for wiring n's ServerEvents/PlayerUpdateEvents to
// HandleServerEvent/HandlePlayerUpdate for this guild.
func New(guildID string, n *node.Node, m *metrics.Metrics) *Player {
	if m == nil {
		m = metrics.Noop()
	}
	return &Player{
		guildID:  guildID,
		node:     n,
		metrics:  m,
		volume:   defaultVolume,
		autoplay: true,
		queue:    queue.New(),

		TrackStart:      revent.New[TrackStartEvent](),
		TrackEnd:        revent.New[TrackEndEvent](),
		TrackStuck:      revent.New[TrackStuckEvent](),
		TrackException:  revent.New[TrackExceptionEvent](),
		WebSocketClosed: revent.New[WebSocketClosedEvent](),
		PlayerUpdates:   revent.New[PlayerUpdateEvent](),
		QueueEvents:     revent.New[QueueEvent](),
		QueueEnd:        revent.New[QueueEndEvent](),
		Destroyed:       revent.New[DestroyEvent](),
		VoiceUpdate:     revent.New[VoiceUpdateEvent](),
		Errors:          revent.New[ErrorEvent](),
	}
}

// GuildID returns the guild this Player is bound to.
func (p *Player) GuildID() string { return p.guildID }

// Node returns the Node this Player is pinned to.
func (p *Player) Node() *node.Node { return p.node }

// Track returns the currently playing track, or nil.
func (p *Player) Track() *track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	clone := p.current.Clone()
	return &clone
}

// Queue returns the Player's queue engine. Callers needing thread safety
// beyond single calls should serialize through Player's own methods
// (AddTrack, RemoveTrack, ...) rather than mutating the returned Queue from
// multiple goroutines.
func (p *Player) Queue() *queue.Queue {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue
}

// Volume returns the last known volume, 0-1000.
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Paused reports whether playback is currently paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Playing reports whether a track is currently set to play.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// PositionMs returns the last known playback position.
func (p *Player) PositionMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionMs
}

// Connected reports whether the voice REST handshake has completed.
func (p *Player) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// VoiceChannel returns the last channel id Connect was called with, or ""
// if the player has never connected or has since left voice.
func (p *Player) VoiceChannel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceChannel
}

// SetTextChannel records the channel commands for this guild should be
// echoed to. Purely informational; Rias never sends to it directly.
func (p *Player) SetTextChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textChannel = channelID
}

// TextChannel returns the last channel set via SetTextChannel.
func (p *Player) TextChannel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textChannel
}

// SetAutoplay toggles whether Skip-on-finish is automatic.
func (p *Player) SetAutoplay(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoplay = on
}

// Autoplay reports the current autoplay setting.
func (p *Player) Autoplay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.autoplay
}

func (p *Player) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (p *Player) emitError(err error) error {
	p.Errors.Emit(ErrorEvent{GuildID: p.guildID, Err: err})
	return err
}

// Connect validates channelID (a 17-20 digit numeric string) and emits a
// VoiceUpdateEvent asking the chat platform to join/move the bot into that
// channel. It does not itself perform any REST call — the voice REST update
// fires once both a VoiceServer and VoiceState have been reconciled via
// HandleVoiceServerUpdate/HandleVoiceStateUpdate.
func (p *Player) Connect(channelID string, selfMute, selfDeaf bool) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	if !filters.IsSnowflake(channelID) {
		return p.emitError(fmt.Errorf("%w: %q", ErrInvalidChannel, channelID))
	}

	p.mu.Lock()
	p.voiceChannel = channelID
	p.mu.Unlock()

	p.VoiceUpdate.Emit(VoiceUpdateEvent{Intent: VoiceJoinIntent{
		GuildID:   p.guildID,
		ChannelID: channelID,
		SelfMute:  selfMute,
		SelfDeaf:  selfDeaf,
	}})
	return nil
}

// HandleVoiceServerUpdate stores a newly arrived VoiceServer and attempts
// the voice REST handshake if a VoiceState is already pending.
func (p *Player) HandleVoiceServerUpdate(ctx context.Context, vs VoiceServer) {
	p.mu.Lock()
	p.pendingServer = &vs
	p.mu.Unlock()
	p.tryVoiceHandshake(ctx)
}

// HandleVoiceStateUpdate stores a newly arrived VoiceState for the bot's own
// user and attempts the voice REST handshake if a VoiceServer is already
// pending. A ChannelID of "" (the bot left voice) clears VoiceChannel and
// marks the player disconnected without issuing REST.
func (p *Player) HandleVoiceStateUpdate(ctx context.Context, vs VoiceState) {
	if vs.ChannelID == "" {
		p.mu.Lock()
		p.voiceChannel = ""
		p.connected = false
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.pendingState = &vs
	p.voiceChannel = vs.ChannelID
	p.mu.Unlock()
	p.tryVoiceHandshake(ctx)
}

func (p *Player) tryVoiceHandshake(ctx context.Context) {
	p.mu.Lock()
	server := p.pendingServer
	state := p.pendingState
	p.mu.Unlock()

	if server == nil || state == nil || server.Endpoint == "" {
		return
	}

	payload := node.UpdatePlayerPayload{
		Voice: &node.VoicePayload{
			Token:     server.Token,
			Endpoint:  server.Endpoint,
			SessionID: state.SessionID,
		},
	}
	if err := p.node.UpdatePlayer(ctx, p.guildID, payload, false); err != nil {
		p.emitError(err)
		return
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.connected = true
	p.mu.Unlock()
}

// resolveEncoded resolves opts.Track or opts.Identifier into the encoded
// track blob to send to the node.
func resolveEncoded(opts PlayOptions) (string, *track.Track, error) {
	if opts.Track != nil {
		t := opts.Track.Clone()
		return t.Encoded, &t, nil
	}
	if opts.Identifier != "" {
		return opts.Identifier, nil, nil
	}
	return "", nil, fmt.Errorf("player: Play requires a Track or an Identifier")
}

// Play resolves the requested track and instructs the node to play it.
func (p *Player) Play(ctx context.Context, opts PlayOptions) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	encoded, t, err := resolveEncoded(opts)
	if err != nil {
		return p.emitError(err)
	}
	if opts.Volume != nil {
		if err := filters.ValidateVolume(*opts.Volume); err != nil {
			return p.emitError(fmt.Errorf("%w: %w", ErrInvalidVolume, err))
		}
	}
	if opts.StartMs != nil {
		if err := filters.ValidatePosition(*opts.StartMs); err != nil {
			return p.emitError(fmt.Errorf("%w: %w", ErrInvalidPosition, err))
		}
	}
	if opts.EndMs != nil {
		if err := filters.ValidatePosition(*opts.EndMs); err != nil {
			return p.emitError(fmt.Errorf("%w: %w", ErrInvalidPosition, err))
		}
	}

	payload := node.UpdatePlayerPayload{EncodedTrack: &encoded}
	if opts.Volume != nil {
		payload.Volume = opts.Volume
	}
	if opts.Paused != nil {
		payload.Paused = opts.Paused
	}
	if opts.StartMs != nil {
		payload.Position = opts.StartMs
	}
	if opts.EndMs != nil {
		payload.EndTime = opts.EndMs
	}

	if err := p.node.UpdatePlayer(ctx, p.guildID, payload, opts.NoReplace); err != nil {
		return p.emitError(err)
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return p.emitError(ErrPlayerNotFound)
	}
	p.current = t
	p.playing = true
	if opts.Volume != nil {
		p.volume = *opts.Volume
	}
	if opts.Paused != nil {
		p.paused = *opts.Paused
	}
	p.mu.Unlock()

	return nil
}

// Stop clears the currently playing track.
func (p *Player) Stop(ctx context.Context) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	if err := p.node.UpdatePlayer(ctx, p.guildID, node.UpdatePlayerPayload{EncodedTrack: ptr[string]("")}, false); err != nil {
		return p.emitError(err)
	}
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return p.emitError(ErrPlayerNotFound)
	}
	p.current = nil
	p.playing = false
	p.mu.Unlock()
	return nil
}

// Pause sets the paused state.
func (p *Player) Pause(ctx context.Context, paused bool) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	if err := p.node.UpdatePlayer(ctx, p.guildID, node.UpdatePlayerPayload{Paused: &paused}, false); err != nil {
		return p.emitError(err)
	}
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return p.emitError(ErrPlayerNotFound)
	}
	p.paused = paused
	p.mu.Unlock()
	return nil
}

// Resume is equivalent to Pause(ctx, false).
func (p *Player) Resume(ctx context.Context) error {
	return p.Pause(ctx, false)
}

// Seek moves playback to posMs, if the current track is seekable.
func (p *Player) Seek(ctx context.Context, posMs int64) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil {
		return p.emitError(ErrNoTrackPlaying)
	}
	if !cur.IsSeekable {
		return p.emitError(ErrNotSeekable)
	}
	if err := filters.ValidatePosition(posMs); err != nil {
		return p.emitError(fmt.Errorf("%w: %w", ErrInvalidPosition, err))
	}

	if err := p.node.UpdatePlayer(ctx, p.guildID, node.UpdatePlayerPayload{Position: &posMs}, false); err != nil {
		return p.emitError(err)
	}
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return p.emitError(ErrPlayerNotFound)
	}
	p.positionMs = posMs
	p.mu.Unlock()
	return nil
}

// SetVolume sets playback volume, 0-1000.
func (p *Player) SetVolume(ctx context.Context, v int) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	if err := filters.ValidateVolume(v); err != nil {
		return p.emitError(fmt.Errorf("%w: %w", ErrInvalidVolume, err))
	}
	if err := p.node.UpdatePlayer(ctx, p.guildID, node.UpdatePlayerPayload{Volume: &v}, false); err != nil {
		return p.emitError(err)
	}
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return p.emitError(ErrPlayerNotFound)
	}
	p.volume = v
	p.mu.Unlock()
	return nil
}

// SetFilters applies f as the player's active audio filters.
func (p *Player) SetFilters(ctx context.Context, f filters.Filters) error {
	if p.isDestroyed() {
		return p.emitError(ErrPlayerNotFound)
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return p.emitError(fmt.Errorf("player: marshal filters: %w", err))
	}
	if err := p.node.UpdatePlayer(ctx, p.guildID, node.UpdatePlayerPayload{Filters: raw}, false); err != nil {
		return p.emitError(err)
	}
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return p.emitError(ErrPlayerNotFound)
	}
	p.filters = f
	p.mu.Unlock()
	return nil
}

// ClearFilters resets the player's active audio filters to the canonical
// empty record.
func (p *Player) ClearFilters(ctx context.Context) error {
	return p.SetFilters(ctx, filters.Empty())
}

// AddTrack appends t to the queue and emits a queue "add" event.
func (p *Player) AddTrack(t track.Track) {
	p.mu.Lock()
	p.queue.Add(t)
	p.mu.Unlock()
	p.metrics.RecordQueueOperation("add")
	p.QueueEvents.Emit(QueueEvent{GuildID: p.guildID, Kind: "add"})
}

// AddTracks appends ts to the queue and emits a queue "add" event.
func (p *Player) AddTracks(ts []track.Track) {
	p.mu.Lock()
	p.queue.AddMany(ts)
	p.mu.Unlock()
	p.metrics.RecordQueueOperation("add")
	p.QueueEvents.Emit(QueueEvent{GuildID: p.guildID, Kind: "add"})
}

// RemoveTrack removes the track at index i and emits a queue "remove" event.
func (p *Player) RemoveTrack(i int) (track.Track, bool) {
	p.mu.Lock()
	t, ok := p.queue.Remove(i)
	p.mu.Unlock()
	p.metrics.RecordQueueOperation("remove")
	p.QueueEvents.Emit(QueueEvent{GuildID: p.guildID, Kind: "remove"})
	return t, ok
}

// ClearQueue empties the pending queue and emits a queue "clear" event.
func (p *Player) ClearQueue() {
	p.mu.Lock()
	p.queue.Clear()
	p.mu.Unlock()
	p.metrics.RecordQueueOperation("clear")
	p.QueueEvents.Emit(QueueEvent{GuildID: p.guildID, Kind: "clear"})
}

// ShuffleQueue uniformly shuffles the pending queue and emits a queue
// "shuffle" event.
func (p *Player) ShuffleQueue() {
	p.mu.Lock()
	p.queue.Shuffle()
	p.mu.Unlock()
	p.metrics.RecordQueueOperation("shuffle")
	p.QueueEvents.Emit(QueueEvent{GuildID: p.guildID, Kind: "shuffle"})
}

// SmartShuffleQueue smart-shuffles the pending queue and emits a queue
// "smartShuffle" event.
func (p *Player) SmartShuffleQueue() {
	p.mu.Lock()
	p.queue.SmartShuffle()
	p.mu.Unlock()
	p.metrics.RecordQueueOperation("smartShuffle")
	p.QueueEvents.Emit(QueueEvent{GuildID: p.guildID, Kind: "smartShuffle"})
}

// SetLoop forwards to the queue's loop mode.
func (p *Player) SetLoop(mode queue.LoopMode) {
	p.mu.Lock()
	p.queue.SetLoopMode(mode)
	p.mu.Unlock()
}

// Skip advances to the next queued track. If the queue is empty, it stops
// playback and emits QueueEnd, returning false.
func (p *Player) Skip(ctx context.Context) (bool, error) {
	if p.isDestroyed() {
		return false, p.emitError(ErrPlayerNotFound)
	}
	p.mu.Lock()
	next := p.queue.Poll()
	p.mu.Unlock()

	if next == nil {
		if err := p.Stop(ctx); err != nil {
			return false, err
		}
		p.QueueEnd.Emit(QueueEndEvent{GuildID: p.guildID})
		return false, nil
	}

	if err := p.Play(ctx, PlayOptions{Track: next}); err != nil {
		return false, err
	}
	return true, nil
}

// Destroy is an idempotent latch: it destroys the remote player (swallowing
// errors), emits Destroyed, and clears local state. After Destroy, the
// error-returning methods (Connect, Play, Stop, Pause, Resume, Seek,
// SetVolume, SetFilters, ClearFilters, Skip) return ErrPlayerNotFound. The
// queue methods and getters have no error result and keep operating on the
// cleared local state, and handlers registered on the Player's event buses
// stay registered.
func (p *Player) Destroy(ctx context.Context) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.mu.Unlock()

	_ = p.node.DestroyPlayer(ctx, p.guildID)

	p.mu.Lock()
	p.current = nil
	p.playing = false
	p.connected = false
	p.queue = queue.New()
	p.mu.Unlock()

	p.Destroyed.Emit(DestroyEvent{GuildID: p.guildID})
}

func ptr[T any](v T) *T { return &v }
