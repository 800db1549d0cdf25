package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/MrWong99/rias/node"
	"github.com/MrWong99/rias/queue"
	"github.com/MrWong99/rias/track"
)

// readyNode returns a Node wired to srv and forced into the ready state
// without going through the WebSocket handshake.
func readyNode(t *testing.T, srv *httptest.Server) *node.Node {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return node.NewTestReady(u.Hostname(), port, srv.Client())
}

func TestConnectValidatesChannelID(t *testing.T) {
	p := New("g1", nil, nil)

	if err := p.Connect("not-a-snowflake", false, false); err == nil {
		t.Fatal("Connect() error = nil, want ErrInvalidChannel")
	}

	var captured VoiceUpdateEvent
	p.VoiceUpdate.On(func(ev VoiceUpdateEvent) { captured = ev })

	if err := p.Connect("123456789012345678", true, false); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if captured.Intent.GuildID != "g1" || captured.Intent.ChannelID != "123456789012345678" || !captured.Intent.SelfMute {
		t.Errorf("VoiceUpdateEvent = %+v", captured)
	}
	if p.VoiceChannel() != "123456789012345678" {
		t.Errorf("VoiceChannel() = %q", p.VoiceChannel())
	}
}

func TestVoiceHandshakeFiresOnceBothPending(t *testing.T) {
	var gotVoice map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotVoice, _ = body["voice"].(map[string]any)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)

	p.HandleVoiceServerUpdate(context.Background(), VoiceServer{Token: "tok", GuildID: "g1", Endpoint: "us-east.example.com"})
	if p.Connected() {
		t.Fatal("Connected() = true before voice state arrived")
	}

	p.HandleVoiceStateUpdate(context.Background(), VoiceState{GuildID: "g1", SessionID: "sess", ChannelID: "123456789012345678"})
	if !p.Connected() {
		t.Fatal("Connected() = false after both halves arrived")
	}
	if gotVoice["token"] != "tok" || gotVoice["endpoint"] != "us-east.example.com" || gotVoice["sessionId"] != "sess" {
		t.Errorf("voice payload = %+v", gotVoice)
	}
}

func TestVoiceStateLeaveClearsConnection(t *testing.T) {
	p := New("g1", nil, nil)
	p.mu.Lock()
	p.connected = true
	p.voiceChannel = "123456789012345678"
	p.mu.Unlock()

	p.HandleVoiceStateUpdate(context.Background(), VoiceState{GuildID: "g1", ChannelID: ""})

	if p.Connected() {
		t.Error("Connected() = true after leave")
	}
	if p.VoiceChannel() != "" {
		t.Errorf("VoiceChannel() = %q, want empty", p.VoiceChannel())
	}
}

func TestPlaySendsEncodedTrackAndUpdatesState(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)

	var started TrackStartEvent
	p.TrackStart.On(func(ev TrackStartEvent) { started = ev })

	tr := track.Track{Encoded: "ENC", Identifier: "abc", Title: "Song"}
	if err := p.Play(context.Background(), PlayOptions{Track: &tr}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if gotBody["encodedTrack"] != "ENC" {
		t.Errorf("body = %v, want encodedTrack=ENC", gotBody)
	}
	if !p.Playing() {
		t.Error("Playing() = false after Play")
	}
	if got := p.Track(); got == nil || got.Identifier != "abc" {
		t.Errorf("Track() = %+v", got)
	}

	p.HandleServerEvent(node.ServerEvent{
		NodeID: "n1", GuildID: "g1", Type: "TrackStartEvent",
		Data: json.RawMessage(`{"track":{"encoded":"ENC","info":{"identifier":"abc","title":"Song","author":"","length":0,"isStream":false,"isSeekable":true,"position":0,"sourceName":"yt"}}}`),
	})
	if started.Track.Identifier != "abc" {
		t.Errorf("TrackStartEvent = %+v", started)
	}
}

func TestSkipAdvancesFromQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)
	p.AddTrack(track.Track{Encoded: "E1", Identifier: "t1"})
	p.AddTrack(track.Track{Encoded: "E2", Identifier: "t2"})

	ok, err := p.Skip(context.Background())
	if err != nil || !ok {
		t.Fatalf("Skip() = (%v, %v), want (true, nil)", ok, err)
	}
	if got := p.Track(); got == nil || got.Identifier != "t1" {
		t.Errorf("Track() after Skip = %+v", got)
	}
	if p.Queue().Len() != 1 {
		t.Errorf("Queue().Len() = %d, want 1", p.Queue().Len())
	}
}

func TestSkipOnEmptyQueueStopsAndEmitsQueueEnd(t *testing.T) {
	var destroyCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		destroyCalls++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)

	var ended bool
	p.QueueEnd.On(func(QueueEndEvent) { ended = true })

	ok, err := p.Skip(context.Background())
	if err != nil || ok {
		t.Fatalf("Skip() = (%v, %v), want (false, nil)", ok, err)
	}
	if !ended {
		t.Error("QueueEnd was not emitted")
	}
	if destroyCalls != 1 {
		t.Errorf("PATCH calls = %d, want 1 (the Stop)", destroyCalls)
	}
}

func TestDestroyIsIdempotentAndLatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)

	var destroyed int
	p.Destroyed.On(func(DestroyEvent) { destroyed++ })

	p.Destroy(context.Background())
	p.Destroy(context.Background())

	if destroyed != 1 {
		t.Errorf("Destroyed fired %d times, want 1", destroyed)
	}
	if err := p.Pause(context.Background(), true); err == nil {
		t.Error("Pause() after Destroy() = nil error, want ErrPlayerNotFound")
	}
}

func TestSetVolumeValidates(t *testing.T) {
	p := New("g1", nil, nil)
	if err := p.SetVolume(context.Background(), -1); err == nil {
		t.Fatal("SetVolume(-1) error = nil, want ErrInvalidVolume")
	}
}

// TestDestroyDuringInFlightPlayWinsRace covers the case where Destroy runs
// concurrently with a Play whose REST call is already in flight (as happens
// when maybeAdvance's autoplay goroutine races an explicit Destroy): Play
// must not resurrect player state once Destroy has latched.
func TestDestroyDuringInFlightPlayWinsRace(t *testing.T) {
	release := make(chan struct{})
	reachedHandler := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			close(reachedHandler)
			<-release
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)

	playErrCh := make(chan error, 1)
	go func() {
		playErrCh <- p.Play(context.Background(), PlayOptions{Identifier: "ident"})
	}()

	<-reachedHandler
	p.Destroy(context.Background())
	close(release)

	if err := <-playErrCh; err == nil {
		t.Error("Play() racing Destroy() returned nil error, want ErrPlayerNotFound")
	}
	if p.Playing() {
		t.Error("Playing() = true after Destroy() won the race with an in-flight Play()")
	}
	if p.Track() != nil {
		t.Error("Track() != nil after Destroy() won the race with an in-flight Play()")
	}
}

func TestTrackEndFinishedAdvancesQueueWhenAutoplayEnabled(t *testing.T) {
	played := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if enc, ok := body["encodedTrack"].(string); ok {
			select {
			case played <- enc:
			default:
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)
	p.SetAutoplay(true)
	p.AddTrack(track.Track{Encoded: "NEXT", Identifier: "next"})

	p.HandleServerEvent(node.ServerEvent{
		NodeID: "n1", GuildID: "g1", Type: "TrackEndEvent",
		Data: json.RawMessage(`{"track":{"encoded":"OLD","info":{"identifier":"old","title":"","author":"","length":0,"isStream":false,"isSeekable":true,"position":0,"sourceName":"yt"}},"reason":"finished"}`),
	})

	var playedEncoded string
	select {
	case playedEncoded = <-played:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the PATCH carrying the next track")
	}
	if playedEncoded != "NEXT" {
		t.Errorf("encodedTrack sent = %q, want %q", playedEncoded, "NEXT")
	}
}

func TestTrackEndStoppedDoesNotAdvanceQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := readyNode(t, srv)
	p := New("g1", n, nil)
	p.SetAutoplay(true)
	p.AddTrack(track.Track{Encoded: "NEXT", Identifier: "next"})

	var started bool
	p.TrackStart.On(func(TrackStartEvent) { started = true })

	p.HandleServerEvent(node.ServerEvent{
		NodeID: "n1", GuildID: "g1", Type: "TrackEndEvent",
		Data: json.RawMessage(`{"track":{"encoded":"OLD","info":{"identifier":"old","title":"","author":"","length":0,"isStream":false,"isSeekable":true,"position":0,"sourceName":"yt"}},"reason":"stopped"}`),
	})

	if started {
		t.Error("TrackStart fired after a stopped TrackEndEvent, want autoplay to leave it alone")
	}
	if p.Queue().Len() != 1 {
		t.Errorf("Queue().Len() = %d, want 1 (untouched)", p.Queue().Len())
	}
}

func TestSetLoopDelegatesToQueue(t *testing.T) {
	p := New("g1", nil, nil)
	p.SetLoop(queue.LoopTrack)
	if p.Queue().LoopMode() != queue.LoopTrack {
		t.Errorf("LoopMode() = %v, want LoopTrack", p.Queue().LoopMode())
	}
}
