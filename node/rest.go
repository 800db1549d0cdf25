package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/rias/track"
	"github.com/google/uuid"
)

// UpdatePlayerPayload is the subset of player fields a caller may PATCH in a
// single call. Pointer/nil fields are omitted from the request body. An
// EncodedTrack pointing at "" is sent as JSON null, which stops playback.
type UpdatePlayerPayload struct {
	EncodedTrack *string         `json:"encodedTrack,omitempty"`
	Identifier   *string         `json:"identifier,omitempty"`
	Position     *int64          `json:"position,omitempty"`
	EndTime      *int64          `json:"endTime,omitempty"`
	Volume       *int            `json:"volume,omitempty"`
	Paused       *bool           `json:"paused,omitempty"`
	Filters      json.RawMessage `json:"filters,omitempty"`
	Voice        *VoicePayload   `json:"voice,omitempty"`
}

// VoicePayload is the `voice` sub-object of an UpdatePlayerPayload.
type VoicePayload struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

// doREST issues a context-scoped HTTP request against this node, attaching
// the shared password and a correlation id, and returns the raw response
// body on 2xx. On non-2xx it decodes a best-effort {message} body into a
// *RestError, treating 404 as success when allow404 is true.
func (n *Node) doREST(ctx context.Context, method, path string, body []byte, allow404 bool) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseHTTPURL()+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("node %s: build request: %w", n.id, err)
	}
	req.Header.Set("Authorization", n.password)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := n.httpClient.Do(req)
	n.metrics.RecordRESTLatency(n.id, path, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		} else {
			err = fmt.Errorf("node %s: %s %s: %w", n.id, method, path, err)
		}
		n.ErrorEvents.Emit(ErrorEvent{NodeID: n.id, Err: err})
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("node %s: read response: %w", n.id, err)
	}

	if resp.StatusCode == http.StatusNotFound && allow404 {
		return respBody, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decodeErrorMessage(respBody)
		return nil, &RestError{Status: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}

func decodeErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		return string(body)
	}
	return payload.Message
}

// UpdatePlayer PATCHes the given guild's player with payload. noReplace
// defers to the node's queue-preservation semantics for the currently
// playing track.
func (n *Node) UpdatePlayer(ctx context.Context, guildID string, payload UpdatePlayerPayload, noReplace bool) error {
	if err := n.readyGate(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("node %s: marshal update payload: %w", n.id, err)
	}
	if payload.EncodedTrack != nil && *payload.EncodedTrack == "" {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err == nil {
			fields["encodedTrack"] = json.RawMessage("null")
			if b, err := json.Marshal(fields); err == nil {
				body = b
			}
		}
	}

	path := fmt.Sprintf("/sessions/%s/players/%s", n.SessionID(), guildID)
	if noReplace {
		path += "?noReplace=true"
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = n.doREST(ctx, http.MethodPatch, path, body, false)
	return err
}

// DestroyPlayer DELETEs the given guild's player. A 404 (already destroyed)
// is treated as success.
func (n *Node) DestroyPlayer(ctx context.Context, guildID string) error {
	if err := n.readyGate(); err != nil {
		return err
	}
	path := fmt.Sprintf("/sessions/%s/players/%s", n.SessionID(), guildID)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := n.doREST(ctx, http.MethodDelete, path, nil, true)
	return err
}

// LoadTracks resolves identifier (a URL, a raw search query, or a
// source-prefixed query such as "ytsearch:...") into the tagged-union
// loadtracks response.
func (n *Node) LoadTracks(ctx context.Context, identifier string) (*LoadResult, error) {
	if err := n.readyGate(); err != nil {
		return nil, err
	}
	path := "/loadtracks?identifier=" + url.QueryEscape(identifier)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := n.doREST(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackLoadFailed, err)
	}
	return parseLoadResult(body)
}

// DecodeTrack decodes a single base64 track blob into its metadata.
func (n *Node) DecodeTrack(ctx context.Context, encoded string) (*track.Track, error) {
	if err := n.readyGate(); err != nil {
		return nil, err
	}
	path := "/decodetrack?encodedTrack=" + url.QueryEscape(encoded)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := n.doREST(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}
	var w track.Wire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("node %s: decode track response: %w", n.id, err)
	}
	t := w.ToTrack()
	return &t, nil
}

// DecodeTracks decodes a batch of base64 track blobs.
func (n *Node) DecodeTracks(ctx context.Context, encoded []string) ([]track.Track, error) {
	if err := n.readyGate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(encoded)
	if err != nil {
		return nil, fmt.Errorf("node %s: marshal decodetracks request: %w", n.id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	respBody, err := n.doREST(ctx, http.MethodPost, "/decodetracks", body, false)
	if err != nil {
		return nil, err
	}
	var wires []track.Wire
	if err := json.Unmarshal(respBody, &wires); err != nil {
		return nil, fmt.Errorf("node %s: decode decodetracks response: %w", n.id, err)
	}
	out := make([]track.Track, len(wires))
	for i, w := range wires {
		out[i] = w.ToTrack()
	}
	return out, nil
}

// GetInfo returns the node's cached capability info, refreshing it from
// `/v4/info` if the cache is stale or forceRefresh is set. On refresh, the
// plugin index is rebuilt and InfoEvents/PluginEvents fire.
func (n *Node) GetInfo(ctx context.Context, forceRefresh bool) (Info, error) {
	if err := n.readyGate(); err != nil {
		return Info{}, err
	}
	return n.getInfo(ctx, forceRefresh)
}

// getInfo is GetInfo without the readiness gate, for discoverPlugins, which
// must run on socket open before the `ready` frame sets the session id.
func (n *Node) getInfo(ctx context.Context, forceRefresh bool) (Info, error) {
	n.mu.Lock()
	cached := n.info
	age := time.Since(n.infoFetchedAt)
	n.mu.Unlock()

	if cached != nil && !forceRefresh && age < defaultInfoTTL {
		return *cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := n.doREST(ctx, http.MethodGet, "/info", nil, false)
	if err != nil {
		if cached != nil {
			return *cached, nil
		}
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, fmt.Errorf("node %s: decode info response: %w", n.id, err)
	}

	n.mu.Lock()
	n.info = &info
	n.infoFetchedAt = time.Now()
	n.mu.Unlock()

	n.rebuildPluginIndex(info)
	n.InfoEvents.Emit(InfoUpdateEvent{NodeID: n.id, Info: info})

	return info, nil
}

// PluginRequest issues a request against a plugin-specific REST endpoint.
// It verifies the plugin is installed (refreshing the cache if empty),
// returning ErrPluginNotInstalled otherwise. The raw response body is
// returned as-is without inspecting its Content-Type; an empty body yields
// nil.
func (n *Node) PluginRequest(ctx context.Context, pluginName, method, endpoint string, body []byte) (json.RawMessage, error) {
	if err := n.readyGate(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	empty := len(n.plugins) == 0
	n.mu.Unlock()
	if empty {
		if _, err := n.GetInfo(ctx, true); err != nil {
			return nil, err
		}
	}
	if !n.HasPlugin(pluginName) {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotInstalled, pluginName)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	path := "/" + strings.TrimPrefix(endpoint, "/")
	respBody, err := n.doREST(ctx, method, path, body, false)
	if err != nil {
		return nil, err
	}
	if len(respBody) == 0 {
		return nil, nil
	}
	return json.RawMessage(respBody), nil
}
