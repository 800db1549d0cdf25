package node

import (
	"encoding/json"
	"fmt"

	"github.com/MrWong99/rias/track"
)

// State is a Node's connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Memory mirrors Lavalink's stats.memory object, in bytes.
type Memory struct {
	Free       int64 `json:"free"`
	Used       int64 `json:"used"`
	Allocated  int64 `json:"allocated"`
	Reservable int64 `json:"reservable"`
}

// CPU mirrors Lavalink's stats.cpu object.
type CPU struct {
	Cores        int     `json:"cores"`
	SystemLoad   float64 `json:"systemLoad"`
	LavalinkLoad float64 `json:"lavalinkLoad"`
}

// FrameStats mirrors Lavalink's optional stats.frameStats object, present
// only when the node is actively playing audio for this client.
type FrameStats struct {
	Sent    int `json:"sent"`
	Nulled  int `json:"nulled"`
	Deficit int `json:"deficit"`
}

// Stats is the most recent `stats` payload reported by the node.
type Stats struct {
	Players        int         `json:"players"`
	PlayingPlayers int         `json:"playingPlayers"`
	UptimeMs       int64       `json:"uptime"`
	Memory         Memory      `json:"memory"`
	CPU            CPU         `json:"cpu"`
	FrameStats     *FrameStats `json:"frameStats,omitempty"`
}

// Plugin describes one Lavalink plugin installed on a node.
type Plugin struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Info is the node's `/v4/info` response, minus fields Rias does not use.
type Info struct {
	Version struct {
		Semver string `json:"semver"`
		Major  int    `json:"major"`
		Minor  int    `json:"minor"`
		Patch  int    `json:"patch"`
	} `json:"version"`
	BuildTime      int64    `json:"buildTime"`
	JVM            string   `json:"jvm"`
	Lavaplayer     string   `json:"lavaplayer"`
	SourceManagers []string `json:"sourceManagers"`
	Filters        []string `json:"filters"`
	Plugins        []Plugin `json:"plugins"`
}

// LoadType discriminates the `loadtracks` tagged-union response.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// PlaylistInfo is the `data.info` object on a LoadTypePlaylist result.
type PlaylistInfo struct {
	Name          string `json:"name"`
	SelectedTrack int    `json:"selectedTrack"`
}

// LoadException is the `data` object on a LoadTypeError result.
type LoadException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"` // common | suspicious | fault
	Cause    string `json:"cause"`
}

// LoadResult is the parsed `loadtracks` response. Exactly the fields
// relevant to LoadType are populated; callers should switch on LoadType.
type LoadResult struct {
	LoadType LoadType

	// Populated when LoadType == LoadTypeTrack.
	Track *track.Track

	// Populated when LoadType == LoadTypePlaylist.
	PlaylistInfo *PlaylistInfo
	PluginInfo   json.RawMessage

	// Populated when LoadType ∈ {LoadTypePlaylist, LoadTypeSearch}.
	Tracks []track.Track

	// Populated when LoadType == LoadTypeError.
	Exception *LoadException
}

// wireLoadResult is the raw shape of a loadtracks response before it is
// resolved into a LoadResult based on loadType.
type wireLoadResult struct {
	LoadType LoadType        `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

func parseLoadResult(body []byte) (*LoadResult, error) {
	var raw wireLoadResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("node: decode loadtracks response: %w", err)
	}

	res := &LoadResult{LoadType: raw.LoadType}

	switch raw.LoadType {
	case LoadTypeTrack:
		var w track.Wire
		if err := json.Unmarshal(raw.Data, &w); err != nil {
			return nil, fmt.Errorf("node: decode loadtracks track: %w", err)
		}
		t := w.ToTrack()
		res.Track = &t

	case LoadTypePlaylist:
		var payload struct {
			Info       PlaylistInfo    `json:"info"`
			PluginInfo json.RawMessage `json:"pluginInfo,omitempty"`
			Tracks     []track.Wire    `json:"tracks"`
		}
		if err := json.Unmarshal(raw.Data, &payload); err != nil {
			return nil, fmt.Errorf("node: decode loadtracks playlist: %w", err)
		}
		res.PlaylistInfo = &payload.Info
		res.PluginInfo = payload.PluginInfo
		res.Tracks = make([]track.Track, len(payload.Tracks))
		for i, w := range payload.Tracks {
			res.Tracks[i] = w.ToTrack()
		}

	case LoadTypeSearch:
		var wires []track.Wire
		if err := json.Unmarshal(raw.Data, &wires); err != nil {
			return nil, fmt.Errorf("node: decode loadtracks search: %w", err)
		}
		res.Tracks = make([]track.Track, len(wires))
		for i, w := range wires {
			res.Tracks[i] = w.ToTrack()
		}

	case LoadTypeEmpty:
		// data is null; nothing to populate.

	case LoadTypeError:
		var exc LoadException
		if err := json.Unmarshal(raw.Data, &exc); err != nil {
			return nil, fmt.Errorf("node: decode loadtracks exception: %w", err)
		}
		res.Exception = &exc

	default:
		return nil, fmt.Errorf("node: unknown loadType %q", raw.LoadType)
	}

	return res, nil
}
