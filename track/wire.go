package track

import "encoding/json"

// WireInfo mirrors the Lavalink v4 track "info" object.
type WireInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri,omitempty"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
	ISRC       string `json:"isrc,omitempty"`
	SourceName string `json:"sourceName"`
}

// Wire mirrors the Lavalink v4 track object as returned by /loadtracks,
// /decodetrack, and embedded in event frames.
type Wire struct {
	Encoded    string          `json:"encoded"`
	Info       WireInfo        `json:"info"`
	PluginInfo json.RawMessage `json:"pluginInfo,omitempty"`
	UserData   json.RawMessage `json:"userData,omitempty"`
}

// ToTrack converts a wire-format track into the client-facing Track type.
func (w Wire) ToTrack() Track {
	return Track{
		Encoded:    w.Encoded,
		Identifier: w.Info.Identifier,
		Title:      w.Info.Title,
		Author:     w.Info.Author,
		LengthMs:   w.Info.Length,
		IsStream:   w.Info.IsStream,
		IsSeekable: w.Info.IsSeekable,
		PositionMs: w.Info.Position,
		SourceName: w.Info.SourceName,
		URI:        w.Info.URI,
		ArtworkURL: w.Info.ArtworkURL,
		ISRC:       w.Info.ISRC,
	}
}

// FromTrack converts a Track back into wire format, e.g. for tests or for
// round-tripping through code that only has the client-facing type.
func FromTrack(t Track) Wire {
	return Wire{
		Encoded: t.Encoded,
		Info: WireInfo{
			Identifier: t.Identifier,
			IsSeekable: t.IsSeekable,
			Author:     t.Author,
			Length:     t.LengthMs,
			IsStream:   t.IsStream,
			Position:   t.PositionMs,
			Title:      t.Title,
			URI:        t.URI,
			ArtworkURL: t.ArtworkURL,
			ISRC:       t.ISRC,
			SourceName: t.SourceName,
		},
	}
}

// DecodeWire unmarshals a single wire-format track from JSON.
func DecodeWire(data []byte) (Track, error) {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Track{}, err
	}
	return w.ToTrack(), nil
}
