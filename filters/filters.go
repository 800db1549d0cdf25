// Package filters implements the Lavalink v4 audio-filter payload and the
// validation helpers used across the node and player packages.
package filters

// EqualizerBand is one band of a 15-band equalizer.
type EqualizerBand struct {
	// Band is the band index, 0-14.
	Band int `json:"band"`

	// Gain is the band gain, -0.25 to 1.0 (1.0 is +12dB, -0.25 is -12dB and
	// effectively mutes the band).
	Gain float64 `json:"gain"`
}

// Karaoke removes or diminishes a frequency band, usually targeting vocals.
type Karaoke struct {
	Level       *float64 `json:"level,omitempty"`
	MonoLevel   *float64 `json:"monoLevel,omitempty"`
	FilterBand  *float64 `json:"filterBand,omitempty"`
	FilterWidth *float64 `json:"filterWidth,omitempty"`
}

// Timescale changes the speed, pitch, and rate of audio.
type Timescale struct {
	Speed *float64 `json:"speed,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
	Rate  *float64 `json:"rate,omitempty"`
}

// Tremolo produces a wavering volume effect.
type Tremolo struct {
	Frequency *float64 `json:"frequency,omitempty"`
	Depth     *float64 `json:"depth,omitempty"`
}

// Vibrato produces a wavering pitch effect.
type Vibrato struct {
	Frequency *float64 `json:"frequency,omitempty"`
	Depth     *float64 `json:"depth,omitempty"`
}

// Rotation simulates audio rotating around the listener (an 8D effect).
type Rotation struct {
	RotationHz *float64 `json:"rotationHz,omitempty"`
}

// Distortion distorts the audio signal.
type Distortion struct {
	SinOffset *float64 `json:"sinOffset,omitempty"`
	SinScale  *float64 `json:"sinScale,omitempty"`
	CosOffset *float64 `json:"cosOffset,omitempty"`
	CosScale  *float64 `json:"cosScale,omitempty"`
	TanOffset *float64 `json:"tanOffset,omitempty"`
	TanScale  *float64 `json:"tanScale,omitempty"`
	Offset    *float64 `json:"offset,omitempty"`
	Scale     *float64 `json:"scale,omitempty"`
}

// ChannelMix mixes the left and right channels, with a value of 1.0 meaning
// only the other channel is used.
type ChannelMix struct {
	LeftToLeft   *float64 `json:"leftToLeft,omitempty"`
	LeftToRight  *float64 `json:"leftToRight,omitempty"`
	RightToLeft  *float64 `json:"rightToLeft,omitempty"`
	RightToRight *float64 `json:"rightToRight,omitempty"`
}

// LowPass suppresses higher frequencies while allowing lower frequencies to
// pass through.
type LowPass struct {
	Smoothing *float64 `json:"smoothing,omitempty"`
}

// Filters is the full Lavalink v4 filters payload attached to a player
// update. Every pointer/map field is omitted from the wire payload when nil,
// so a Filters zero value serializes to an empty JSON object — the canonical
// "no filters" record.
type Filters struct {
	Volume        *float64                          `json:"volume,omitempty"`
	Equalizer     []EqualizerBand                   `json:"equalizer,omitempty"`
	Karaoke       *Karaoke                          `json:"karaoke,omitempty"`
	Timescale     *Timescale                        `json:"timescale,omitempty"`
	Tremolo       *Tremolo                          `json:"tremolo,omitempty"`
	Vibrato       *Vibrato                          `json:"vibrato,omitempty"`
	Rotation      *Rotation                         `json:"rotation,omitempty"`
	Distortion    *Distortion                       `json:"distortion,omitempty"`
	ChannelMix    *ChannelMix                       `json:"channelMix,omitempty"`
	LowPass       *LowPass                          `json:"lowPass,omitempty"`
	PluginFilters map[string]map[string]interface{} `json:"pluginFilters,omitempty"`
}

// Empty returns the canonical zero-value Filters record used to clear all
// active filters.
func Empty() Filters {
	return Filters{}
}

func f(v float64) *float64 { return &v }
