// Package track defines the immutable Track value type shared by the queue,
// node, and player packages.
package track

// Track is an immutable descriptor of a playable item. The Encoded field is
// the only one required to actually play the track on a node; the remaining
// fields are metadata surfaced to callers.
//
// Two Tracks are considered equal for deduplication purposes when their
// Identifier fields match, regardless of any other field.
type Track struct {
	// Encoded is the opaque, node-specific blob that identifies this track.
	// It is the only field a node needs to start playback.
	Encoded string

	// Identifier is a source-specific track ID (e.g. a YouTube video ID).
	Identifier string

	// Title is the track's display title.
	Title string

	// Author is the track's display artist/uploader.
	Author string

	// LengthMs is the track duration in milliseconds. Meaningless for
	// streams.
	LengthMs int64

	// IsStream reports whether the track is a live stream (no fixed length,
	// not counted in total-duration sums).
	IsStream bool

	// IsSeekable reports whether Seek is supported on this track.
	IsSeekable bool

	// PositionMs is the track's last known playback position in
	// milliseconds, as reported by the node.
	PositionMs int64

	// SourceName identifies the source plugin (e.g. "youtube", "soundcloud").
	SourceName string

	// URI is the canonical source URL, if any.
	URI string

	// ArtworkURL is a thumbnail/cover-art URL, if any.
	ArtworkURL string

	// ISRC is the International Standard Recording Code, if known.
	ISRC string
}

// Equal reports whether t and other refer to the same track by Identifier.
func (t Track) Equal(other Track) bool {
	return t.Identifier == other.Identifier
}

// Clone returns a shallow copy of t. Since Track has no pointer or slice
// fields, this is equivalent to a value copy; the method exists so callers
// dealing with *Track don't need to know that.
func (t Track) Clone() Track {
	return t
}
