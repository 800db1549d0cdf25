package player

import "errors"

// Sentinel errors returned by Player operations.
var (
	ErrNoTrackPlaying  = errors.New("player: no track playing")
	ErrInvalidVolume   = errors.New("player: invalid volume")
	ErrInvalidPosition = errors.New("player: invalid position")
	ErrInvalidChannel  = errors.New("player: invalid channel id")
	ErrNotSeekable     = errors.New("player: current track is not seekable")

	// ErrPlayerNotFound is returned by the error-returning operations of a
	// Player once it has been destroyed (see Player.Destroy), as the single
	// error kind for "no such player" rather than a destruction-specific
	// variant.
	ErrPlayerNotFound = errors.New("player: not found")
)
