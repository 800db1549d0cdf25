// Package queue implements the ordered track list driven by a Player: adding,
// removing, reordering, looping, and shuffling tracks.
//
// A Queue is not safe for concurrent use by multiple goroutines; callers that
// need concurrent access (the player package) guard it with their own mutex,
// matching the single-mutex-per-owner convention used throughout this
// codebase.
package queue

import (
	"math/rand"
	"strings"

	"github.com/MrWong99/rias/track"
)

// LoopMode controls what Poll returns once the current track finishes.
type LoopMode int

const (
	// LoopNone advances through the queue once with no repetition.
	LoopNone LoopMode = iota

	// LoopTrack repeats the current track indefinitely.
	LoopTrack

	// LoopQueue cycles through the whole queue, re-appending the previous
	// track on every poll.
	LoopQueue
)

// String returns the wire/display name of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "none"
	}
}

// ParseLoopMode parses the string forms accepted by the Player.SetLoop API
// ("none", "track", "queue", case-insensitive). Unrecognised values return
// LoopNone and ok=false.
func ParseLoopMode(s string) (mode LoopMode, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return LoopNone, true
	case "track":
		return LoopTrack, true
	case "queue":
		return LoopQueue, true
	default:
		return LoopNone, false
	}
}

// Queue is an ordered list of pending tracks plus loop/history state.
type Queue struct {
	tracks   []track.Track
	current  *track.Track
	previous *track.Track
	loopMode LoopMode
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Current returns the currently playing track, or nil if none.
func (q *Queue) Current() *track.Track {
	return q.current
}

// Previous returns the last track that was current before the most recent
// Poll, or nil.
func (q *Queue) Previous() *track.Track {
	return q.previous
}

// LoopMode returns the active loop mode.
func (q *Queue) LoopMode() LoopMode {
	return q.loopMode
}

// SetLoopMode sets the active loop mode.
func (q *Queue) SetLoopMode(mode LoopMode) {
	q.loopMode = mode
}

// ToggleLoop flips between LoopNone and LoopQueue, leaving LoopTrack
// untouched if currently active (matches the "toggle" affordance most bot
// commands expose: it does not silently drop a Track-loop the user asked
// for).
func (q *Queue) ToggleLoop() LoopMode {
	switch q.loopMode {
	case LoopQueue:
		q.loopMode = LoopNone
	case LoopNone:
		q.loopMode = LoopQueue
	}
	return q.loopMode
}

// Len returns the number of pending (non-current) tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty reports whether there are no pending tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// Add appends a track to the tail of the queue.
func (q *Queue) Add(t track.Track) {
	q.tracks = append(q.tracks, t)
}

// AddMany appends multiple tracks to the tail of the queue, in order.
func (q *Queue) AddMany(ts []track.Track) {
	q.tracks = append(q.tracks, ts...)
}

// Insert places t at index i, shifting successors right. i must be in
// [0, Len()]; out-of-range indices are clamped.
func (q *Queue) Insert(i int, t track.Track) {
	i = clamp(i, 0, len(q.tracks))
	q.tracks = append(q.tracks, track.Track{})
	copy(q.tracks[i+1:], q.tracks[i:])
	q.tracks[i] = t
}

// Remove deletes the track at index i, shifting successors left. Returns the
// removed track and true, or the zero value and false if i is out of range.
func (q *Queue) Remove(i int) (track.Track, bool) {
	if i < 0 || i >= len(q.tracks) {
		return track.Track{}, false
	}
	removed := q.tracks[i]
	q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)
	return removed, true
}

// At returns the track at index i without removing it.
func (q *Queue) At(i int) (track.Track, bool) {
	if i < 0 || i >= len(q.tracks) {
		return track.Track{}, false
	}
	return q.tracks[i], true
}

// Peek returns the track that would become Current on the next Poll, without
// mutating any state. Under LoopTrack it returns the current track.
func (q *Queue) Peek() *track.Track {
	if q.loopMode == LoopTrack && q.current != nil {
		return q.current
	}
	if len(q.tracks) == 0 {
		return nil
	}
	t := q.tracks[0]
	return &t
}

// Poll advances the queue and returns the new current track (or nil if the
// queue is exhausted).
//
// Semantics:
//  1. If LoopMode is LoopTrack and Current is non-nil, Current is returned
//     unchanged and nothing is mutated.
//  2. Otherwise Previous is set to the old Current, Current is set to the
//     first pending track (or nil if none remain); if LoopMode is LoopQueue
//     and both the old Previous and the new Current are non-nil, the old
//     Previous is appended to the tail.
func (q *Queue) Poll() *track.Track {
	if q.loopMode == LoopTrack && q.current != nil {
		return q.current
	}

	oldCurrent := q.current

	if len(q.tracks) == 0 {
		q.previous = oldCurrent
		q.current = nil
		return nil
	}

	next := q.tracks[0]
	q.tracks = q.tracks[1:]
	q.previous = oldCurrent
	q.current = &next

	if q.loopMode == LoopQueue && q.previous != nil && q.current != nil {
		q.tracks = append(q.tracks, *q.previous)
	}

	return q.current
}

// SkipTo drops all pending tracks before index i, then polls, so the track
// formerly at index i becomes Current. Under LoopTrack with a non-nil
// Current, the poll returns the unchanged Current instead.
func (q *Queue) SkipTo(i int) *track.Track {
	i = clamp(i, 0, len(q.tracks))
	q.tracks = q.tracks[i:]
	return q.Poll()
}

// Clear removes all pending tracks. Current/Previous/LoopMode are untouched.
func (q *Queue) Clear() {
	q.tracks = nil
}

// Shuffle performs a uniform Fisher-Yates shuffle of the pending tracks.
func (q *Queue) Shuffle() {
	rand.Shuffle(len(q.tracks), func(i, j int) {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	})
}

// Move relocates the track at index from to index to, shifting the tracks in
// between. No-op if either index is out of range.
func (q *Queue) Move(from, to int) bool {
	if from < 0 || from >= len(q.tracks) || to < 0 || to >= len(q.tracks) {
		return false
	}
	if from == to {
		return true
	}
	t := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	q.tracks = append(q.tracks[:to], append([]track.Track{t}, q.tracks[to:]...)...)
	return true
}

// Swap exchanges the tracks at indices a and b.
func (q *Queue) Swap(a, b int) bool {
	if a < 0 || a >= len(q.tracks) || b < 0 || b >= len(q.tracks) {
		return false
	}
	q.tracks[a], q.tracks[b] = q.tracks[b], q.tracks[a]
	return true
}

// Find returns the first pending track matching pred, and its index, or
// (zero value, -1) if none match.
func (q *Queue) Find(pred func(track.Track) bool) (track.Track, int) {
	for i, t := range q.tracks {
		if pred(t) {
			return t, i
		}
	}
	return track.Track{}, -1
}

// FindIndex returns the index of the first pending track matching pred, or
// -1.
func (q *Queue) FindIndex(pred func(track.Track) bool) int {
	for i, t := range q.tracks {
		if pred(t) {
			return i
		}
	}
	return -1
}

// Filter returns the pending tracks matching pred, in order. The queue
// itself is unmodified.
func (q *Queue) Filter(pred func(track.Track) bool) []track.Track {
	var out []track.Track
	for _, t := range q.tracks {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByAuthor returns pending tracks whose Author matches exactly
// (case-insensitive).
func (q *Queue) FilterByAuthor(author string) []track.Track {
	author = strings.ToLower(strings.TrimSpace(author))
	return q.Filter(func(t track.Track) bool {
		return strings.ToLower(strings.TrimSpace(t.Author)) == author
	})
}

// FilterByDuration returns pending tracks whose LengthMs falls within
// [minMs, maxMs] inclusive.
func (q *Queue) FilterByDuration(minMs, maxMs int64) []track.Track {
	return q.Filter(func(t track.Track) bool {
		return t.LengthMs >= minMs && t.LengthMs <= maxMs
	})
}

// FilterBySource returns pending tracks whose SourceName matches exactly
// (case-insensitive).
func (q *Queue) FilterBySource(source string) []track.Track {
	source = strings.ToLower(strings.TrimSpace(source))
	return q.Filter(func(t track.Track) bool {
		return strings.ToLower(t.SourceName) == source
	})
}

// RemoveByAuthor removes every pending track whose Author contains the given
// substring (case-insensitive), returning the number removed.
func (q *Queue) RemoveByAuthor(substr string) int {
	substr = strings.ToLower(strings.TrimSpace(substr))
	if substr == "" {
		return 0
	}
	kept := q.tracks[:0]
	removed := 0
	for _, t := range q.tracks {
		if strings.Contains(strings.ToLower(t.Author), substr) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	q.tracks = kept
	return removed
}

// RemoveDuplicates removes pending tracks with a repeated Identifier,
// preserving the first occurrence of each.
func (q *Queue) RemoveDuplicates() int {
	seen := make(map[string]struct{}, len(q.tracks))
	kept := q.tracks[:0]
	removed := 0
	for _, t := range q.tracks {
		if _, ok := seen[t.Identifier]; ok {
			removed++
			continue
		}
		seen[t.Identifier] = struct{}{}
		kept = append(kept, t)
	}
	q.tracks = kept
	return removed
}

// Reverse reverses the order of pending tracks in place.
func (q *Queue) Reverse() {
	for i, j := 0, len(q.tracks)-1; i < j; i, j = i+1, j-1 {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	}
}

// Slice returns a copy of the pending tracks in [start, end). If end is
// negative, it is treated as Len(). Out-of-range bounds are clamped.
func (q *Queue) Slice(start, end int) []track.Track {
	n := len(q.tracks)
	if end < 0 {
		end = n
	}
	start = clamp(start, 0, n)
	end = clamp(end, start, n)
	out := make([]track.Track, end-start)
	copy(out, q.tracks[start:end])
	return out
}

// All returns a copy of every pending track, in order.
func (q *Queue) All() []track.Track {
	return q.Slice(0, -1)
}

// Duration returns the sum of LengthMs across pending (non-current) tracks.
func (q *Queue) Duration() int64 {
	var total int64
	for _, t := range q.tracks {
		total += t.LengthMs
	}
	return total
}

// TotalDuration adds the current track's length to Duration, unless the
// current track is a stream.
func (q *Queue) TotalDuration() int64 {
	total := q.Duration()
	if q.current != nil && !q.current.IsStream {
		total += q.current.LengthMs
	}
	return total
}

// Summary is a read-only snapshot of queue state, useful for status
// commands.
type Summary struct {
	Size            int
	Duration        int64
	TotalDuration   int64
	IsEmpty         bool
	Current         *track.Track
	Previous        *track.Track
	LoopMode        LoopMode
	UniqueAuthors   int
	UniqueSources   int
}

// Summary computes a Summary snapshot of the current queue state.
func (q *Queue) Summary() Summary {
	authors := make(map[string]struct{})
	sources := make(map[string]struct{})
	for _, t := range q.tracks {
		authors[strings.ToLower(strings.TrimSpace(t.Author))] = struct{}{}
		sources[strings.ToLower(t.SourceName)] = struct{}{}
	}
	return Summary{
		Size:          len(q.tracks),
		Duration:      q.Duration(),
		TotalDuration: q.TotalDuration(),
		IsEmpty:       len(q.tracks) == 0,
		Current:       q.current,
		Previous:      q.previous,
		LoopMode:      q.loopMode,
		UniqueAuthors: len(authors),
		UniqueSources: len(sources),
	}
}

// Clone returns a deep-enough copy of q: the track slice and current/previous
// pointers are independent of the original, though Track values themselves
// are shallow (they have no pointer fields).
func (q *Queue) Clone() *Queue {
	clone := &Queue{
		tracks:   append([]track.Track(nil), q.tracks...),
		loopMode: q.loopMode,
	}
	if q.current != nil {
		c := *q.current
		clone.current = &c
	}
	if q.previous != nil {
		p := *q.previous
		clone.previous = &p
	}
	return clone
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
