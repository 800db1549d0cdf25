package queue

import (
	"container/heap"
	"math/rand"
	"strings"

	"github.com/MrWong99/rias/track"
)

// bucket holds the remaining shuffled tracks for one author.
type bucket struct {
	key    string
	tracks []track.Track
}

// bucketHeap implements container/heap.Interface as a max-heap ordered by
// remaining bucket size (descending), so the largest remaining author group
// is always considered first.
type bucketHeap []*bucket

func (h bucketHeap) Len() int            { return len(h) }
func (h bucketHeap) Less(i, j int) bool  { return len(h[i].tracks) > len(h[j].tracks) }
func (h bucketHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bucketHeap) Push(x any)         { *h = append(*h, x.(*bucket)) }
func (h *bucketHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	*h = old[:n-1]
	return b
}

// SmartShuffle reorders the pending tracks into a permutation that avoids
// placing two same-author tracks adjacent to each other whenever the input
// distribution makes that possible.
//
// Algorithm: group tracks by trimmed, case-folded Author; shuffle each group
// internally; then repeatedly draw from the largest remaining group. If the
// largest group's author matches the author emitted immediately before it,
// and another non-empty group exists, draw from the next-largest group
// instead and put the first back for the following round. A single-track
// queue is left untouched.
func (q *Queue) SmartShuffle() {
	if len(q.tracks) <= 1 {
		return
	}

	groups := make(map[string]*bucket)
	var order []*bucket
	for _, t := range q.tracks {
		key := strings.ToLower(strings.TrimSpace(t.Author))
		b, ok := groups[key]
		if !ok {
			b = &bucket{key: key}
			groups[key] = b
			order = append(order, b)
		}
		b.tracks = append(b.tracks, t)
	}

	for _, b := range order {
		rand.Shuffle(len(b.tracks), func(i, j int) {
			b.tracks[i], b.tracks[j] = b.tracks[j], b.tracks[i]
		})
	}

	h := make(bucketHeap, 0, len(order))
	for _, b := range order {
		h = append(h, b)
	}
	heap.Init(&h)

	out := make([]track.Track, 0, len(q.tracks))
	lastKey := ""
	hasLast := false

	for h.Len() > 0 {
		top := heap.Pop(&h).(*bucket)

		if hasLast && top.key == lastKey && h.Len() > 0 {
			// The largest remaining bucket would repeat the last author;
			// draw from the next-largest bucket instead and put this one
			// back for the following round.
			next := heap.Pop(&h).(*bucket)

			emitted := next.tracks[0]
			next.tracks = next.tracks[1:]
			out = append(out, emitted)
			lastKey = next.key
			hasLast = true

			if len(next.tracks) > 0 {
				heap.Push(&h, next)
			}
			heap.Push(&h, top)
			continue
		}

		emitted := top.tracks[0]
		top.tracks = top.tracks[1:]
		out = append(out, emitted)
		lastKey = top.key
		hasLast = true

		if len(top.tracks) > 0 {
			heap.Push(&h, top)
		}
	}

	q.tracks = out
}
