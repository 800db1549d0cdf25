package queue

import (
	"strings"
	"testing"

	"github.com/MrWong99/rias/track"
)

func mustTrack(id string) track.Track {
	return track.Track{Identifier: id, Encoded: "enc-" + id}
}

func TestQueueRoundTrip(t *testing.T) {
	q := New()
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		q.Add(mustTrack(id))
	}

	for _, id := range ids {
		got := q.Poll()
		if got == nil || got.Identifier != id {
			t.Fatalf("Poll() = %v, want %q", got, id)
		}
	}

	if got := q.Poll(); got != nil {
		t.Fatalf("Poll() after exhaustion = %v, want nil", got)
	}
}

func TestQueueAddMany(t *testing.T) {
	q := New()
	q.AddMany([]track.Track{mustTrack("a"), mustTrack("b")})
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}

func TestTrackLoopReturnsCurrentUnchanged(t *testing.T) {
	q := New()
	q.Add(mustTrack("a"))
	q.Poll() // current = a, tracks empty
	q.SetLoopMode(LoopTrack)

	for i := 0; i < 50; i++ {
		got := q.Poll()
		if got == nil || got.Identifier != "a" {
			t.Fatalf("iteration %d: Poll() = %v, want a", i, got)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (loop-track must not mutate tracks)", q.Len())
	}
}

func TestQueueLoopCyclesForever(t *testing.T) {
	q := New()
	q.Add(mustTrack("a"))
	q.Add(mustTrack("b"))
	q.SetLoopMode(LoopQueue)

	seq := []string{}
	for i := 0; i < 6; i++ {
		got := q.Poll()
		seq = append(seq, got.Identifier)
	}
	want := []string{"a", "b", "a", "b", "a", "b"}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", seq, want)
		}
	}
}

func TestQueueLoopMultisetInvariant(t *testing.T) {
	q := New()
	q.Add(mustTrack("a"))
	q.Add(mustTrack("b"))
	q.SetLoopMode(LoopQueue)

	for i := 0; i < 20; i++ {
		q.Poll()
		counts := map[string]int{}
		if q.current != nil {
			counts[q.current.Identifier]++
		}
		for _, tr := range q.tracks {
			counts[tr.Identifier]++
		}
		if counts["a"] != 1 || counts["b"] != 1 {
			t.Fatalf("iteration %d: multiset = %v, want {a:1,b:1}", i, counts)
		}
	}
}

func TestInsertBounds(t *testing.T) {
	q := New()
	q.Add(mustTrack("a"))
	q.Add(mustTrack("c"))
	q.Insert(1, mustTrack("b"))

	got := q.All()
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if got[i].Identifier != w {
			t.Fatalf("All() = %v, want %v", got, want)
		}
	}

	// Out-of-range insert clamps to the end.
	q.Insert(100, mustTrack("d"))
	all := q.All()
	if all[len(all)-1].Identifier != "d" {
		t.Fatalf("out-of-range insert did not clamp to tail: %v", all)
	}
}

func TestRemoveShiftsLeft(t *testing.T) {
	q := New()
	q.AddMany([]track.Track{mustTrack("a"), mustTrack("b"), mustTrack("c")})
	removed, ok := q.Remove(1)
	if !ok || removed.Identifier != "b" {
		t.Fatalf("Remove(1) = %v, %v", removed, ok)
	}
	all := q.All()
	if len(all) != 2 || all[0].Identifier != "a" || all[1].Identifier != "c" {
		t.Fatalf("All() after remove = %v", all)
	}
}

func TestSkipToDropsAndPolls(t *testing.T) {
	q := New()
	q.AddMany([]track.Track{mustTrack("a"), mustTrack("b"), mustTrack("c")})
	got := q.SkipTo(1)
	if got == nil || got.Identifier != "b" {
		t.Fatalf("SkipTo(1) = %v, want b", got)
	}
	if q.Len() != 1 || q.All()[0].Identifier != "c" {
		t.Fatalf("remaining tracks = %v, want [c]", q.All())
	}
}

func TestRemoveDuplicatesPreservesFirst(t *testing.T) {
	q := New()
	a1 := track.Track{Identifier: "a", Title: "first"}
	a2 := track.Track{Identifier: "a", Title: "second"}
	q.Add(a1)
	q.Add(mustTrack("b"))
	q.Add(a2)

	removed := q.RemoveDuplicates()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	all := q.All()
	if len(all) != 2 || all[0].Title != "first" {
		t.Fatalf("All() = %v, want first a preserved", all)
	}
}

func TestRemoveByAuthorCaseInsensitiveSubstring(t *testing.T) {
	q := New()
	q.Add(track.Track{Identifier: "1", Author: "DJ Foo"})
	q.Add(track.Track{Identifier: "2", Author: "Bar Band"})
	q.Add(track.Track{Identifier: "3", Author: "dj foobar"})

	removed := q.RemoveByAuthor("foo")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if q.Len() != 1 || q.All()[0].Identifier != "2" {
		t.Fatalf("remaining = %v", q.All())
	}
}

func TestDurationExcludesCurrentStream(t *testing.T) {
	q := New()
	q.Add(track.Track{Identifier: "a", LengthMs: 1000})
	q.Add(track.Track{Identifier: "b", LengthMs: 2000})
	q.Poll() // current = a (1000ms), pending = [b 2000ms]

	if got := q.Duration(); got != 2000 {
		t.Fatalf("Duration() = %d, want 2000", got)
	}
	if got := q.TotalDuration(); got != 3000 {
		t.Fatalf("TotalDuration() = %d, want 3000", got)
	}

	q.current.IsStream = true
	if got := q.TotalDuration(); got != 2000 {
		t.Fatalf("TotalDuration() with stream current = %d, want 2000", got)
	}
}

func TestReverseAndSlice(t *testing.T) {
	q := New()
	q.AddMany([]track.Track{mustTrack("a"), mustTrack("b"), mustTrack("c")})
	q.Reverse()
	all := q.All()
	if all[0].Identifier != "c" || all[2].Identifier != "a" {
		t.Fatalf("Reverse() = %v", all)
	}

	sl := q.Slice(1, -1)
	if len(sl) != 2 || sl[0].Identifier != "b" {
		t.Fatalf("Slice(1,-1) = %v", sl)
	}
}

func TestToggleLoop(t *testing.T) {
	q := New()
	if q.ToggleLoop() != LoopQueue {
		t.Fatalf("first toggle should set LoopQueue")
	}
	if q.ToggleLoop() != LoopNone {
		t.Fatalf("second toggle should clear back to LoopNone")
	}

	q.SetLoopMode(LoopTrack)
	if q.ToggleLoop() != LoopTrack {
		t.Fatalf("toggle while LoopTrack is active must leave it untouched")
	}
	if q.LoopMode() != LoopTrack {
		t.Fatalf("LoopMode() = %v, want LoopTrack to survive ToggleLoop()", q.LoopMode())
	}
}

func TestParseLoopMode(t *testing.T) {
	cases := map[string]LoopMode{
		"none": LoopNone, "": LoopNone, "Track": LoopTrack, "QUEUE": LoopQueue,
	}
	for in, want := range cases {
		got, ok := ParseLoopMode(in)
		if !ok || got != want {
			t.Fatalf("ParseLoopMode(%q) = %v, %v; want %v, true", in, got, ok, want)
		}
	}
	if _, ok := ParseLoopMode("bogus"); ok {
		t.Fatalf("ParseLoopMode(bogus) should not be ok")
	}
}

func TestSummary(t *testing.T) {
	q := New()
	q.Add(track.Track{Identifier: "a", Author: "X", SourceName: "yt", LengthMs: 100})
	q.Add(track.Track{Identifier: "b", Author: "y", SourceName: "sc", LengthMs: 200})
	s := q.Summary()
	if s.Size != 2 || s.UniqueAuthors != 2 || s.UniqueSources != 2 {
		t.Fatalf("Summary() = %+v", s)
	}
}

func isPermutation(a, b []track.Track) bool {
	if len(a) != len(b) {
		return false
	}
	counts := map[string]int{}
	for _, t := range a {
		counts[t.Identifier]++
	}
	for _, t := range b {
		counts[t.Identifier]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func TestSmartShufflePermutationAndAdjacency(t *testing.T) {
	input := []track.Track{
		{Identifier: "A1", Author: "A"},
		{Identifier: "A2", Author: "A"},
		{Identifier: "A3", Author: "A"},
		{Identifier: "B1", Author: "B"},
		{Identifier: "C1", Author: "C"},
	}

	for trial := 0; trial < 20; trial++ {
		q := New()
		q.AddMany(append([]track.Track(nil), input...))
		q.SmartShuffle()
		out := q.All()

		if !isPermutation(input, out) {
			t.Fatalf("trial %d: SmartShuffle output %v is not a permutation of input", trial, out)
		}
		for i := 1; i < len(out); i++ {
			if strings.EqualFold(out[i].Author, out[i-1].Author) {
				t.Fatalf("trial %d: adjacent same-author tracks at %d: %v", trial, i, out)
			}
		}
	}
}

func TestSmartShuffleSingleTrackNoop(t *testing.T) {
	q := New()
	q.Add(mustTrack("only"))
	q.SmartShuffle()
	if q.Len() != 1 || q.All()[0].Identifier != "only" {
		t.Fatalf("single-track SmartShuffle mutated queue: %v", q.All())
	}
}

func TestSmartShuffleDominantAuthorStillPermutes(t *testing.T) {
	// Author "A" has 4 of 5 tracks, exceeding ceil(n/2)=3, so adjacency
	// can't be avoided — only the permutation invariant is required.
	input := []track.Track{
		{Identifier: "A1", Author: "A"},
		{Identifier: "A2", Author: "A"},
		{Identifier: "A3", Author: "A"},
		{Identifier: "A4", Author: "A"},
		{Identifier: "B1", Author: "B"},
	}
	q := New()
	q.AddMany(input)
	q.SmartShuffle()
	if !isPermutation(input, q.All()) {
		t.Fatalf("output not a permutation: %v", q.All())
	}
}
