package guide

import (
	"fmt"
	"iter"
	"strings"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

// Snapshot is the accumulated state of one stream at some point in time. Each
// snapshot supersedes the previous one; it is never a delta.
type Snapshot struct {
	FullText string                   `json:"full_text"`
	Sources  []models.GroundingSource `json:"sources"`
}

// Event is one step of an aggregated stream. Err is set only on the last
// event of a failed stream, whose Snapshot then holds the partial content.
type Event struct {
	Snapshot Snapshot
	Err      error
}

// Aggregator merges stream chunks: text is appended in order, sources are
// deduplicated by their preferred URI with the first occurrence kept.
type Aggregator struct {
	text    strings.Builder
	sources []models.GroundingSource
	seen    map[string]struct{}
}

func NewAggregator() *Aggregator {
	return &Aggregator{seen: make(map[string]struct{})}
}

// Add merges one chunk and returns the resulting snapshot.
func (a *Aggregator) Add(chunk models.StreamChunk) Snapshot {
	a.text.WriteString(chunk.TextDelta)
	for _, src := range chunk.Sources {
		key := src.Key()
		if key == "" {
			continue
		}
		if _, dup := a.seen[key]; dup {
			continue
		}
		a.seen[key] = struct{}{}
		a.sources = append(a.sources, src)
	}
	return a.Snapshot()
}

// Snapshot copies the accumulators, so callers may keep it after more chunks
// arrive.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		FullText: a.text.String(),
		Sources:  append(make([]models.GroundingSource, 0, len(a.sources)), a.sources...),
	}
}

// Aggregate lazily consumes stream, yielding a snapshot after every chunk.
// A stream error ends the sequence with an event carrying the partial snapshot
// and an error wrapping ErrStreamFailure. The sequence is single-use.
func Aggregate(stream iter.Seq2[models.StreamChunk, error]) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		agg := NewAggregator()
		for chunk, err := range stream {
			if err != nil {
				yield(Event{
					Snapshot: agg.Snapshot(),
					Err:      fmt.Errorf("%w: %w", models.ErrStreamFailure, err),
				})
				return
			}
			if !yield(Event{Snapshot: agg.Add(chunk)}) {
				return
			}
		}
	}
}

// Collect drains stream, passing every snapshot to publish when it is not nil,
// and returns the final snapshot.
func Collect(stream iter.Seq2[models.StreamChunk, error], publish func(Snapshot)) (Snapshot, error) {
	var last Snapshot
	for ev := range Aggregate(stream) {
		last = ev.Snapshot
		if ev.Err != nil {
			return last, ev.Err
		}
		if publish != nil {
			publish(last)
		}
	}
	return last, nil
}
