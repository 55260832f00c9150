package guide

import (
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

func chunks(items []models.StreamChunk, err error) iter.Seq2[models.StreamChunk, error] {
	return func(yield func(models.StreamChunk, error) bool) {
		for _, c := range items {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield(models.StreamChunk{}, err)
		}
	}
}

func TestCollectConcatenatesText(t *testing.T) {
	stream := chunks([]models.StreamChunk{
		{TextDelta: "Museums "},
		{TextDelta: "are "},
		{TextDelta: "great.", IsFinal: true},
	}, nil)

	var published []string
	final, err := Collect(stream, func(s Snapshot) { published = append(published, s.FullText) })
	require.NoError(t, err)
	assert.Equal(t, "Museums are great.", final.FullText)
	assert.Empty(t, final.Sources)
	assert.Equal(t, []string{"Museums ", "Museums are ", "Museums are great."}, published)
}

func TestAggregatorDeduplicatesSources(t *testing.T) {
	tests := []struct {
		name      string
		chunks    []models.StreamChunk
		wantKeys  []string
		wantTitle string
	}{
		{
			name: "identical uri keeps first title",
			chunks: []models.StreamChunk{
				{Sources: []models.GroundingSource{models.WebSource("https://rijksmuseum.nl", "First")}},
				{Sources: []models.GroundingSource{models.WebSource("https://rijksmuseum.nl", "Second")}},
			},
			wantKeys:  []string{"https://rijksmuseum.nl"},
			wantTitle: "First",
		},
		{
			name: "maps and web with same uri are one source",
			chunks: []models.StreamChunk{
				{Sources: []models.GroundingSource{
					models.MapsSource("https://maps.google.com/?cid=1", "Map"),
					models.WebSource("https://maps.google.com/?cid=1", "Web"),
				}},
			},
			wantKeys:  []string{"https://maps.google.com/?cid=1"},
			wantTitle: "Map",
		},
		{
			name: "insertion order is kept",
			chunks: []models.StreamChunk{
				{Sources: []models.GroundingSource{models.WebSource("https://b.nl", "B")}},
				{Sources: []models.GroundingSource{models.WebSource("https://a.nl", "A"), models.WebSource("https://b.nl", "B2")}},
			},
			wantKeys:  []string{"https://b.nl", "https://a.nl"},
			wantTitle: "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			var snap Snapshot
			for _, c := range tt.chunks {
				snap = agg.Add(c)
			}
			keys := make([]string, 0, len(snap.Sources))
			for _, s := range snap.Sources {
				keys = append(keys, s.Key())
			}
			assert.Equal(t, tt.wantKeys, keys)
			assert.Equal(t, tt.wantTitle, snap.Sources[0].Title())
		})
	}
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	agg := NewAggregator()
	first := agg.Add(models.StreamChunk{TextDelta: "a", Sources: []models.GroundingSource{models.WebSource("https://a.nl", "A")}})
	agg.Add(models.StreamChunk{TextDelta: "b", Sources: []models.GroundingSource{models.WebSource("https://b.nl", "B")}})

	assert.Equal(t, "a", first.FullText)
	assert.Len(t, first.Sources, 1)
}

func TestAggregateKeepsPartialContentOnFailure(t *testing.T) {
	cause := errors.New("connection reset")
	stream := chunks([]models.StreamChunk{
		{TextDelta: "### Tips\n", Sources: []models.GroundingSource{models.WebSource("https://a.nl", "A")}},
		{TextDelta: "- Visit "},
	}, cause)

	var events []Event
	for ev := range Aggregate(stream) {
		events = append(events, ev)
	}

	require.Len(t, events, 3)
	last := events[2]
	assert.ErrorIs(t, last.Err, models.ErrStreamFailure)
	assert.ErrorIs(t, last.Err, cause)
	assert.Equal(t, "### Tips\n- Visit ", last.Snapshot.FullText)
	assert.Len(t, last.Snapshot.Sources, 1)

	final, err := Collect(chunks(nil, cause), nil)
	assert.ErrorIs(t, err, models.ErrStreamFailure)
	assert.Empty(t, final.FullText)
}

func TestAggregateStopsPullingWhenConsumerStops(t *testing.T) {
	pulled := 0
	stream := func(yield func(models.StreamChunk, error) bool) {
		for i := 0; i < 5; i++ {
			pulled++
			if !yield(models.StreamChunk{TextDelta: "x"}, nil) {
				return
			}
		}
	}

	for range Aggregate(stream) {
		break
	}
	assert.Equal(t, 1, pulled)
}

func TestSourcesWithoutURIAreIgnored(t *testing.T) {
	agg := NewAggregator()
	snap := agg.Add(models.StreamChunk{Sources: []models.GroundingSource{{}}})
	assert.Empty(t, snap.Sources)
}
