package search

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-museumradar/internal/app/models"
)

func streamOf(chunks []models.StreamChunk, err error) iter.Seq2[models.StreamChunk, error] {
	return func(yield func(models.StreamChunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield(models.StreamChunk{}, err)
		}
	}
}

func searchAmsterdam(t *testing.T, f *fixture) View {
	t.Helper()
	f.ai.On("MuseumsInPlace", mock.Anything, "Amsterdam").Return(amsterdamRaw, nil).Once()
	view, err := f.orch.BeginSearch(context.Background(), ByPlace("Amsterdam"))
	require.NoError(t, err)
	return view
}

func TestGuideKey(t *testing.T) {
	assert.Equal(t, "Amsterdam|52.373|4.892|10", GuideKey("Amsterdam", &amsterdam, 10))
	assert.Equal(t, "Amsterdam|none|none|10", GuideKey("Amsterdam", nil, 10))
}

func TestGuideDebounceStartsOnceWithLastKey(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)
	f.orch.SetRadius(15)
	f.orch.SetRadius(20)

	assert.Equal(t, 3, f.scheduler.Pending())
	for _, d := range f.scheduler.delays {
		assert.Equal(t, DefaultOptions().Debounce, d)
	}

	f.ai.On("ActivitiesGuideStream", mock.Anything, "culture", "Amsterdam", 20).
		Return(streamOf([]models.StreamChunk{{TextDelta: "### Tips", IsFinal: true}}, nil)).Once()
	f.scheduler.FireAll()

	f.ai.AssertNumberOfCalls(t, "ActivitiesGuideStream", 1)
	f.ai.AssertExpectations(t)

	g := f.orch.Guide()
	assert.Equal(t, "Amsterdam|52.360|4.885|20", g.Key)
	assert.Equal(t, "### Tips", g.Snapshot.FullText)
	assert.False(t, g.Loading)
	assert.Contains(t, string(g.HTML), "<h3>Tips</h3>")
}

func TestGuideChangeBackToPendingKeyDoesNotReschedule(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)

	assert.Equal(t, 10, f.orch.SetRadius(10))
	assert.Equal(t, 1, f.scheduler.Pending())
}

func TestGuideSameKeyAfterStartIsNotRestarted(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)
	f.ai.On("ActivitiesGuideStream", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(streamOf(nil, nil))
	f.scheduler.FireAll()

	searchAmsterdam(t, f)
	f.orch.SetRadius(10)

	assert.Equal(t, 0, f.scheduler.Pending())
	f.ai.AssertNumberOfCalls(t, "ActivitiesGuideStream", 1)
}

func TestGuidePublishesGrowingSnapshots(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)
	f.ai.On("ActivitiesGuideStream", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(streamOf([]models.StreamChunk{
			{TextDelta: "- Visit **Vondelpark**\n", Sources: []models.GroundingSource{models.WebSource("https://vondelpark.nl", "Vondelpark")}},
			{TextDelta: "- Coffee at De Jaren", Sources: []models.GroundingSource{models.WebSource("https://vondelpark.nl", "dup")}},
		}, nil)).Once()

	f.scheduler.FireAll()

	var texts []string
	for _, u := range f.guide.updates {
		if u.Snapshot.FullText != "" {
			texts = append(texts, u.Snapshot.FullText)
		}
	}
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, "- Visit **Vondelpark**\n", texts[0])
	assert.True(t, strings.HasSuffix(texts[len(texts)-1], "De Jaren"))

	last := f.guide.last()
	assert.False(t, last.Loading)
	require.Len(t, last.Snapshot.Sources, 1)
	assert.Equal(t, "Vondelpark", last.Snapshot.Sources[0].Title())
}

func TestGuideStreamFailureKeepsPartialText(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)
	f.ai.On("ActivitiesGuideStream", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(streamOf([]models.StreamChunk{{TextDelta: "partial"}}, errors.New("reset"))).Once()

	f.scheduler.FireAll()

	g := f.orch.Guide()
	assert.Equal(t, "partial", g.Snapshot.FullText)
	assert.Equal(t, models.MessageGuideUnavailable, g.Notice)
	assert.False(t, g.Loading)
}

func TestGuideWithoutCredentialShowsKeyNotice(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)
	f.creds.active = false

	f.scheduler.FireAll()

	assert.Equal(t, models.MessageKeyRequired, f.orch.Guide().Notice)
	f.ai.AssertNotCalled(t, "ActivitiesGuideStream", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSupersededGuideStreamIsAbandoned(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)

	pulled := 0
	f.ai.On("ActivitiesGuideStream", mock.Anything, mock.Anything, mock.Anything, 10).
		Return(iter.Seq2[models.StreamChunk, error](func(yield func(models.StreamChunk, error) bool) {
			for _, text := range []string{"old-1 ", "old-2 ", "old-3"} {
				pulled++
				if !yield(models.StreamChunk{TextDelta: text}, nil) {
					return
				}
				if pulled == 1 {
					// the user drags the slider while the stream is running
					f.orch.SetRadius(30)
				}
			}
		})).Once()

	f.scheduler.FireAll()

	assert.Equal(t, 2, pulled)
	g := f.orch.Guide()
	assert.Equal(t, "Amsterdam|52.360|4.885|30", g.Key)
	assert.Empty(t, g.Snapshot.FullText)
	assert.Equal(t, 1, f.scheduler.Pending())
}

func TestGuideUpdatesArePublishedInOrder(t *testing.T) {
	f := newFixture(t)
	searchAmsterdam(t, f)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.orch.onGuide = func(u GuideUpdate) {
		if u.Snapshot.FullText == "stale text" {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		f.guide.record(u)
	}
	f.ai.On("ActivitiesGuideStream", mock.Anything, mock.Anything, mock.Anything, 10).
		Return(streamOf([]models.StreamChunk{{TextDelta: "stale text"}}, nil)).Once()

	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		f.scheduler.FireAll()
	}()
	<-entered

	radiusDone := make(chan int, 1)
	go func() { radiusDone <- f.orch.SetRadius(30) }()
	select {
	case <-radiusDone:
		close(release)
		t.Fatal("radius change published while an older update was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-streamDone
	assert.Equal(t, 30, <-radiusDone)

	current := f.orch.Guide()
	last := f.guide.last()
	assert.Equal(t, "Amsterdam|52.360|4.885|30", current.Key)
	assert.Equal(t, current.Key, last.Key)
	assert.Empty(t, last.Snapshot.FullText)
}

func TestSetRadiusWithoutAreaOnlyStoresRadius(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 50, f.orch.SetRadius(80))
	assert.Equal(t, 50, f.orch.View().Context.RadiusKm)
	assert.Equal(t, 0, f.scheduler.Pending())
}
