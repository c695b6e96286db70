package insights

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"multihorizon/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNarrator struct {
	text string
	err  error
	seen models.InsightsHandoff
}

func (s *stubNarrator) Narrate(_ context.Context, h models.InsightsHandoff) (string, error) {
	s.seen = h
	return s.text, s.err
}

func readySnapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		Status:   models.StatusReady,
		Horizon:  3,
		Identity: models.Identity{StoreName: "Downtown", ItemName: "Milk"},
		Result: &models.ForecastResult{
			P10:         []float64{1, 2, 3},
			P50:         []float64{2, 3, 4},
			P90:         []float64{3, 4, 5},
			Suggestions: []models.Suggestion{{Message: "Order more"}},
		},
	}
}

func fixedHistory(values ...float64) HistoryFunc {
	return func(_ context.Context, _ models.Identity) ([]float64, error) {
		return values, nil
	}
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestBuildRefusesWithoutReady(t *testing.T) {
	b := NewBuilder(fixedHistory(1, 2), WithLogger(quietLogger()))
	for _, status := range []models.Status{models.StatusIdle, models.StatusLoading, models.StatusError} {
		snap := readySnapshot()
		snap.Status = status
		h, err := b.Build(context.Background(), snap)
		assert.Nil(t, h)
		assert.ErrorIs(t, err, models.ErrNoDataAvailable, "status %s", status)
	}
}

func TestBuildRequiresHistorySource(t *testing.T) {
	_, err := NewBuilder(nil).Build(context.Background(), readySnapshot())
	assert.ErrorIs(t, err, models.ErrNoDataAvailable)

	var b *Builder
	_, err = b.Build(context.Background(), readySnapshot())
	assert.ErrorIs(t, err, models.ErrNoDataAvailable)
}

func TestBuildCopiesReadySnapshot(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var asked models.Identity
	history := HistoryFunc(func(_ context.Context, id models.Identity) ([]float64, error) {
		asked = id
		return []float64{5, 6, 7}, nil
	})
	b := NewBuilder(history, WithClock(func() time.Time { return now }))

	snap := readySnapshot()
	h, err := b.Build(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, snap.Identity, asked)
	assert.Equal(t, "Downtown", h.StoreName)
	assert.Equal(t, "Milk", h.ItemName)
	assert.Equal(t, []float64{5, 6, 7}, h.History)
	assert.Equal(t, snap.Result.P50, h.Result.P50)
	assert.Equal(t, "Order more", h.Suggestions[0].Message)
	assert.Equal(t, now, h.GeneratedAt)
	assert.Empty(t, h.Narrative)

	h.Result.P50[0] = 99
	assert.Equal(t, 2.0, snap.Result.P50[0])
}

func TestBuildHistoryFailure(t *testing.T) {
	boom := errors.New("connection refused")
	b := NewBuilder(HistoryFunc(func(context.Context, models.Identity) ([]float64, error) {
		return nil, boom
	}), WithLogger(quietLogger()))

	_, err := b.Build(context.Background(), readySnapshot())
	assert.ErrorIs(t, err, models.ErrTransport)
	assert.ErrorIs(t, err, boom)
}

func TestBuildNarrative(t *testing.T) {
	n := &stubNarrator{text: "Demand rises through the week."}
	b := NewBuilder(fixedHistory(1), WithNarrator(n))

	h, err := b.Build(context.Background(), readySnapshot())
	require.NoError(t, err)
	assert.Equal(t, "Demand rises through the week.", h.Narrative)
	assert.Equal(t, "Downtown", n.seen.StoreName)
}

func TestBuildNarrativeFailureIsNotFatal(t *testing.T) {
	n := &stubNarrator{err: errors.New("quota exceeded")}
	b := NewBuilder(fixedHistory(1), WithNarrator(n), WithLogger(quietLogger()))

	h, err := b.Build(context.Background(), readySnapshot())
	require.NoError(t, err)
	assert.Empty(t, h.Narrative)
	assert.Equal(t, "quota exceeded", h.NarrativeError)
}
