package regressors

import (
	"errors"
	"sync"
	"testing"

	"multihorizon/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(DefaultCapacity)
	require.NoError(t, err)
	return s
}

func TestNewStoreDefaults(t *testing.T) {
	s := newTestStore(t)
	snap := s.Snapshot()

	assert.Equal(t, 7, snap.Horizon)
	assert.Len(t, snap.IsHoliday, DefaultCapacity)
	assert.Len(t, snap.OnPromotion, DefaultCapacity)
	assert.NotContains(t, snap.IsHoliday, true)
	assert.NotContains(t, snap.OnPromotion, true)
	assert.Equal(t, []int{7, 14, 30}, s.Horizons())
}

func TestNewStoreRejectsShortCapacity(t *testing.T) {
	_, err := NewStore(20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrIndexOutOfRange))
}

func TestNewStoreRejectsUnsupportedInitialHorizon(t *testing.T) {
	_, err := NewStore(DefaultCapacity, WithInitialHorizon(10))
	assert.True(t, errors.Is(err, models.ErrInvalidHorizon))
}

func TestToggleTwiceRestoresValue(t *testing.T) {
	for _, v := range []Vector{Holiday, Promotion} {
		s := newTestStore(t)
		before := s.Snapshot()

		flipped, err := s.Toggle(v, 4)
		require.NoError(t, err)
		assert.True(t, flipped[4])

		restored, err := s.Toggle(v, 4)
		require.NoError(t, err)
		assert.False(t, restored[4])
		assert.Equal(t, before, s.Snapshot(), "vector %s", v)
	}
}

func TestToggleOutOfRange(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.SetOnMutation(func() { calls++ })

	for _, idx := range []int{-1, DefaultCapacity, DefaultCapacity + 5} {
		_, err := s.Toggle(Holiday, idx)
		require.Error(t, err)
		assert.Equal(t, models.KindIndexOutOfRange, models.KindOf(err))
	}
	assert.Zero(t, calls)
	assert.NotContains(t, s.Snapshot().IsHoliday, true)
}

func TestIndicesBeyondHorizonAreSettable(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Toggle(Promotion, 20)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Horizon())
	assert.True(t, s.Snapshot().OnPromotion[20])
}

func TestSetHorizonKeepsVectors(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SetHorizon(14)
	require.NoError(t, err)
	_, err = s.Toggle(Holiday, 5)
	require.NoError(t, err)
	_, err = s.SetHorizon(7)
	require.NoError(t, err)
	got, err := s.SetHorizon(14)
	require.NoError(t, err)

	assert.Equal(t, 14, got)
	assert.True(t, s.Snapshot().IsHoliday[5])
}

func TestSetHorizonInvalid(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.SetOnMutation(func() { calls++ })

	got, err := s.SetHorizon(9)
	assert.Equal(t, models.KindInvalidHorizon, models.KindOf(err))
	assert.Equal(t, 7, got)
	assert.Equal(t, 7, s.Horizon())
	assert.Zero(t, calls)
}

func TestMutationHook(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.SetOnMutation(func() { calls++ })

	_, _ = s.SetHorizon(7) // unchanged
	assert.Equal(t, 0, calls)
	_, _ = s.SetHorizon(30)
	assert.Equal(t, 1, calls)
	_, _ = s.Toggle(Holiday, 0)
	assert.Equal(t, 2, calls)
	_, _ = s.Set(Holiday, 0, true) // unchanged
	assert.Equal(t, 2, calls)
	_, _ = s.Set(Promotion, 3, true)
	assert.Equal(t, 3, calls)
}

func TestHookMayReadStore(t *testing.T) {
	s := newTestStore(t)
	var seen Snapshot
	s.SetOnMutation(func() { seen = s.Snapshot() })

	_, err := s.Toggle(Promotion, 2)
	require.NoError(t, err)
	assert.True(t, seen.OnPromotion[2])
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore(t)
	snap := s.Snapshot()
	snap.IsHoliday[0] = true
	snap.OnPromotion[1] = true

	fresh := s.Snapshot()
	assert.False(t, fresh.IsHoliday[0])
	assert.False(t, fresh.OnPromotion[1])
}

func TestConcurrentTogglesAreNotLost(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < DefaultCapacity; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Toggle(Holiday, i)
		}(i)
	}
	wg.Wait()
	assert.NotContains(t, s.Snapshot().IsHoliday, false)
}

func TestParseVector(t *testing.T) {
	v, ok := ParseVector("onpromotion")
	assert.True(t, ok)
	assert.Equal(t, Promotion, v)
	v, ok = ParseVector("holiday")
	assert.True(t, ok)
	assert.Equal(t, Holiday, v)
	_, ok = ParseVector("weather")
	assert.False(t, ok)
}
