// Package regressors holds the per-day exogenous signals (holiday, promotion)
// and the selected forecast horizon for one forecast session.
package regressors

import (
	"fmt"
	"sync"

	"multihorizon/models"
	"multihorizon/utils"
)

// Vector selects one of the two regressor vectors.
type Vector int

const (
	Holiday Vector = iota
	Promotion
)

func (v Vector) String() string {
	switch v {
	case Holiday:
		return "holiday"
	case Promotion:
		return "promotion"
	default:
		return fmt.Sprintf("vector(%d)", int(v))
	}
}

// ParseVector maps the names used by the host API onto a Vector.
func ParseVector(name string) (Vector, bool) {
	switch name {
	case "holiday", "is_holiday":
		return Holiday, true
	case "promotion", "onpromotion":
		return Promotion, true
	}
	return 0, false
}

// DefaultCapacity covers the longest horizon plus the model's lookback window.
const DefaultCapacity = 37

// DefaultHorizon is the horizon a new session starts with.
const DefaultHorizon = 7

// Snapshot is an immutable copy of the store contents.
type Snapshot struct {
	Horizon     int    `json:"horizon"`
	IsHoliday   []bool `json:"is_holiday"`
	OnPromotion []bool `json:"onpromotion"`
}

// Store owns the regressor vectors and the horizon. It is safe for concurrent use;
// the mutation hook runs on the mutating goroutine after the lock is released.
type Store struct {
	mu         sync.Mutex
	horizons   map[int]bool
	horizon    int
	holiday    []bool
	promotion  []bool
	onMutation func()
}

// Option configures a Store.
type Option func(*Store)

// WithHorizons replaces the supported horizon set.
func WithHorizons(days ...int) Option {
	return func(s *Store) {
		s.horizons = utils.HorizonSet(days)
	}
}

// WithInitialHorizon sets the starting horizon.
func WithInitialHorizon(days int) Option {
	return func(s *Store) {
		s.horizon = days
	}
}

// NewStore creates a store with zeroed vectors of the given capacity.
func NewStore(capacity int, opts ...Option) (*Store, error) {
	s := &Store{
		horizons: utils.HorizonSet(utils.DefaultHorizons),
		horizon:  DefaultHorizon,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.horizons) == 0 {
		return nil, models.NewError(models.KindInvalidHorizon, "no supported horizons configured")
	}
	if !s.horizons[s.horizon] {
		return nil, models.NewError(models.KindInvalidHorizon,
			fmt.Sprintf("initial horizon %d is not one of %v", s.horizon, utils.SortedHorizons(s.horizons)))
	}
	if max := utils.MaxHorizon(s.horizons); capacity < max {
		return nil, models.NewError(models.KindIndexOutOfRange,
			fmt.Sprintf("capacity %d is shorter than the longest horizon %d", capacity, max))
	}
	s.holiday = make([]bool, capacity)
	s.promotion = make([]bool, capacity)
	return s, nil
}

// SetOnMutation installs the hook called after every state change.
func (s *Store) SetOnMutation(fn func()) {
	s.mu.Lock()
	s.onMutation = fn
	s.mu.Unlock()
}

// Capacity returns the fixed vector length.
func (s *Store) Capacity() int {
	return len(s.holiday)
}

// Horizons returns the supported horizons in ascending order.
func (s *Store) Horizons() []int {
	return utils.SortedHorizons(s.horizons)
}

// Horizon returns the selected horizon.
func (s *Store) Horizon() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.horizon
}

// SetHorizon selects a new horizon. Vector contents are left untouched.
func (s *Store) SetHorizon(days int) (int, error) {
	s.mu.Lock()
	if !s.horizons[days] {
		current := s.horizon
		s.mu.Unlock()
		return current, models.NewError(models.KindInvalidHorizon,
			fmt.Sprintf("horizon %d is not one of %v", days, utils.SortedHorizons(s.horizons)))
	}
	changed := s.horizon != days
	s.horizon = days
	hook := s.onMutation
	s.mu.Unlock()

	if changed && hook != nil {
		hook()
	}
	return days, nil
}

// Toggle flips one day of a vector and returns a copy of the updated vector.
func (s *Store) Toggle(v Vector, dayIndex int) ([]bool, error) {
	s.mu.Lock()
	vec, err := s.vector(v, dayIndex)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	vec[dayIndex] = !vec[dayIndex]
	out := utils.CloneBools(vec)
	hook := s.onMutation
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

// Set assigns one day of a vector. The hook only fires when the value changes.
func (s *Store) Set(v Vector, dayIndex int, value bool) ([]bool, error) {
	s.mu.Lock()
	vec, err := s.vector(v, dayIndex)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	changed := vec[dayIndex] != value
	vec[dayIndex] = value
	out := utils.CloneBools(vec)
	hook := s.onMutation
	s.mu.Unlock()

	if changed && hook != nil {
		hook()
	}
	return out, nil
}

// Snapshot returns a deep copy of the horizon and both vectors.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Horizon:     s.horizon,
		IsHoliday:   utils.CloneBools(s.holiday),
		OnPromotion: utils.CloneBools(s.promotion),
	}
}

// vector must be called with mu held.
func (s *Store) vector(v Vector, dayIndex int) ([]bool, error) {
	var vec []bool
	switch v {
	case Holiday:
		vec = s.holiday
	case Promotion:
		vec = s.promotion
	default:
		return nil, models.NewError(models.KindIndexOutOfRange, fmt.Sprintf("unknown regressor %s", v))
	}
	if dayIndex < 0 || dayIndex >= len(vec) {
		return nil, models.NewError(models.KindIndexOutOfRange,
			fmt.Sprintf("day index %d outside [0, %d) for %s", dayIndex, len(vec), v))
	}
	return vec, nil
}
