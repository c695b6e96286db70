// Package insights builds the read-only view handed to the insights screen
// from a Ready forecast snapshot.
package insights

import (
	"context"
	"errors"
	"log"
	"time"

	"multihorizon/models"
)

// HistoryProvider returns the daily sales history for a store/item pair, oldest first.
type HistoryProvider interface {
	History(ctx context.Context, id models.Identity) ([]float64, error)
}

// HistoryFunc adapts a function to HistoryProvider.
type HistoryFunc func(ctx context.Context, id models.Identity) ([]float64, error)

// History calls f.
func (f HistoryFunc) History(ctx context.Context, id models.Identity) ([]float64, error) {
	return f(ctx, id)
}

// Narrator writes a short plain-language reading of a handoff.
type Narrator interface {
	Narrate(ctx context.Context, h models.InsightsHandoff) (string, error)
}

// Builder assembles handoffs. A nil narrator disables narratives.
type Builder struct {
	history  HistoryProvider
	narrator Narrator
	logger   *log.Logger
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithNarrator attaches a narrator.
func WithNarrator(n Narrator) Option {
	return func(b *Builder) { b.narrator = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder creates a Builder reading history from history.
func NewBuilder(history HistoryProvider, opts ...Option) *Builder {
	b := &Builder{
		history: history,
		logger:  log.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the handoff for snap. Anything other than a Ready snapshot with a
// result is refused with NoDataAvailable.
func (b *Builder) Build(ctx context.Context, snap models.SessionSnapshot) (*models.InsightsHandoff, error) {
	if snap.Status != models.StatusReady || snap.Result == nil {
		return nil, models.NewError(models.KindNoDataAvailable,
			"No forecast available yet. Wait for the forecast to finish loading.")
	}
	if b == nil || b.history == nil {
		return nil, models.NewError(models.KindNoDataAvailable, "No sales history source is configured.")
	}

	history, err := b.history.History(ctx, snap.Identity)
	if err != nil {
		b.logger.Printf("[INSIGHTS] history for %s/%s failed: %v", snap.Identity.StoreName, snap.Identity.ItemName, err)
		var se *models.SessionError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, models.WrapError(models.KindTransport, "Failed to load sales history.", err)
	}

	result := snap.Result.Clone()
	h := &models.InsightsHandoff{
		Result:      *result,
		StoreName:   snap.Identity.StoreName,
		ItemName:    snap.Identity.ItemName,
		History:     append([]float64(nil), history...),
		Suggestions: result.Suggestions,
		GeneratedAt: b.now(),
	}

	if b.narrator != nil {
		text, err := b.narrator.Narrate(ctx, *h)
		if err != nil {
			b.logger.Printf("[INSIGHTS] narrative failed: %v", err)
			h.NarrativeError = err.Error()
		} else {
			h.Narrative = text
		}
	}
	return h, nil
}
