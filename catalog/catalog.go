// Package catalog supplies contender movies for new matches. The selection
// policy lives outside the tournament engine; this package only adapts it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Dosada05/movie-tournament/config"
	"github.com/Dosada05/movie-tournament/metrics"
)

var (
	ErrNotEnoughMovies = errors.New("catalog has not enough eligible movies")
	ErrNoPicker        = errors.New("no movie catalog configured")
)

// Picker returns n distinct movie IDs eligible for the next match.
type Picker interface {
	PickContenders(ctx context.Context, n int) ([]int64, error)
}

// StaticPicker rotates through a fixed pool so consecutive picks differ.
type StaticPicker struct {
	pool []int64
	next atomic.Uint64
}

func NewStaticPicker(pool []int64) *StaticPicker {
	return &StaticPicker{pool: distinctPositive(pool)}
}

func (p *StaticPicker) PickContenders(_ context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid contender count %d", n)
	}
	if len(p.pool) < n {
		return nil, fmt.Errorf("%w: need %d, pool has %d", ErrNotEnoughMovies, n, len(p.pool))
	}
	start := int((p.next.Add(1) - 1) * uint64(n) % uint64(len(p.pool)))
	picked := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		picked = append(picked, p.pool[(start+i)%len(p.pool)])
	}
	return picked, nil
}

// FallbackPicker asks Primary first and falls back on any error.
type FallbackPicker struct {
	Primary  Picker
	Fallback Picker
	Logger   *slog.Logger
}

func (p *FallbackPicker) PickContenders(ctx context.Context, n int) ([]int64, error) {
	if p.Primary == nil && p.Fallback == nil {
		return nil, ErrNoPicker
	}
	if p.Primary != nil {
		ids, err := p.Primary.PickContenders(ctx, n)
		metrics.RecordCatalogRequest("primary", err)
		if err == nil {
			return ids, nil
		}
		if p.Fallback == nil {
			return nil, err
		}
		if p.Logger != nil {
			p.Logger.WarnContext(ctx, "movie catalog unavailable, using fallback pool", slog.Any("error", err))
		}
	}
	ids, err := p.Fallback.PickContenders(ctx, n)
	metrics.RecordCatalogRequest("fallback", err)
	return ids, err
}

// NewFromConfig builds the HTTP catalog with the static pool as fallback.
// Either half may be absent, not both.
func NewFromConfig(cfg config.CatalogConfig, logger *slog.Logger) (Picker, error) {
	var primary, fallback Picker
	if cfg.URL != "" {
		p, err := NewHTTPPicker(HTTPPickerConfig{BaseURL: cfg.URL, Timeout: cfg.Timeout}, logger)
		if err != nil {
			return nil, err
		}
		primary = p
	}
	if len(cfg.FallbackMovies) > 0 {
		fallback = NewStaticPicker(cfg.FallbackMovies)
	}
	if primary == nil && fallback == nil {
		return nil, ErrNoPicker
	}
	return &FallbackPicker{Primary: primary, Fallback: fallback, Logger: logger}, nil
}
