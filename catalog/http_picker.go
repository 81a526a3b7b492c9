package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

type HTTPPickerConfig struct {
	BaseURL          string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// HTTPPicker calls GET {BaseURL}/movies/random?count=n behind a circuit breaker.
type HTTPPicker struct {
	client  *http.Client
	baseURL *url.URL
	breaker *gobreaker.CircuitBreaker[[]int64]
	logger  *slog.Logger
}

type randomMoviesResponse struct {
	MovieIDs []int64 `json:"movie_ids"`
}

func NewHTTPPicker(cfg HTTPPickerConfig, logger *slog.Logger) (*HTTPPicker, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	p := &HTTPPicker{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: base,
		logger:  logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[[]int64](gobreaker.Settings{
		Name:        "movie-catalog",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return p, nil
}

func (p *HTTPPicker) PickContenders(ctx context.Context, n int) ([]int64, error) {
	return p.breaker.Execute(func() ([]int64, error) {
		return p.fetch(ctx, n)
	})
}

// State reports the breaker state, e.g. "closed" or "open".
func (p *HTTPPicker) State() string {
	return p.breaker.State().String()
}

func (p *HTTPPicker) fetch(ctx context.Context, n int) ([]int64, error) {
	endpoint := p.baseURL.JoinPath("movies", "random")
	q := endpoint.Query()
	q.Set("count", strconv.Itoa(n))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var body randomMoviesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	ids := distinctPositive(body.MovieIDs)
	if len(ids) < n {
		return nil, fmt.Errorf("%w: catalog returned %d distinct of %d", ErrNotEnoughMovies, len(ids), n)
	}
	return ids[:n], nil
}

// distinctPositive keeps the first occurrence of each positive ID, in order.
func distinctPositive(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
