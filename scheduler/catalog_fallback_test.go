package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/catalog"
	"github.com/Dosada05/movie-tournament/repositories"
	"github.com/Dosada05/movie-tournament/services"
)

func TestCycle_RepeatedCatalogIDsStillOpenRound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]int64{"movie_ids": {5, 5}})
	}))
	t.Cleanup(srv.Close)

	primary, err := catalog.NewHTTPPicker(catalog.HTTPPickerConfig{BaseURL: srv.URL}, discardLogger())
	require.NoError(t, err)
	picker := &catalog.FallbackPicker{
		Primary:  primary,
		Fallback: catalog.NewStaticPicker([]int64{1, 2, 3}),
		Logger:   discardLogger(),
	}

	store := repositories.NewMemoryStore()
	cycle := NewCycle(
		services.NewLifecycleService(store, discardLogger()),
		picker,
		&recordingPublisher{},
		&recordingArchiver{},
		discardLogger(),
		CycleConfig{StepTimeout: time.Second, ContendersPerMatch: 2},
	)

	report := cycle.Run(context.Background(), TriggerSchedule)

	require.NoError(t, report.OpenErr)
	require.NotNil(t, report.Opened)
	assert.Equal(t, 1, report.Opened.RoundNumber)
	assert.ElementsMatch(t, []int64{1, 2}, []int64{report.Opened.Contenders[0].MovieID, report.Opened.Contenders[1].MovieID})
}
