package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/movie-tournament/handlers"
	"github.com/Dosada05/movie-tournament/live"
	"github.com/Dosada05/movie-tournament/middleware"
	"github.com/Dosada05/movie-tournament/models"
	"github.com/Dosada05/movie-tournament/repositories"
	"github.com/Dosada05/movie-tournament/services"
)

const secret = "routes-secret"

type countingTrigger struct{ calls atomic.Int32 }

func (c *countingTrigger) TriggerNow(context.Context) error {
	c.calls.Add(1)
	return nil
}

type api struct {
	server    *httptest.Server
	lifecycle services.LifecycleService
	trigger   *countingTrigger
}

func newAPI(t *testing.T, voteRateLimit int) *api {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repositories.NewMemoryStore()
	lifecycle := services.NewLifecycleService(store, logger)
	votes := services.NewVoteService(store, store, nil, logger)
	query := services.NewQueryService(store)
	trigger := &countingTrigger{}

	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Match:     handlers.NewMatchHandler(query, votes),
		Vote:      handlers.NewVoteHandler(votes),
		Admin:     handlers.NewAdminHandler(trigger),
		WebSocket: handlers.NewWebSocketHandler(live.NewHub(logger), query, []string{"*"}),
	}, Options{
		Auth:               middleware.NewAuthenticator(secret, logger),
		Logger:             logger,
		CORSAllowedOrigins: []string{"*"},
		VoteRateLimit:      voteRateLimit,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &api{server: srv, lifecycle: lifecycle, trigger: trigger}
}

func (a *api) open(t *testing.T, movieIDs ...int64) *models.Match {
	t.Helper()
	m, err := a.lifecycle.OpenNewMatch(context.Background(), movieIDs, time.Now())
	require.NoError(t, err)
	return m
}

func token(t *testing.T, memberID int64, role string) string {
	t.Helper()
	tok, err := middleware.NewToken(secret, memberID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *api) do(t *testing.T, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func vote(movieID int64) map[string]int64 {
	return map[string]int64{"movie_id": movieID}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t, 30)

	status, _ := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestVotingFlow(t *testing.T) {
	a := newAPI(t, 30)
	ctx := context.Background()

	status, body := a.do(t, http.MethodGet, "/api/v1/matches/current", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no_open_match", body["code"])

	status, body = a.do(t, http.MethodPost, "/api/v1/matches/current/votes", token(t, 1, middleware.RoleMember), vote(10))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "match_not_open", body["code"])

	m := a.open(t, 10, 20)

	status, _ = a.do(t, http.MethodPost, "/api/v1/matches/current/votes", "", vote(10))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.do(t, http.MethodPost, "/api/v1/matches/current/votes", token(t, 1, middleware.RoleMember), vote(10))
	require.Equal(t, http.StatusCreated, status, body)
	assert.EqualValues(t, 1, body["tally"])

	path := "/api/v1/matches/" + itoa(m.ID)
	status, body = a.do(t, http.MethodPost, path+"/votes", token(t, 1, middleware.RoleMember), vote(20))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_voted", body["code"])

	status, body = a.do(t, http.MethodPost, path+"/votes", token(t, 2, middleware.RoleMember), vote(99))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "not_a_contender", body["code"])

	status, _ = a.do(t, http.MethodPost, "/api/v1/matches/abc/votes", token(t, 2, middleware.RoleMember), vote(10))
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(t, http.MethodPost, "/api/v1/matches/999/votes", token(t, 2, middleware.RoleMember), vote(10))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])

	status, body = a.do(t, http.MethodGet, path+"/votes/me", token(t, 1, middleware.RoleMember), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 10, body["movie_id"])

	status, _ = a.do(t, http.MethodGet, "/api/v1/matches/current/votes/me", token(t, 2, middleware.RoleMember), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = a.do(t, http.MethodGet, path+"/tally", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"10": float64(1), "20": float64(0)}, body["tally"])

	status, body = a.do(t, http.MethodGet, "/api/v1/matches/current/tally", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, m.ID, body["match_id"])
	assert.Equal(t, map[string]any{"10": float64(1), "20": float64(0)}, body["tally"])

	status, body = a.do(t, http.MethodGet, "/api/v1/matches/current/contenders", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["contenders"], 2)

	_, err := a.lifecycle.SettleMatch(ctx, m.ID)
	require.NoError(t, err)

	status, body = a.do(t, http.MethodPost, path+"/votes", token(t, 3, middleware.RoleMember), vote(10))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "match_not_open", body["code"])

	status, body = a.do(t, http.MethodGet, "/api/v1/matches/history", "", nil)
	require.Equal(t, http.StatusOK, status)
	history, ok := body["history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.EqualValues(t, 10, history[0].(map[string]any)["winner_movie_id"])

	status, body = a.do(t, http.MethodGet, "/api/v1/matches/current/tally", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no_open_match", body["code"])

	status, _ = a.do(t, http.MethodGet, "/api/v1/matches/history?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCurrentMatchIncludesPreviousRound(t *testing.T) {
	a := newAPI(t, 30)
	first := a.open(t, 1, 2)
	_, err := a.lifecycle.SettleMatch(context.Background(), first.ID)
	require.NoError(t, err)
	a.open(t, 3, 4)

	status, body := a.do(t, http.MethodGet, "/api/v1/matches/current", "", nil)
	require.Equal(t, http.StatusOK, status)
	prev, ok := body["previous_match"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, prev["undecided"])
	assert.EqualValues(t, 1, prev["round_number"])
}

func TestAdminCycleRequiresAdmin(t *testing.T) {
	a := newAPI(t, 30)

	status, _ := a.do(t, http.MethodPost, "/api/v1/admin/cycle", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := a.do(t, http.MethodPost, "/api/v1/admin/cycle", token(t, 5, middleware.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", body["code"])
	assert.Equal(t, int32(0), a.trigger.calls.Load())

	status, body = a.do(t, http.MethodPost, "/api/v1/admin/cycle", token(t, 6, middleware.RoleAdmin), nil)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "cycle queued", body["status"])
	assert.Equal(t, int32(1), a.trigger.calls.Load())
}

func TestVoteRateLimitPerMember(t *testing.T) {
	a := newAPI(t, 2)
	a.open(t, 1, 2)
	tok := token(t, 1, middleware.RoleMember)

	status, _ := a.do(t, http.MethodPost, "/api/v1/matches/current/votes", tok, vote(1))
	assert.Equal(t, http.StatusCreated, status)
	status, _ = a.do(t, http.MethodPost, "/api/v1/matches/current/votes", tok, vote(1))
	assert.Equal(t, http.StatusConflict, status)
	status, _ = a.do(t, http.MethodPost, "/api/v1/matches/current/votes", tok, vote(1))
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, _ = a.do(t, http.MethodPost, "/api/v1/matches/current/votes", token(t, 2, middleware.RoleMember), vote(2))
	assert.Equal(t, http.StatusCreated, status, "limit is per member")
}

func TestWebSocketSendsSnapshot(t *testing.T) {
	a := newAPI(t, 30)
	m := a.open(t, 7, 8)

	url := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws/matches/current"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string                   `json:"type"`
		Payload services.CurrentMatchView `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, live.MessageSnapshot, msg.Type)
	assert.Equal(t, m.ID, msg.Payload.Match.ID)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
