package routes

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/movie-tournament/docs"
	"github.com/Dosada05/movie-tournament/handlers"
	"github.com/Dosada05/movie-tournament/middleware"
)

type Handlers struct {
	Match     *handlers.MatchHandler
	Vote      *handlers.VoteHandler
	Admin     *handlers.AdminHandler
	WebSocket *handlers.WebSocketHandler
}

type Options struct {
	Auth               *middleware.Authenticator
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	// VoteRateLimit is requests per member per minute on the vote endpoint.
	VoteRateLimit int
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	router.Get("/ws/matches/current", h.WebSocket.ServeCurrentMatch)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/matches", func(r chi.Router) {
			r.Get("/current", h.Match.GetCurrentMatch)
			r.Get("/current/contenders", h.Match.GetCurrentContenders)
			r.Get("/history", h.Match.GetWinnerHistory)
			r.Get("/{matchID}/tally", h.Match.GetMatchTally)

			r.Group(func(r chi.Router) {
				r.Use(opts.Auth.Authenticate)
				r.Get("/{matchID}/votes/me", h.Vote.GetMyVote)
				r.With(httprate.Limit(
					opts.VoteRateLimit,
					time.Minute,
					httprate.WithKeyFuncs(memberKey),
				)).Post("/{matchID}/votes", h.Vote.CastVote)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(opts.Auth.Authenticate)
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/cycle", h.Admin.TriggerCycle)
		})
	})
}

// memberKey rate-limits per authenticated member, per IP otherwise.
func memberKey(r *http.Request) (string, error) {
	if m, ok := middleware.MemberFromContext(r.Context()); ok {
		return "member:" + strconv.FormatInt(m.ID, 10), nil
	}
	return httprate.KeyByIP(r)
}
