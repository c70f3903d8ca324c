package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/coach-api/internal/api"
	apiMiddleware "github.com/phrazzld/coach-api/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	plans := api.NewPlanHandler(app.plans, app.logger)
	diag := api.NewDiagnosticsHandler(app.recorder, app.plans, app.workerStats)

	r.Route("/api", func(r chi.Router) {
		if app.tokens != nil {
			r.Use(apiMiddleware.NewAuthMiddleware(app.tokens).Authenticate)
		}

		r.Post("/plans/training", plans.Training)
		r.Post("/plans/nutrition", plans.Nutrition)
		r.Post("/advice/sleep", plans.Sleep)
		r.Post("/chat", plans.Chat)
		r.Post("/bundle", plans.Bundle)
		r.Method(http.MethodGet, "/diagnostics", diag)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
