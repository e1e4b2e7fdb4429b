package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/market"
	"TickerTracker/internal/model"
	"TickerTracker/internal/pipeline"
)

// CycleRunner triggers a full ingestion cycle on demand.
type CycleRunner interface {
	RunCycleNow(ctx context.Context) (pipeline.BatchReport, error)
}

// API serves the indicator and insight endpoints.
type API struct {
	Engine   *pipeline.Engine
	Registry *market.Registry
	Cycles   CycleRunner
	// IsBusy reports whether err means a cycle is already in flight.
	IsBusy func(err error) bool
}

// Router builds the HTTP routes.
func (api *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/markets", api.HandleMarkets)
		r.Route("/ticker/{segment}/{symbol}", func(r chi.Router) {
			r.Get("/indicators", api.HandleIndicators)
			r.Get("/insights", api.HandleInsights)
			r.Get("/news", api.HandleNews)
		})
		r.Post("/sentiment/backfill", api.HandleBackfill)
		r.Post("/pipeline/run", api.HandleRunCycle)
	})
	return r
}

// NewServer wraps the router in an http.Server with sane timeouts.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidSegment), errors.Is(err, model.ErrInvalidInstrument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorWithErr(r.Context(), "request failed", err, "path", r.URL.Path, "status", code)
	}
	WriteError(w, code, err.Error())
}
