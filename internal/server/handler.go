package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/alsoknownaszac/tendly/internal/httpmw"
)

// NewHandler assembles the full HTTP surface: health endpoints, the JSON
// API, and the middleware chain.
func NewHandler(app *App) (http.Handler, error) {
	if app == nil || app.Garden == nil {
		return nil, errors.New("garden service is required")
	}
	if app.BootNow.IsZero() {
		app.BootNow = time.Now()
	}

	mux := http.NewServeMux()
	rr := &RouteRegistry{}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "tendly",
			"uptime":  time.Since(app.BootNow).Round(time.Second).String(),
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		// Ready once the garden holds a hydrated state.
		st := app.Garden.Snapshot()
		if st.Profile == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "garden not hydrated",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "tendly",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	RegisterAPIRoutes(mux, rr, app)

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(app.Log),
		httpmw.WithRequestID,
		httpmw.WithRecover(app.Log),
	), nil
}
