package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/alsoknownaszac/tendly/internal/config"
	"github.com/alsoknownaszac/tendly/internal/events"
	"github.com/alsoknownaszac/tendly/internal/garden"
	"github.com/alsoknownaszac/tendly/internal/model"
	"github.com/alsoknownaszac/tendly/internal/reconcile"
	"github.com/alsoknownaszac/tendly/internal/wallet"
)

// App holds everything the handlers depend on.
type App struct {
	Garden *garden.Service
	Sync   *reconcile.Engine
	Wallet *wallet.Static
	Config config.Config
	Log    zerolog.Logger

	BootNow time.Time
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, garden.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, garden.ErrEmptyTitle),
		errors.Is(err, garden.ErrBadPriority),
		errors.Is(err, garden.ErrBadCategory):
		return http.StatusBadRequest
	case errors.Is(err, garden.ErrTaskArchived):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func RegisterAPIRoutes(mux *http.ServeMux, rr *RouteRegistry, app *App) {
	svc := app.Garden

	Handle(mux, rr, "GET /api/routes", "List API routes", "", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rr.List())
	})

	Handle(mux, rr, "GET /api/tasks", "List tasks (status, category, priority, sortBy, order, limit)", "", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		tasks := svc.ListTasks(r.Context(), garden.ListFilter{
			Status:   q.Get("status"),
			Category: q.Get("category"),
			Priority: q.Get("priority"),
			SortBy:   q.Get("sortBy"),
			SortAsc:  q.Get("order") == "asc",
			Limit:    limit,
		})
		writeJSON(w, http.StatusOK, tasks)
	})

	Handle(mux, rr, "POST /api/tasks", "Create task", `{"title":"Water the ferns","priority":"high","category":"personal"}`, func(w http.ResponseWriter, r *http.Request) {
		var in garden.CreateTask
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		t, err := svc.CreateTask(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	})

	Handle(mux, rr, "GET /api/tasks/{id}", "Get one task", "", func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTask(r.Context(), model.TaskID(r.PathValue("id")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	Handle(mux, rr, "PATCH /api/tasks/{id}", "Update task fields", `{"priority":"low"}`, func(w http.ResponseWriter, r *http.Request) {
		var patch garden.TaskPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		t, err := svc.UpdateTask(r.Context(), model.TaskID(r.PathValue("id")), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	Handle(mux, rr, "DELETE /api/tasks/{id}", "Delete task and its plant", "", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTask(r.Context(), model.TaskID(r.PathValue("id"))); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	})

	Handle(mux, rr, "POST /api/tasks/{id}/complete", "Toggle task completion", `{}`, func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.CompleteTask(r.Context(), model.TaskID(r.PathValue("id")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	Handle(mux, rr, "POST /api/tasks/{id}/archive", "Archive a task", `{}`, func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.ArchiveTask(r.Context(), model.TaskID(r.PathValue("id")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	})

	Handle(mux, rr, "GET /api/garden", "Get garden view (plants, compost, level)", "", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		writeJSON(w, http.StatusOK, map[string]any{
			"plants":  svc.Plants(ctx),
			"compost": svc.Compost(ctx),
			"level":   svc.Snapshot().Level,
		})
	})

	Handle(mux, rr, "GET /api/plants", "List plants", "", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Plants(r.Context()))
	})

	Handle(mux, rr, "GET /api/profile", "Get user profile", "", func(w http.ResponseWriter, r *http.Request) {
		p := svc.Profile(r.Context())
		if p == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "no profile loaded"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	Handle(mux, rr, "POST /api/profile/verify", "Apply verified follower count", `{"followerCount":1500}`, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FollowerCount int `json:"followerCount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		if body.FollowerCount < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "followerCount must not be negative"})
			return
		}
		p, err := svc.ApplyVerification(r.Context(), body.FollowerCount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	Handle(mux, rr, "GET /api/achievements", "List unlocked achievements", "", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Achievements(r.Context()))
	})

	Handle(mux, rr, "GET /api/sessions", "List focus sessions", "", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Sessions(r.Context()))
	})

	Handle(mux, rr, "POST /api/sessions", "Record a focus session", `{"duration":1500,"distractionsCount":1}`, func(w http.ResponseWriter, r *http.Request) {
		var in garden.SessionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		if in.DurationSeconds <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "duration must be positive"})
			return
		}
		session, err := svc.RecordFocusSession(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	})

	Handle(mux, rr, "GET /api/stats", "Garden totals and focus stats", "", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats(r.Context()))
	})

	Handle(mux, rr, "GET /api/stats/activity", "Event activity summary (hours back, default 24)", "", func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if v := r.URL.Query().Get("hours"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": "hours must be a positive integer"})
				return
			}
			hours = n
		}
		since := time.Now().Add(-time.Duration(hours) * time.Hour)
		writeJSON(w, http.StatusOK, events.CalculateStats(svc.Bus().Since(since), since))
	})

	Handle(mux, rr, "GET /api/sync", "Wallet session and outbox records", "", func(w http.ResponseWriter, r *http.Request) {
		var records []reconcile.Record
		if app.Sync != nil {
			records = app.Sync.Records()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"connected": app.Wallet != nil && app.Wallet.IsConnected(),
			"account":   accountID(app.Wallet),
			"records":   records,
		})
	})

	Handle(mux, rr, "POST /api/sync/refresh", "Re-run hydration and replace garden state", `{}`, func(w http.ResponseWriter, r *http.Request) {
		if app.Sync == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "sync engine not configured"})
			return
		}
		st, report, err := app.Sync.Load(r.Context())
		svc.Replace(st)

		resp := map[string]any{"sources": report.Sources}
		if err != nil {
			// Cache corruption is recoverable: state was replaced with a
			// working fallback, but the caller should know.
			resp["warning"] = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	})

	Handle(mux, rr, "POST /api/wallet/connect", "Connect the wallet session", `{}`, func(w http.ResponseWriter, r *http.Request) {
		if app.Wallet == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no wallet configured"})
			return
		}
		app.Wallet.Connect()
		writeJSON(w, http.StatusOK, map[string]any{
			"connected": app.Wallet.IsConnected(),
			"account":   app.Wallet.AccountID(),
		})
	})

	Handle(mux, rr, "POST /api/wallet/disconnect", "Disconnect the wallet session", `{}`, func(w http.ResponseWriter, r *http.Request) {
		if app.Wallet == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no wallet configured"})
			return
		}
		app.Wallet.Disconnect()
		writeJSON(w, http.StatusOK, map[string]any{"connected": false})
	})

	Handle(mux, rr, "GET /api/config", "Effective configuration", "", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(app.Config); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func accountID(w *wallet.Static) string {
	if w == nil {
		return ""
	}
	return w.AccountID()
}
