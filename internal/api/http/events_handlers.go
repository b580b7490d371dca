package http

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// GET /me
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"sub":  owner(r),
			"role": rbac.RoleFromContext(r.Context()),
		})
	}
}

// GET /events?after=N&limit=M
func ListEventsHandler(l *events.Log, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if s := r.URL.Query().Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "after must be a non-negative integer"})
				return
			}
			after = v
		}
		limit := parseIntDefault(r.URL.Query().Get("limit"), events.DefaultListLimit)

		list, err := l.List(r.Context(), owner(r), after, limit)
		if err != nil {
			writeError(w, log, err)
			return
		}
		next := after
		if n := len(list); n > 0 {
			next = list[n-1].Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": list, "next": next})
	}
}
