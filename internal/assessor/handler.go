package assessor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler ties the /generate-question and /score-answer routes to an Assessor.
type Handler struct {
	a   Assessor
	log *zap.Logger
}

func NewHandler(a Assessor, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{a: a, log: log}
}

// Mount registers the endpoints on r. Unknown routes and methods get
// 404 {"error":"Invalid endpoint"}.
func (h *Handler) Mount(r chi.Router) {
	r.Group(func(g chi.Router) {
		g.Use(h.recoverJSON)
		g.Post("/generate-question", h.GenerateQuestion)
		g.Post("/score-answer", h.ScoreAnswer)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusNotFound, errorBody{Error: "Invalid endpoint"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusNotFound, errorBody{Error: "Invalid endpoint"})
	})
}

// GenerateQuestion handles POST /generate-question.
func (h *Handler) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	out, err := h.a.GenerateQuestion(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, out)
}

// ScoreAnswer handles POST /score-answer.
func (h *Handler) ScoreAnswer(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respond(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	out, err := h.a.ScoreAnswer(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var re *RequestError
	var pe *ReplyError
	switch {
	case errors.As(err, &re):
		h.respond(w, http.StatusBadRequest, errorBody{Error: re.Msg})
	case errors.As(err, &pe):
		h.log.Warn("unusable model reply", zap.String("error", pe.Msg), zap.String("raw", pe.Raw))
		h.respond(w, http.StatusInternalServerError, errorBody{Error: pe.Msg, RawResponse: pe.Raw})
	case errors.Is(err, ErrUnavailable):
		h.respond(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	default:
		h.log.Error("unexpected assessor error", zap.Error(err))
		h.respond(w, http.StatusInternalServerError, errorBody{Error: "An unexpected error occurred: " + err.Error()})
	}
}

// recoverJSON turns a panic in an assessor route into the usual JSON 500.
func (h *Handler) recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.log.Error("panic in assessor handler", zap.Any("panic", rec), zap.Stack("stack"))
			h.respond(w, http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("An unexpected error occurred: %v", rec)})
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
