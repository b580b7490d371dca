package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// POST /tests  {testname, testdescription}
func CreateTestHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.NewTest
		if !decodeJSON(w, r, &in) {
			return
		}
		t, err := svc.CreateTest(r.Context(), owner(r), in)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func ListTestsHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListTests(r.Context(), owner(r))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list) // [] when empty
	}
}

func GetTestHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTest(r.Context(), owner(r), chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// PATCH /tests/{testID}  {testname?, testdescription?}
func UpdateTestHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p quiz.TestPatch
		if !decodeJSON(w, r, &p) {
			return
		}
		t, err := svc.UpdateTest(r.Context(), owner(r), chi.URLParam(r, "testID"), p)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func DeleteTestHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTest(r.Context(), owner(r), chi.URLParam(r, "testID")); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /tests/{testID}/export?format=json|yaml
func ExportTestHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format == "" {
			format = "json"
		}
		if format != "json" && format != "yaml" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "format must be json or yaml"})
			return
		}
		id := chi.URLParam(r, "testID")
		exp, err := svc.ExportTest(r.Context(), owner(r), id)
		if err != nil {
			writeError(w, log, err)
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="test-`+id+`.`+format+`"`)
		if format == "json" {
			writeJSON(w, http.StatusOK, exp)
			return
		}
		out, err := yaml.Marshal(exp)
		if err != nil {
			writeError(w, log, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(out)
	}
}
