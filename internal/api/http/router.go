package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type Deps struct {
	Service *quiz.Service
	Auth    *auth.AuthService
	DB      *sql.DB
	Events  *events.Log
	Hub     *events.Hub
	Logger  *zap.Logger

	CORSOrigins []string
	// EnableLocalAuth allows the username == password dev login for unknown
	// users and keeps claim roles for subjects missing from the users table.
	EnableLocalAuth bool
	RequestTimeout  time.Duration
}

// NewRouter mounts the quiz API.
func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	log := d.Logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "database unavailable"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.With(middleware.Timeout(d.RequestTimeout)).
		Post("/auth/login", auth.LoginHandler(d.Auth, d.DB, d.EnableLocalAuth))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		if d.DB != nil {
			pr.Use(auth.AttachRoleFromDB(d.DB, d.EnableLocalAuth))
		}

		// Long-lived: no request timeout.
		subs := &Subscriptions{Service: d.Service, Hub: d.Hub, Logger: log, AllowedOrigins: d.CORSOrigins}
		pr.With(rbac.Require(rbac.PermSubscribe)).Get("/subscribe/tests", subs.Tests())
		pr.With(rbac.Require(rbac.PermSubscribe)).Get("/subscribe/tests/{testID}/questions", subs.Questions())

		pr.Group(func(ar chi.Router) {
			ar.Use(middleware.Timeout(d.RequestTimeout))

			ar.Get("/me", MeHandler())

			ar.With(rbac.Require(rbac.PermTestWrite)).Post("/tests", CreateTestHandler(d.Service, log))
			ar.With(rbac.Require(rbac.PermTestView)).Get("/tests", ListTestsHandler(d.Service, log))
			ar.Route("/tests/{testID}", func(tr chi.Router) {
				tr.With(rbac.Require(rbac.PermTestView)).Get("/", GetTestHandler(d.Service, log))
				tr.With(rbac.Require(rbac.PermTestWrite)).Patch("/", UpdateTestHandler(d.Service, log))
				tr.With(rbac.Require(rbac.PermTestWrite)).Delete("/", DeleteTestHandler(d.Service, log))
				tr.With(rbac.Require(rbac.PermTestExport)).Get("/export", ExportTestHandler(d.Service, log))

				tr.With(rbac.Require(rbac.PermQuestionView)).Get("/questions", ListQuestionsHandler(d.Service, log))
				tr.With(rbac.Require(rbac.PermQuestionWrite)).Post("/questions", AddQuestionHandler(d.Service, log))
				tr.With(rbac.Require(rbac.PermGenerate)).Post("/questions/generate", GenerateQuestionHandler(d.Service, log))
			})
			ar.Route("/questions/{questionID}", func(qr chi.Router) {
				qr.With(rbac.Require(rbac.PermQuestionView)).Get("/", GetQuestionHandler(d.Service, log))
				qr.With(rbac.Require(rbac.PermQuestionWrite)).Delete("/", DeleteQuestionHandler(d.Service, log))
				qr.With(rbac.Require(rbac.PermQuestionAnswer)).Post("/answer", SubmitAnswerHandler(d.Service, log))
				qr.With(rbac.Require(rbac.PermQuestionAnswer)).Delete("/answer", ResetAnswerHandler(d.Service, log))
			})

			if d.DB != nil {
				ar.With(rbac.Require(rbac.PermUsersManage)).Post("/users", UpsertUserHandler(d.DB, log))
			}
			if d.Events != nil {
				ar.With(rbac.RequireAny(rbac.PermEventsView, rbac.PermSubscribe)).Get("/events", ListEventsHandler(d.Events, log))
			}
		})
	})
	return r
}
