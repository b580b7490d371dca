// Command quizgen serves question generation and answer scoring over HTTP
// (POST /generate-question, POST /score-answer) backed by a Gemini model.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quiz/internal/assessor"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "quizgen:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotenv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var a assessor.Assessor = assessor.Offline{}
	if cfg.GenAIAPIKey != "" {
		m, err := assessor.NewGeminiModel(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			return fmt.Errorf("genai client: %w", err)
		}
		a = assessor.NewEngine(m, logger.Named("engine"))
	} else {
		logger.Warn("GENAI_API_KEY not set: generation disabled, scoring by text similarity")
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: newRouter(a, logger, cfg.AssessorTimeout), ReadHeaderTimeout: 5 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("model", cfg.GenAIModel))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(a assessor.Assessor, logger *zap.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Requests(logger), middleware.Recoverer)
	r.Use(middleware.Timeout(timeout + 5*time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	assessor.NewHandler(a, logger).Mount(r)
	return r
}
