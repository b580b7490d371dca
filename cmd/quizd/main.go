// Command quizd serves the quiz API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/assessor"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/events"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var (
	verbose  bool
	envFiles []string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "quizd",
	Short:        "MindEngage quiz server",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotenv(envFiles...); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
		cfg = config.FromEnv()
		var err error
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbh, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer dbh.Close()
		logger.Info("schema up to date", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

var tokenRole string

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Print a signed access token for subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !rbac.KnownRole(tokenRole) {
			return fmt.Errorf("unknown role %q", tokenRole)
		}
		tok, err := auth.NewAuthService(cfg.AuthSecret).IssueJWT(args[0], tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var (
	userRole     string
	userPassword string
)

var userAddCmd = &cobra.Command{
	Use:   "useradd <username>",
	Short: "Create a user or reset its password and role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			userPassword = os.Getenv("QUIZ_USER_PASSWORD")
		}
		dbh, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer dbh.Close()
		if err := auth.UpsertUser(cmd.Context(), dbh, args[0], userPassword, userRole); err != nil {
			return err
		}
		logger.Info("user saved", zap.String("username", args[0]), zap.String("role", userRole))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	tokenCmd.Flags().StringVar(&tokenRole, "role", rbac.RoleUser, "role claim")
	userAddCmd.Flags().StringVar(&userRole, "role", rbac.RoleUser, "user role")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "password (or QUIZ_USER_PASSWORD)")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd, userAddCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db open failed: %w", err)
	}
	return dbh, nil
}

// newAssessor picks a remote assessor, then an in-process Gemini model, then
// the offline scorer.
func newAssessor(ctx context.Context) (assessor.Assessor, error) {
	switch {
	case cfg.AssessorURL != "":
		logger.Info("using remote assessor", zap.String("url", cfg.AssessorURL))
		return assessor.NewClient(assessor.ClientConfig{
			BaseURL:      cfg.AssessorURL,
			Timeout:      cfg.AssessorTimeout,
			TokenURL:     cfg.AssessorTokenURL,
			ClientID:     cfg.AssessorClientID,
			ClientSecret: cfg.AssessorClientSecret,
		}), nil
	case cfg.GenAIAPIKey != "":
		m, err := assessor.NewGeminiModel(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
		if err != nil {
			return nil, err
		}
		logger.Info("using in-process model", zap.String("model", cfg.GenAIModel))
		return assessor.NewEngine(m, logger.Named("assessor")), nil
	default:
		logger.Warn("no assessor configured: generation disabled, scoring by text similarity")
		return assessor.Offline{}, nil
	}
}

func serve(ctx context.Context) error {
	dbh, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer dbh.Close()

	a, err := newAssessor(ctx)
	if err != nil {
		return err
	}

	hub := events.NewHub(0)
	elog := events.NewLog(dbh)
	svc := quiz.NewService(quiz.NewSQLStore(dbh), a,
		quiz.WithLogger(logger.Named("quiz")),
		quiz.WithNotifier(&events.Recorder{SiteID: cfg.SiteID, Log: elog, Hub: hub, Logger: logger.Named("events")}),
	)

	router := api.NewRouter(api.Deps{
		Service:         svc,
		Auth:            auth.NewAuthService(cfg.AuthSecret),
		DB:              dbh,
		Events:          elog,
		Hub:             hub,
		Logger:          logger.Named("http"),
		CORSOrigins:     cfg.CORSOrigins(),
		EnableLocalAuth: cfg.EnableLocalAuth,
		RequestTimeout:  cfg.AssessorTimeout + 15*time.Second,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		hub.Close() // ends subscriptions, which Shutdown does not wait for
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
