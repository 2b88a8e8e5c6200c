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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recipe-hand/api"
	"recipe-hand/config"
	"recipe-hand/services"
	"recipe-hand/storage"
)

const probeTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:           "recipe-hand",
	Short:         "Recipe API server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Wait for the database, migrate and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var waitForDBCmd = &cobra.Command{
	Use:   "wait_for_db",
	Short: "Block until the database accepts connections",
	Long: `Probes the configured PostgreSQL database until it accepts connections.
Connection failures and "not ready yet" server errors are retried every
WAIT_FOR_DB_INTERVAL; authentication errors abort immediately.`,
	Args: cobra.NoArgs,
	RunE: runWaitForDB,
}

// newProbe baut die Datenbankprüfung für wait_for_db, serve und /ready.
var newProbe = func(cfg *config.Config) services.Probe {
	return &services.PostgresProbe{DSN: cfg.DSN(), Timeout: probeTimeout}
}

func init() {
	rootCmd.AddCommand(serveCmd, waitForDBCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap lädt Konfiguration und Logger für alle Kommandos.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging, nil
}

func newGate(cfg *config.Config, logging *zap.Logger) *services.WaitGate {
	return services.NewWaitGate(newProbe(cfg), cfg.WaitForDBInterval, cfg.WaitForDBMaxAttempts, logging)
}

func runWaitForDB(cmd *cobra.Command, _ []string) error {
	cfg, logging, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = newGate(cfg, logging).Wait(ctx)
	return err
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logging, err := bootstrap()
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := newGate(cfg, logging).Wait(ctx); err != nil {
		return err
	}

	db, err := storage.OpenDatabase(cfg, logging)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	deps := api.Dependencies{
		Logger:      logging,
		Tokens:      services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Users:       services.NewUserService(db, logging),
		Recipes:     services.NewRecipeService(db, logging),
		Ingredients: services.NewIngredientService(db, logging),
		Tags:        services.NewTagService(db, logging),
		Ready:       newProbe(cfg),
	}
	if cfg.S3.Enabled() {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("S3 client creation failed: %w", err)
		}
		deps.Images = storage.NewBucket(client, cfg.S3)
		logging.Info("Image storage enabled", zap.String("bucket", cfg.S3.Bucket))
	} else {
		logging.Warn("S3 not configured, image upload disabled")
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(deps)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
