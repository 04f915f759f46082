package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub/v2"
	"github.com/illmade-knight/location-api/app"
	"github.com/illmade-knight/location-api/internal/config"
	"github.com/illmade-knight/location-api/internal/events"
	"github.com/illmade-knight/location-api/pkg/locations"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := loadConfig(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = newLogger(cfg)

	// 2. Run until a shutdown signal arrives
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Location API failed")
	}
}

// run assembles and serves the application until ctx is done. Resources are
// released before it returns.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Initialize the change event publisher, if enabled
	var publisher locations.EventPublisher
	if cfg.Events.Enabled {
		psClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to create Pub/Sub client: %w", err)
		}
		defer psClient.Close()

		pubsubPublisher := events.NewPubsubPublisher(psClient, cfg.Events.TopicID, logger)
		defer pubsubPublisher.Stop()
		publisher = pubsubPublisher
		logger.Info().Str("topic", cfg.Events.TopicID).Msg("Change events enabled")
	}

	// Assemble and start the application
	application, err := app.New(cfg, publisher, logger)
	if err != nil {
		return fmt.Errorf("failed to assemble application: %w", err)
	}
	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unclean shutdown: %w", err)
	}
	return nil
}

// loadConfig reads the file named by LOCATION_API_CONFIG, or the default
// path. A missing default file falls back to built-in defaults.
func loadConfig(logger zerolog.Logger) (*config.Config, error) {
	path, explicit := os.LookupEnv(config.EnvConfigFile)
	if !explicit {
		path = config.DefaultConfigFile
	}
	cfg, err := config.LoadConfig(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("No config file found, using defaults")
		return config.FromEnv()
	}
	return cfg, err
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
