package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"forge-backend/internal/api"
	"forge-backend/internal/audit"
	"forge-backend/internal/config"
	"forge-backend/internal/engine"
	"forge-backend/internal/metadata"
	"forge-backend/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "forge",
	Short:         "Metadata-driven write engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Sync database tables with model metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrate(cmd.Context())
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// bootstrap loads config, connects the database and populates the registry.
// Shared by serve and migrate.
func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, *store.Store, *metadata.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, log, nil, nil, fmt.Errorf("connect database: %w", err)
	}

	reg := metadata.NewRegistry()
	if err := metadata.LoadModels(cfg.Models.Dir, reg); err != nil {
		db.Close()
		return nil, log, nil, nil, err
	}
	if err := metadata.LoadDescriptors(cfg.Models.Dir+"/descriptors", reg); err != nil {
		db.Close()
		return nil, log, nil, nil, err
	}
	for _, m := range reg.AllModels() {
		if reg.GetDescriptor(m.Name) == nil {
			if err := reg.Register(metadata.DefaultDescriptor(m)); err != nil {
				db.Close()
				return nil, log, nil, nil, err
			}
		}
	}

	log.Info().
		Str("driver", cfg.Database.Driver).
		Int("models", len(reg.AllModels())).
		Msg("registry loaded")

	return cfg, log, db, reg, nil
}

func migrate(ctx context.Context) error {
	_, log, db, reg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := store.NewMigrator(db)
	if err := migrator.EnsureAuditTable(ctx); err != nil {
		return err
	}
	for _, m := range reg.AllModels() {
		if err := migrator.Migrate(ctx, m); err != nil {
			return err
		}
		log.Info().Str("model", m.Name).Str("table", m.Table).Msg("migrated")
	}
	return nil
}

func serve(ctx context.Context) error {
	cfg, log, db, reg, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := store.NewMigrator(db)
	if err := migrator.EnsureAuditTable(ctx); err != nil {
		return err
	}
	for _, m := range reg.AllModels() {
		if err := migrator.Migrate(ctx, m); err != nil {
			return err
		}
	}

	var events engine.EventRecorder
	if cfg.Audit.Enabled {
		events = audit.NewRecorder(db.Dialect, log)
	}

	exec := engine.New(engine.Config{
		Store:    db,
		Resolver: engine.NewResolver(reg, engine.DefaultMetaFilters()...),
		Events:   events,
		Logger:   log,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(api.RequestLogger(log))
	app.Use(api.ActorMiddleware(cfg.JWTSecret))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api.RegisterRoutes(app, api.NewHandler(exec, reg))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("listening")
	return app.Listen(addr)
}

// errorHandler converts uncaught errors into the JSON error envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiber.Map{"code": "HTTP_ERROR", "message": fiberErr.Message},
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{"code": "INTERNAL", "message": "Internal server error"},
	})
}
