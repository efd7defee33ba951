package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-importer/core/adapter"
	"course-importer/core/config"
	"course-importer/core/database"
	"course-importer/core/loader"
	"course-importer/core/logger"
	"course-importer/core/middleware/rayid"
	"course-importer/core/progress"
	"course-importer/core/reconcile"
	"course-importer/core/storage"
	"course-importer/feature/courses"
	"course-importer/feature/courses/adapters"
	"course-importer/feature/imports"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the import HTTP service",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		repo := courses.NewRepository(db)
		if cfg.Database.AutoMigrate {
			err = repo.Migrate(cmd.Context())
		} else {
			err = repo.VerifySchema(cmd.Context())
		}
		if err != nil {
			logg.Fatal("Database schema is not usable", zap.Error(err))
		}
		logg.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

		// 4. Progress Store
		store, err := progress.New(cfg.Progress)
		if err != nil {
			logg.Fatal("Failed to create progress store", zap.Error(err))
		}

		// 5. Optional archive storage
		var archive *imports.Archive
		if cfg.Storage.ArchivePrefix != "" {
			client, err := storage.NewClient(cfg.Storage)
			if err != nil {
				logg.Fatal("Failed to create storage client", zap.Error(err))
			}
			archive = &imports.Archive{
				Client: client,
				Bucket: cfg.Storage.Bucket,
				Region: cfg.Storage.Region,
				Prefix: cfg.Storage.ArchivePrefix,
			}
		}

		// 6. Import Service
		dispatcher := adapter.NewDispatcher(adapters.NewRegistry(), courses.NewValidator())
		svc := imports.NewService(dispatcher, reconcile.NewEngine(repo, logg), store, archive, cfg.Importer, logg)

		// 7. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit(),
			ReadTimeout:           time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		})

		// 8. Feature Loader
		mgr := loader.NewManager()
		mgr.Register(imports.NewFeature(svc))

		// RayID first so every log line can be traced.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		loaded, err := mgr.LoadAll(app)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		// 9. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 10. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
		logg.Info("Waiting for background imports to finish...")
		svc.Wait()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
