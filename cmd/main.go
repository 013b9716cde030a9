// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"

	"go_5_hero_quest/internal/config"
	"go_5_hero_quest/internal/handlers"
	"go_5_hero_quest/internal/middleware"
	"go_5_hero_quest/internal/repository"
	"go_5_hero_quest/internal/service"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	if err := config.LoadConfig("./configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		tintOpts := &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		}
		handler = tint.NewHandler(os.Stderr, tintOpts)
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}
		handler = slog.NewJSONHandler(os.Stderr, jsonOpts)
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...")

	// 2. Initialize Database Connection (GORM)
	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()

	if err := repository.AutoMigrate(db); err != nil {
		slog.Error("Error running migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// 3. Dependency Injection
	userRepo := repository.NewGormUserRepository()
	statsRepo := repository.NewGormStatsRepository()
	xpRepo := repository.NewGormXPEventRepository()
	focusRepo := repository.NewGormFocusRepository()
	skillRepo := repository.NewGormSkillRepository()
	treeRepo := repository.NewGormSkillTreeRepository()
	bossRepo := repository.NewGormBossRepository()
	activityRepo := repository.NewGormActivityRepository()

	// スキルツリーの参照データを起動時にロードする (非循環性もここで検証)
	if err := service.SeedSkillTree(context.Background(), db, treeRepo); err != nil {
		slog.Error("Error seeding skill tree", slog.Any("error", err))
		os.Exit(1)
	}

	locker := service.NewUserLocker()
	mailer := service.NewMailer(&config.Cfg)

	progressionService := service.NewProgressionService(db, statsRepo, xpRepo, skillRepo, locker, &config.Cfg)
	focusService := service.NewFocusService(db, focusRepo, xpRepo, progressionService, locker, &config.Cfg)
	skillService := service.NewSkillService(db, treeRepo, skillRepo, progressionService, locker, &config.Cfg)
	bossService := service.NewBossService(db, bossRepo, xpRepo, statsRepo, progressionService, locker, &config.Cfg)
	activityService := service.NewActivityService(db, activityRepo, progressionService, locker)
	authService := service.NewAuthService(db, userRepo, progressionService, mailer, &config.Cfg)

	authHandler := handlers.NewAuthHandler(authService, logger)
	heroHandler := handlers.NewHeroHandler(progressionService, logger)
	focusHandler := handlers.NewFocusHandler(focusService, logger)
	skillHandler := handlers.NewSkillHandler(skillService, logger)
	bossHandler := handlers.NewBossHandler(bossService, logger)
	activityHandler := handlers.NewActivityHandler(activityService, logger)

	// 4. Setup Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	corsOptions := cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
		Debug:            false,
	}
	corsHandler := cors.New(corsOptions)
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// --- Public routes ---
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// --- Protected routes ---
		r.Group(func(r chi.Router) {
			if config.Cfg.Auth.Enabled {
				slog.Info("Applying JWT authentication middleware")
				r.Use(middleware.JWTAuthMiddleware(&config.Cfg))
			} else {
				// 開発用: X-User-ID ヘッダーをそのまま信用する
				slog.Warn("Auth disabled: applying development authentication middleware")
				r.Use(middleware.DevAuthMiddleware())
			}

			// Hero routes
			r.Get("/hero", heroHandler.GetHero)
			r.Post("/hero/allocate", heroHandler.Allocate)
			r.Get("/analytics/summary", heroHandler.GetAnalyticsSummary)
			r.Get("/ranks", heroHandler.GetRanks)
			r.Get("/xp-rules", heroHandler.GetXPRules)

			// Focus routes
			r.Route("/focus", func(r chi.Router) {
				r.Get("/", focusHandler.List)
				r.Get("/active", focusHandler.GetActive)
				r.Post("/start", focusHandler.Start)
				r.Post("/stop", focusHandler.Stop)
				r.Post("/cancel", focusHandler.Cancel)
			})

			// Boss routes
			r.Route("/boss", func(r chi.Router) {
				r.Get("/", bossHandler.GetBoss)
				r.Post("/attack", bossHandler.Attack)
				r.Post("/next", bossHandler.Next)
			})

			// Skill routes
			r.Get("/skill-tracks", skillHandler.GetTree)
			r.Get("/skill-nodes", skillHandler.GetNodes)
			r.Post("/skill-nodes/{node_id}/activate", skillHandler.ActivateNode)
			r.Route("/skills", func(r chi.Router) {
				r.Get("/", skillHandler.ListSkills)
				r.Post("/", skillHandler.CreateSkill)
				r.Patch("/{skill_id}", skillHandler.UpgradeSkill)
			})

			// Activity routes
			r.Route("/workouts", func(r chi.Router) {
				r.Get("/", activityHandler.ListWorkouts)
				r.Post("/", activityHandler.CreateWorkout)
			})
			r.Route("/logs", func(r chi.Router) {
				r.Get("/", activityHandler.ListLearningLogs)
				r.Post("/", activityHandler.CreateLearningLog)
			})
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sqlDB, err := db.DB()
		if err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not get DB object", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	slog.Info("Server exited properly")
}
