package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/database"
	"github.com/proctorly/interview-backend/internal/handler"
	"github.com/proctorly/interview-backend/internal/logger"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/proctorly/interview-backend/internal/router"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/proctorly/interview-backend/internal/storage"
	"github.com/proctorly/interview-backend/internal/validator"
	"github.com/proctorly/interview-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(logger.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("storage", cfg.StorageDriver).
		Msg("Starting interview backend")

	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Blob Storage ──────────────────────────────────────────────────
	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize blob storage")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	adminRepo := repository.NewAdminRepository(pool)
	positionRepo := repository.NewPositionRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	proctorRepo := repository.NewProctorEventRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	progressCache := repository.NewProgressCache(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	monitorService := service.NewMonitorService(rdb, attemptRepo, log)
	authService := service.NewAuthService(cfg, rdb, adminRepo, candidateRepo)
	positionService := service.NewPositionService(positionRepo)
	candidateService := service.NewCandidateService(candidateRepo, positionRepo, authService)
	questionService := service.NewQuestionService(questionRepo, positionRepo, rdb, log)
	mediaService := service.NewMediaService(cfg, blobs, rdb)
	proctorService := service.NewProctorService(rdb, monitorService)
	progressService := service.NewProgressService(attemptRepo, progressCache, progressRepo, monitorService, log)
	attemptService := service.NewAttemptService(
		attemptRepo, positionRepo, candidateRepo, questionRepo,
		progressService, questionService, proctorRepo, monitorService, log,
	)
	submissionService := service.NewSubmissionService(
		attemptRepo, questionRepo, resultRepo, progressService, mediaService, monitorService, cfg.AutoSubmitSkew, log,
	)
	analyticsService := service.NewAnalyticsService(analyticsRepo, cfg.PassScore)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, adminRepo, candidateService, log),
		Attempt:      handler.NewAttemptHandler(attemptService, questionService, proctorService, log),
		Progress:     handler.NewProgressHandler(attemptService, progressService, log),
		Submit:       handler.NewSubmitHandler(attemptService, submissionService, log),
		WS:           handler.NewWSHandler(attemptService, progressService, proctorService, submissionService, log, cfg.AllowedOrigins),
		AdminAttempt: handler.NewAdminAttemptHandler(attemptService, analyticsService, log),
		Monitor:      handler.NewMonitorHandler(positionService, monitorService, log),
		Position:     handler.NewPositionHandler(positionService, log),
		Question:     handler.NewQuestionHandler(questionService, log),
		Candidate:    handler.NewCandidateHandler(candidateService, authService, log),
		Media:        handler.NewMediaHandler(mediaService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	startWorker := func(start func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			start(workerCtx)
		}()
	}

	startWorker(worker.NewProgressWorker(rdb, progressService, log).Start)
	startWorker(worker.NewProctorWorker(rdb, proctorRepo, log).Start)
	startWorker(worker.NewRecordingWorker(rdb, blobs, resultRepo, log).Start)
	startWorker(worker.NewExpiryWorker(attemptService, submissionService, cfg.ExpiryGrace, cfg.ExpirySweepInterval, log).Start)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for their queues to drain.
	workerCancel()
	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Workers did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
