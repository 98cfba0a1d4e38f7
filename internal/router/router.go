package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/handler"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/middleware"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Attempt      *handler.AttemptHandler
	Progress     *handler.ProgressHandler
	Submit       *handler.SubmitHandler
	WS           *handler.WSHandler
	AdminAttempt *handler.AdminAttemptHandler
	Monitor      *handler.MonitorHandler
	Position     *handler.PositionHandler
	Question     *handler.QuestionHandler
	Candidate    *handler.CandidateHandler
	Media        *handler.MediaHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())
	router.Use(middleware.Compress(middleware.CompressConfig{
		Quality:   middleware.DefaultCompressConfig.Quality,
		MinLength: middleware.DefaultCompressConfig.MinLength,
		// Images are already compressed and the scrape endpoint negotiates its own encoding.
		SkipPrefixes: []string{"/uploads", "/metrics", "/ws/"},
	}))

	// Question images stored by the filesystem blob driver.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.StaticCache(365 * 24 * time.Hour))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	candidateAuth := []gin.HandlerFunc{
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	}

	attempt := router.Group("/api/v1/test-attempt")
	attempt.Use(candidateAuth...)
	attempt.Use(middleware.NoStore())
	{
		attempt.POST("/create", handlers.Attempt.Create)
		attempt.POST("/start", handlers.Attempt.Start)
		attempt.POST("/submit", handlers.Submit.Submit)
		attempt.GET("/latest/:candidateId/position/:positionId", handlers.Attempt.Latest)
		attempt.GET("/candidate/:candidateId/position/:positionId", handlers.Attempt.List)
		attempt.GET("/:attemptId/paper", handlers.Attempt.Paper)
		attempt.POST("/:attemptId/events", handlers.Attempt.ReportEvent)
	}

	progress := router.Group("/api/v1/test-progress")
	progress.Use(candidateAuth...)
	progress.Use(middleware.NoStore())
	{
		progress.POST("/save", handlers.Progress.Save)
		progress.GET("/get/:attemptId", handlers.Progress.Get)
		progress.DELETE("/reset", handlers.Progress.Reset)
	}

	// ─── 3. WebSocket Group (token may come from ?token=) ──────────────
	ws := router.Group("/ws/v1")
	ws.Use(candidateAuth...)
	{
		ws.GET("/test-attempt/:attemptId/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/media/upload",
			middleware.RequirePermission(model.PermissionMediaUpload),
			handlers.Media.UploadMedia,
		)

		// Positions and question banks
		adminAPI.GET("/positions",
			middleware.RequirePermission(model.PermissionPositionsRead),
			handlers.Position.List,
		)
		adminAPI.POST("/positions",
			middleware.RequirePermission(model.PermissionPositionsWrite),
			handlers.Position.Create,
		)
		adminAPI.GET("/positions/:id",
			middleware.RequirePermission(model.PermissionPositionsRead),
			handlers.Position.Get,
		)
		adminAPI.PUT("/positions/:id",
			middleware.RequirePermission(model.PermissionPositionsWrite),
			handlers.Position.Update,
		)
		adminAPI.DELETE("/positions/:id",
			middleware.RequirePermission(model.PermissionPositionsWrite),
			handlers.Position.Delete,
		)
		adminAPI.GET("/positions/:id/questions",
			middleware.RequirePermission(model.PermissionPositionsRead),
			handlers.Question.List,
		)
		adminAPI.POST("/positions/:id/questions",
			middleware.RequirePermission(model.PermissionPositionsWrite),
			handlers.Question.Add,
		)
		adminAPI.DELETE("/positions/:id/questions/:questionId",
			middleware.RequirePermission(model.PermissionPositionsWrite),
			handlers.Question.Delete,
		)
		adminAPI.GET("/positions/:id/monitor",
			middleware.RequirePermission(model.PermissionAttemptsRead),
			handlers.Monitor.MonitorPositionSSE,
		)

		// Candidates
		adminAPI.GET("/candidates",
			middleware.RequirePermission(model.PermissionCandidatesRead),
			handlers.Candidate.List,
		)
		adminAPI.POST("/candidates",
			middleware.RequirePermission(model.PermissionCandidatesWrite),
			handlers.Candidate.Create,
		)
		adminAPI.GET("/candidates/:id",
			middleware.RequirePermission(model.PermissionCandidatesRead),
			handlers.Candidate.Get,
		)
		adminAPI.DELETE("/candidates/:id",
			middleware.RequirePermission(model.PermissionCandidatesWrite),
			handlers.Candidate.Delete,
		)
		adminAPI.POST("/candidates/:id/reset-session",
			middleware.RequirePermission(model.PermissionCandidatesResetSession),
			handlers.Candidate.ResetSession,
		)

		// Attempts and analytics
		attempts := adminAPI.Group("/attempts")
		{
			attempts.GET("/attempts",
				middleware.RequirePermission(model.PermissionAttemptsRead),
				handlers.AdminAttempt.List,
			)
			attempts.GET("/attempts/:id",
				middleware.RequirePermission(model.PermissionAttemptsRead),
				handlers.AdminAttempt.Get,
			)
			attempts.PATCH("/attempts/:id/reset",
				middleware.RequirePermission(model.PermissionAttemptsReset),
				handlers.AdminAttempt.Reset,
			)
			attempts.DELETE("/attempts/:id",
				middleware.RequirePermission(model.PermissionAttemptsDelete),
				handlers.AdminAttempt.Delete,
			)
			attempts.GET("/analytics",
				middleware.RequirePermission(model.PermissionAttemptsRead),
				handlers.AdminAttempt.Analytics,
			)
		}
	}

	return router
}
