package server

import (
	"errors"
	"net/http"
	"time"

	"caseflow.dev/caseflowlearn/internal/config"
	"caseflow.dev/caseflowlearn/internal/entity"
	"caseflow.dev/caseflowlearn/internal/jobs"
	"caseflow.dev/caseflowlearn/internal/logging"
	"caseflow.dev/caseflowlearn/internal/middleware"
	"caseflow.dev/caseflowlearn/pkg/authevents"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"caseflow.dev/caseflowlearn/pkg/validator"

	adminHttp "caseflow.dev/caseflowlearn/internal/modules/admin/delivery/http"
	adminService "caseflow.dev/caseflowlearn/internal/modules/admin/service"

	caseHttp "caseflow.dev/caseflowlearn/internal/modules/casereport/delivery/http"
	caseRepo "caseflow.dev/caseflowlearn/internal/modules/casereport/repository"
	caseService "caseflow.dev/caseflowlearn/internal/modules/casereport/service"

	dashboardHttp "caseflow.dev/caseflowlearn/internal/modules/dashboard/delivery/http"
	dashboardService "caseflow.dev/caseflowlearn/internal/modules/dashboard/service"

	evalHttp "caseflow.dev/caseflowlearn/internal/modules/evaluation/delivery/http"
	evalRepo "caseflow.dev/caseflowlearn/internal/modules/evaluation/repository"
	evalService "caseflow.dev/caseflowlearn/internal/modules/evaluation/service"

	likeHttp "caseflow.dev/caseflowlearn/internal/modules/like/delivery/http"
	likeRepo "caseflow.dev/caseflowlearn/internal/modules/like/repository"
	likeService "caseflow.dev/caseflowlearn/internal/modules/like/service"

	notifHttp "caseflow.dev/caseflowlearn/internal/modules/notification/delivery/http"
	notifRepo "caseflow.dev/caseflowlearn/internal/modules/notification/repository"
	notifService "caseflow.dev/caseflowlearn/internal/modules/notification/service"

	profileHttp "caseflow.dev/caseflowlearn/internal/modules/profile/delivery/http"
	profileRepo "caseflow.dev/caseflowlearn/internal/modules/profile/repository"
	profileService "caseflow.dev/caseflowlearn/internal/modules/profile/service"

	referenceHttp "caseflow.dev/caseflowlearn/internal/modules/reference/delivery/http"
	referenceRepo "caseflow.dev/caseflowlearn/internal/modules/reference/repository"
	referenceService "caseflow.dev/caseflowlearn/internal/modules/reference/service"

	searchService "caseflow.dev/caseflowlearn/internal/modules/search/service"

	shellHttp "caseflow.dev/caseflowlearn/internal/modules/shell/delivery/http"
	shellService "caseflow.dev/caseflowlearn/internal/modules/shell/service"

	topicHttp "caseflow.dev/caseflowlearn/internal/modules/topic/delivery/http"
	topicRepo "caseflow.dev/caseflowlearn/internal/modules/topic/repository"
	topicService "caseflow.dev/caseflowlearn/internal/modules/topic/service"

	userHttp "caseflow.dev/caseflowlearn/internal/modules/user/delivery/http"
	userRepo "caseflow.dev/caseflowlearn/internal/modules/user/repository"
	userService "caseflow.dev/caseflowlearn/internal/modules/user/service"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the connections built by main. Redis and Meili may be nil and
// every consumer degrades without them. FileStorage is required.
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	FileStorage storage.FileStorage
	Meili       searchService.MeiliSearchService
	Hub         *authevents.Hub
}

type Server struct {
	engine    *gin.Engine
	scheduler *jobs.Scheduler
}

// ErrMissingDeps is returned when a required connection was not built.
var ErrMissingDeps = errors.New("missing required server dependency")

func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.DB == nil || deps.FileStorage == nil {
		return nil, ErrMissingDeps
	}

	cfg := deps.Config
	db := deps.DB
	redisClient := deps.Redis

	validator.Setup()

	// Reference data
	referenceRepository := referenceRepo.NewReferenceRepository(db)
	referenceSvc := referenceService.NewReferenceService(referenceRepository, redisClient, cfg.ReferenceCacheTTL)
	referenceHandler := referenceHttp.NewReferenceHandler(referenceSvc)

	// Accounts
	userRepository := userRepo.NewUserRepository(db)
	googleConfig := userService.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	authSvc := userService.NewAuthService(userRepository, deps.Hub, redisClient, userService.Config{
		Secret:         cfg.JWTSecret,
		TokenTTL:       cfg.JWTTTL,
		Google:         googleConfig,
		AllowedDomains: cfg.GoogleAllowedDomains,
	})
	authHandler := userHttp.NewAuthHandler(authSvc, cfg.FrontendURL)
	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	profileRepository := profileRepo.NewProfileRepository(db)
	profileSvc := profileService.NewProfileService(profileRepository, referenceSvc, deps.FileStorage)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	// Notifications
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient)
	notificationHandler := notifHttp.NewNotificationHandler(notificationSvc, redisClient, deps.Hub, cfg.AllowedOrigins)

	// Case reports
	caseRepository := caseRepo.NewCaseReportRepository(db)
	caseSvc := caseService.NewCaseReportService(caseRepository, profileRepository, referenceSvc, deps.FileStorage, redisClient, deps.Meili, caseService.Options{
		SubmitCooldown: cfg.RateLimitSubmit,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	caseHandler := caseHttp.NewCaseReportHandler(caseSvc)

	likeRepository := likeRepo.NewLikeRepository(db)
	likeSvc := likeService.NewLikeService(likeRepository, caseSvc, notificationSvc, redisClient)
	likeHandler := likeHttp.NewLikeHandler(likeSvc)

	// Evaluator side
	topicRepository := topicRepo.NewTopicRepository(db)
	topicSvc := topicService.NewTopicService(topicRepository, referenceSvc, caseRepository)
	topicHandler := topicHttp.NewTopicHandler(topicSvc)

	evaluationRepository := evalRepo.NewEvaluationRepository(db)
	evaluationSvc := evalService.NewEvaluationService(evaluationRepository, caseRepository, topicSvc, notificationSvc)
	evaluationHandler := evalHttp.NewEvaluationHandler(evaluationSvc)

	dashboardSvc := dashboardService.NewDashboardService(caseSvc, evaluationSvc, topicSvc)
	dashboardHandler := dashboardHttp.NewDashboardHandler(dashboardSvc)

	shellHandler := shellHttp.NewShellHandler(shellService.NewShellService())

	// Background jobs
	scheduler := jobs.NewScheduler()
	for _, job := range []jobs.Job{
		jobs.FileCleanup(deps.FileStorage, redisClient),
		jobs.LikeResync(likeSvc),
		jobs.NotificationPrune(notificationSvc),
		jobs.StaleReviewRelease(evaluationSvc),
	} {
		if err := scheduler.Register(job); err != nil {
			return nil, err
		}
	}

	adminSvc := adminService.NewAdminService(userRepository, authSvc, evaluationSvc, deps.Hub, deps.FileStorage, redisClient, deps.Meili)
	adminHandler := adminHttp.NewAdminHandler(adminSvc, scheduler)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger("/healthz", "/api/notifications/ws"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.SignUp)
		auth.POST("/signin", authHandler.SignIn)
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}

	api.GET("/shell/resolve", authMiddleware.OptionalAuth(), shellHandler.Resolve)
	api.GET("/universities", referenceHandler.ListUniversities)
	api.GET("/universities/:id/departments", referenceHandler.ListDepartments)
	api.GET("/topics", referenceHandler.ListTopics)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/refresh", authHandler.Refresh)
		protected.POST("/auth/signout", authHandler.SignOut)

		protected.GET("/profile", profileHandler.GetCurrentProfile)
		protected.GET("/profile/form", profileHandler.GetForm)
		protected.PUT("/profile", profileHandler.UpdateProfile)

		reports := protected.Group("/case-reports")
		{
			reports.GET("", caseHandler.Browse)
			reports.POST("", authMiddleware.RequireRole(entity.RoleStudent), caseHandler.Submit)
			reports.GET("/mine", caseHandler.MyReports)
			reports.GET("/form", caseHandler.SubmitForm)
			reports.GET("/:id", caseHandler.Get)
			reports.DELETE("/:id", caseHandler.Delete)
			reports.GET("/:id/evaluations", evaluationHandler.ForReport)
		}

		protected.POST("/likes/:id", likeHandler.Toggle)
		protected.GET("/likes/:id", likeHandler.Status)

		evaluations := protected.Group("/evaluations")
		evaluations.Use(authMiddleware.RequireRole(entity.RoleEvaluator, entity.RoleAdmin))
		{
			evaluations.GET("/pending", evaluationHandler.PendingQueue)
			evaluations.GET("/in-review", evaluationHandler.InReview)
			evaluations.GET("/history", evaluationHandler.History)
			evaluations.GET("/stats", evaluationHandler.Stats)
			evaluations.POST("", evaluationHandler.Start)
			evaluations.PUT("/:id", evaluationHandler.Submit)
			evaluations.DELETE("/:id", evaluationHandler.Abandon)
		}

		evaluatorTopics := protected.Group("/evaluator/topics")
		evaluatorTopics.Use(authMiddleware.RequireRole(entity.RoleEvaluator, entity.RoleAdmin))
		{
			evaluatorTopics.GET("/recommendations", topicHandler.Recommendations)
			evaluatorTopics.GET("", topicHandler.Accepted)
			evaluatorTopics.POST("", topicHandler.Accept)
			evaluatorTopics.DELETE("/:id", topicHandler.Withdraw)
			evaluatorTopics.GET("/cases", topicHandler.Cases)
		}

		protected.GET("/dashboard/student", authMiddleware.RequireRole(entity.RoleStudent, entity.RoleAdmin), dashboardHandler.Student)
		protected.GET("/dashboard/evaluator", authMiddleware.RequireRole(entity.RoleEvaluator, entity.RoleAdmin), dashboardHandler.Evaluator)

		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireRole(entity.RoleAdmin))
		{
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.GET("/users/stats", adminHandler.UserStats)
			adminGroup.PUT("/users/:id/role", adminHandler.ChangeRole)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			adminGroup.GET("/jobs", adminHandler.ListJobs)
			adminGroup.POST("/jobs/:name/run", adminHandler.RunJob)
			adminGroup.POST("/universities", referenceHandler.CreateUniversity)
			adminGroup.POST("/universities/:id/departments", referenceHandler.CreateDepartment)
			adminGroup.POST("/topics", referenceHandler.CreateTopic)
			adminGroup.DELETE("/topics/:id", referenceHandler.DeleteTopic)
		}
	}

	return &Server{
		engine:    router,
		scheduler: scheduler,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Scheduler() *jobs.Scheduler {
	return s.scheduler
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
