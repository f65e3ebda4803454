package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediconnect/cache"
	"mediconnect/config"
	"mediconnect/controllers"
	"mediconnect/handlers"
	"mediconnect/logger"
	"mediconnect/middlewares"
	"mediconnect/monitoring"
	"mediconnect/repositories"
	"mediconnect/services"
	"mediconnect/utils"
)

// Dependencies are the stores and clients the router is built on.
type Dependencies struct {
	Users        repositories.UserRepository
	Doctors      repositories.DoctorRepository
	Appointments repositories.AppointmentRepository
	Reports      repositories.ReportRepository
	Store        cache.Store
	Locker       cache.Locker
	Mailer       services.Mailer
	Metrics      *monitoring.Metrics
	HealthChecks map[string]handlers.HealthCheck
}

// NewDependencies wires the PostgreSQL repositories over db and Redis.
func NewDependencies(db *gorm.DB, store cache.Store, locker cache.Locker, mailer services.Mailer, metrics *monitoring.Metrics, log *logger.Logger) Dependencies {
	return Dependencies{
		Users:        repositories.NewUserRepository(db, store, log),
		Doctors:      repositories.NewDoctorRepository(db, store, log),
		Appointments: repositories.NewAppointmentRepository(db),
		Reports:      repositories.NewReportRepository(db),
		Store:        store,
		Locker:       locker,
		Mailer:       mailer,
		Metrics:      metrics,
	}
}

// SetupRoutes builds the router. The returned stop func ends the rate
// limiters' background sweeps.
func SetupRoutes(cfg *config.AppConfig, deps Dependencies, log *logger.Logger) (*gin.Engine, func(), error) {
	switch {
	case cfg.IsDevelopment():
		gin.SetMode(gin.DebugMode)
	case cfg.Env == "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := utils.NewTokenService(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := utils.NewRefreshTokenService(cfg.RefreshTokenKey, cfg.RefreshExpiration)
	if err != nil {
		return nil, nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.RequestLogger(log, deps.Metrics))
	router.Use(middlewares.CorsMiddleware(middlewares.NewCorsConfig(cfg.CORSOrigins)))

	limiter := middlewares.NewRateLimiter(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})
	authLimiter := middlewares.NewRateLimiter(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.AuthRateLimitRPS,
		Burst:             cfg.AuthRateLimitBurst,
	})
	router.Use(limiter.Middleware())

	loc := cfg.Location()

	authService := services.NewAuthService(
		deps.Users,
		deps.Locker,
		tokens,
		refresh,
		utils.NewResetCodes(deps.Store),
		deps.Mailer,
		log,
	)
	appointmentService := services.NewAppointmentService(deps.Appointments, deps.Users, loc, deps.Metrics, log)
	reportService := services.NewReportService(deps.Reports, deps.Appointments, deps.Users, deps.Metrics, log)
	doctorService := services.NewDoctorService(deps.Doctors)

	authenticate := middlewares.Authenticate(authService, log)

	authController := controllers.NewAuthController(handlers.NewAuthHandler(authService, deps.Metrics, log))
	authController.RegisterRoutes(router, authenticate, authLimiter)

	controllers.SetupClinicRoutes(
		router,
		authenticate,
		handlers.NewDoctorHandler(doctorService, log),
		handlers.NewAppointmentHandler(appointmentService, loc, log),
		handlers.NewReportHandler(reportService, log),
	)

	var metricsHandler http.Handler
	if deps.Metrics != nil {
		metricsHandler = deps.Metrics.Handler()
	}
	controllers.SetupRootRoute(router, handlers.NewHealthHandler(deps.HealthChecks, log), cfg.MetricsPath, metricsHandler)

	stop := func() {
		limiter.Stop()
		authLimiter.Stop()
	}
	return router, stop, nil
}
