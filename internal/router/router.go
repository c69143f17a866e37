package router

import (
	"time"

	"rentalhub/internal/config"
	"rentalhub/internal/events"
	"rentalhub/internal/handler"
	"rentalhub/internal/middleware"
	"rentalhub/internal/model"
	"rentalhub/internal/numbering"
	"rentalhub/internal/repository"
	"rentalhub/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UsersHandler
	Reservations *handler.ReservationsHandler
	Invoices     *handler.InvoicesHandler
	Clients      *handler.ClientsHandler
	Attractions  *handler.AttractionsHandler
	Audit        *handler.AuditHandler
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher service.JobDispatcher, publisher events.Publisher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	attractionRepo := repository.NewAttractionRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	auditSvc, err := service.NewAuditService(auditRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise audit compression")
	}
	numbers := numbering.NewGenerator(sequenceRepo)
	collab := service.Collaborators{
		Audit:      auditSvc,
		Dispatcher: dispatcher,
		Publisher:  publisher,
	}
	policy := service.ReservationPolicy{
		EnforceAvailability: cfg.EnforceAvailability,
		IgnoreCancelled:     cfg.AvailabilityIgnoreCancelled,
		StrictTransitions:   cfg.StrictStatusTransitions,
	}

	authSvc := service.NewAuthService(userRepo, cfg, auditSvc)
	reservationSvc := service.NewReservationService(reservationRepo, clientRepo, attractionRepo, userRepo, numbers, collab, policy)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, reservationRepo, clientRepo, numbers, collab, cfg.PDFStoragePath)
	clientSvc := service.NewClientService(clientRepo, auditSvc)
	attractionSvc := service.NewAttractionService(attractionRepo, auditSvc)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(db, rdb))

	Register(r, cfg, Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUsersHandler(authSvc),
		Reservations: handler.NewReservationsHandler(reservationSvc),
		Invoices:     handler.NewInvoicesHandler(invoiceSvc),
		Clients:      handler.NewClientsHandler(clientSvc),
		Attractions:  handler.NewAttractionsHandler(attractionSvc),
		Audit:        handler.NewAuditHandler(auditSvc),
	})

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Register mounts the /v1 API. Every route except login/refresh sits behind
// JWTAuth; roles are declared per endpoint.
func Register(r *gin.Engine, cfg *config.Config, h Handlers) {
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleStaff)
	billing := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		res := v1.Group("/reservations", anyRole)
		{
			res.POST("", h.Reservations.Create)
			res.GET("", h.Reservations.List)
			res.GET("/calendar", h.Reservations.Calendar)
			res.POST("/check-availability", h.Reservations.CheckAvailability)
			res.GET("/:id", h.Reservations.Get)
			res.PUT("/:id", h.Reservations.Update)
			res.DELETE("/:id", h.Reservations.Cancel)
			res.PUT("/:id/status", h.Reservations.SetStatus)
		}

		inv := v1.Group("/invoices", billing)
		{
			inv.POST("", h.Invoices.Create)
			inv.GET("", h.Invoices.List)
			inv.GET("/:id", h.Invoices.Get)
			inv.GET("/:id/pdf", h.Invoices.PDF)
			inv.PUT("/:id", h.Invoices.Update)
			inv.DELETE("/:id", adminOnly, h.Invoices.Delete)
		}

		// Catalog: everyone reads, admin and manager write
		v1.GET("/clients", anyRole, h.Clients.List)
		v1.GET("/clients/:id", anyRole, h.Clients.Get)
		clients := v1.Group("/clients", billing)
		{
			clients.POST("", h.Clients.Create)
			clients.PUT("/:id", h.Clients.Update)
			clients.DELETE("/:id", h.Clients.Delete)
		}

		v1.GET("/attractions", anyRole, h.Attractions.List)
		v1.GET("/attractions/:id", anyRole, h.Attractions.Get)
		attractions := v1.Group("/attractions", billing)
		{
			attractions.POST("", h.Attractions.Create)
			attractions.PUT("/:id", h.Attractions.Update)
			attractions.DELETE("/:id", h.Attractions.Deactivate)
		}

		users := v1.Group("/users", adminOnly)
		{
			users.POST("", h.Users.Create)
			users.GET("", h.Users.List)
		}

		v1.GET("/audit-logs", adminOnly, h.Audit.List)
	}
}
