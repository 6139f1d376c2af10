package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/internship-market/internal/ai"
	"github.com/shinyyama/internship-market/internal/archive"
	"github.com/shinyyama/internship-market/internal/auth"
	"github.com/shinyyama/internship-market/internal/cache"
	"github.com/shinyyama/internship-market/internal/config"
	"github.com/shinyyama/internship-market/internal/handler"
	appmw "github.com/shinyyama/internship-market/internal/middleware"
	"github.com/shinyyama/internship-market/internal/reqctx"
	"github.com/shinyyama/internship-market/internal/repository"
	"github.com/shinyyama/internship-market/internal/service"
	"github.com/shinyyama/internship-market/internal/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options carries the optional collaborators; nil fields disable the feature.
// Without a Verifier, employees authenticate with tokens from the issuer.
type Options struct {
	Cache    cache.Cacher
	Advisor  ai.OfferAdvisor
	Verifier appmw.TokenVerifier
	SHA      string
	Build    string
}

type Server struct {
	e               *echo.Echo
	log             *zap.Logger
	productRepo     repository.ProductRepository
	negotiationRepo repository.NegotiationRepository
	userRepo        repository.UserRepository
	eventRepo       repository.NegotiationEventRepository
	history         service.NegotiationHistoryService
	dbReady         atomic.Bool
}

// New builds the HTTP surface. Repositories start without a database; call SetDB once it is connected.
func New(cfg *config.Config, log *zap.Logger, issuer *auth.TokenIssuer, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(accessLog(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin,
	}))

	s := &Server{
		e:               e,
		log:             log,
		productRepo:     repository.NewProductRepository(nil),
		negotiationRepo: repository.NewNegotiationRepository(nil),
		userRepo:        repository.NewUserRepository(nil),
		eventRepo:       repository.NewNegotiationEventRepository(nil),
	}

	names := service.NewProductNameResolver(s.productRepo, opts.Cache, cfg.ProductCacheTTL, log)
	productSvc := service.NewProductService(s.productRepo, names)
	s.history = service.NewNegotiationHistoryService(s.eventRepo, log)
	negotiationSvc := service.NewNegotiationService(s.negotiationRepo, s.productRepo, names, token.NewGenerator(), s.history, log)
	userSvc := service.NewUserService(s.userRepo, issuer)
	var adviceSvc service.OfferAdviceService
	if opts.Advisor != nil {
		adviceSvc = service.NewOfferAdviceService(s.negotiationRepo, s.productRepo, opts.Advisor)
	}

	productHandler := handler.NewProductHandler(productSvc, log)
	negotiationHandler := handler.NewNegotiationHandler(negotiationSvc, s.history, adviceSvc, log)
	userHandler := handler.NewUserHandler(userSvc, log)
	verifier := opts.Verifier
	if verifier == nil {
		verifier = appmw.NewJWTVerifier(issuer)
	}
	authMw := appmw.NewAuthMiddleware(verifier)
	public := appmw.PublicRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst)

	e.GET("/healthz", func(c echo.Context) error {
		db := "pending"
		if s.dbReady.Load() {
			db = "ready"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"db":         db,
			"git_sha":    opts.SHA,
			"build_time": opts.Build,
		})
	})

	api := e.Group("/api")
	api.POST("/users/register", userHandler.Register)
	api.POST("/users/login", userHandler.Login)

	api.GET("/products", productHandler.List)
	api.GET("/products/:id", productHandler.Get)
	api.POST("/products", productHandler.Create, authMw.RequireAuth)
	api.PUT("/products/:id", productHandler.Update, authMw.RequireAuth)

	api.POST("/negotiations", negotiationHandler.Create, public)
	api.GET("/negotiations/token/:token", negotiationHandler.GetByToken, public)
	api.PUT("/negotiations/token/:token/offer", negotiationHandler.SendNewOffer, public)

	api.GET("/negotiations", negotiationHandler.List, authMw.RequireAuth)
	api.GET("/negotiations/:id", negotiationHandler.Get, authMw.RequireAuth)
	api.PUT("/negotiations/:id/response", negotiationHandler.Respond, authMw.RequireAuth)
	api.GET("/negotiations/:id/history", negotiationHandler.History, authMw.RequireAuth)
	if adviceSvc != nil {
		api.GET("/negotiations/:id/advice", negotiationHandler.Advice, authMw.RequireAuth)
	}

	return s
}

// NewSweeper returns the expiration sweeper over the same store as the HTTP surface.
func (s *Server) NewSweeper(cfg service.ExpirationConfig, archiver archive.Archiver) (service.ExpirationService, error) {
	return service.NewExpirationService(s.negotiationRepo, s.history, archiver, cfg, s.log)
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) SetDB(db *gorm.DB) {
	s.productRepo.SetDB(db)
	s.negotiationRepo.SetDB(db)
	s.userRepo.SetDB(db)
	s.eventRepo.SetDB(db)
	s.dbReady.Store(db != nil)
}

func allowOrigin(origin string) (bool, error) {
	low := strings.ToLower(origin)
	if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
		strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
		return true, nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false, nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, nil
	}
	return strings.HasSuffix(u.Hostname(), "vercel.app"), nil
}

// requestID tags every request with an id and stores it on the request context for logging.
func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			ctx := reqctx.WithRequestID(req.Context(), id)
			if reqctx.Actor(ctx) == "" {
				ctx = reqctx.WithActor(ctx, "customer")
			}
			c.SetRequest(req.WithContext(ctx))
		},
	})
}

func accessLog(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("rid", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
