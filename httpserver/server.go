package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cinerate/auth"
	"cinerate/errs"
	"cinerate/movie"
	"cinerate/pkg/config"
	"cinerate/pkg/jwt"
	"cinerate/pkg/logger"
	"cinerate/pkg/sentry"
	"cinerate/rating"
	"cinerate/syncjob"
	"cinerate/user"

	sentryecho "github.com/getsentry/sentry-go/echo"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const claimsContextKey = "claims"

// SyncJob is the background TMDB synchronization exposed to admins.
type SyncJob interface {
	Trigger() (string, error)
	Running() bool
	LastReport() (syncjob.Report, bool)
}

type Server struct {
	// Router is the Echo router instance
	Router *echo.Echo

	// Addr represents the address the server will listen on
	Addr string

	// Allowed origins for CORS
	AllowOrigins []string

	// Logger receives request logs and unexpected errors
	Logger *zap.SugaredLogger

	// Gatherer backs the /metrics endpoint
	Gatherer prometheus.Gatherer

	UserService   user.Service
	AuthService   auth.Service
	MovieService  movie.Service
	RatingService rating.Service
	SyncJob       SyncJob

	// HealthChecks are run by /healthcheck, keyed by dependency name
	HealthChecks map[string]HealthCheck

	tokens *jwt.JWTProvider
}

func Default(cfg *config.Config) *Server {
	s := Server{
		Router:       echo.New(),
		Addr:         ":8080",
		AllowOrigins: []string{"*"},
		Logger:       logger.NOOPLogger,
		Gatherer:     prometheus.DefaultGatherer,
		tokens:       jwt.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL),
	}
	if cfg.Port != 0 {
		s.Addr = fmt.Sprintf(":%d", cfg.Port)
	}
	if origins := parseOrigins(cfg.AllowOrigins); origins != nil {
		s.AllowOrigins = origins
	}

	s.Router.HideBanner = true
	s.Router.Validator = NewValidator()
	s.Router.HTTPErrorHandler = s.httpErrorHandler
	s.RegisterGlobalMiddlewares()
	api := s.Router.Group("/api")

	// PUBLIC
	public := api.Group("")
	s.RegisterPublicRoutes(public)

	// PRIVATE
	private := api.Group("", s.authenticate())
	s.RegisterPrivateRoutes(private)

	// ADMIN: the role is checked per route so unknown paths stay 404
	s.RegisterAdminRoutes(private)

	s.RegisterHealthRoutes()
	s.RegisterMetricsRoutes()
	s.RegisterSwaggerRoutes()
	return &s
}

// parseOrigins splits a comma separated ALLOW_ORIGINS value. "-" disables CORS.
func parseOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "-" {
		return []string{}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (s *Server) RegisterGlobalMiddlewares() {
	s.Router.Use(middleware.Recover())
	s.Router.Use(middleware.Secure())
	s.Router.Use(middleware.RequestID())
	s.Router.Use(s.requestLogger())
	s.Router.Use(middleware.Gzip())
	s.Router.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	s.Router.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	// CORS
	if len(s.AllowOrigins) > 0 {
		s.Router.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.AllowOrigins,
		}))
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
			}
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				s.Logger.Errorw("request failed", append(fields, "error", v.Error)...)
				return nil
			}
			s.Logger.Infow("request", fields...)
			return nil
		},
	})
}

func (s *Server) Start() error {
	return s.Router.Start(s.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Router.Shutdown(ctx)
}

// authenticate validates the bearer access token and stores its claims on the context.
func (s *Server) authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			return s.tokens.ParseAccessToken(token)
		},
		ErrorHandler: func(_ echo.Context, _ error) error {
			return errs.Errorf(errs.EUNAUTHORIZED, "invalid or expired token")
		},
	})
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := currentClaims(c)
		if err != nil {
			return err
		}
		if !claims.IsAdmin() {
			return errs.Errorf(errs.EFORBIDDEN, "admin role required")
		}
		return next(c)
	}
}

func currentClaims(c echo.Context) (*jwt.Claims, error) {
	claims, ok := c.Get(claimsContextKey).(*jwt.Claims)
	if !ok || claims.UserID() == "" {
		return nil, errs.Errorf(errs.EUNAUTHORIZED, "missing credentials")
	}
	return claims, nil
}

func currentUserID(c echo.Context) (string, error) {
	claims, err := currentClaims(c)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

// httpErrorHandler maps application errors to appropriate HTTP status codes
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(he.Code)
		}
	} else if errors.Is(err, auth.ErrAccountLocked) {
		code = http.StatusTooManyRequests
		message = err.Error()
	} else {
		// Map application error codes to HTTP status codes
		switch errs.ErrorCode(err) {
		case errs.EINVALID:
			code = http.StatusBadRequest
			message = errs.ErrorMessage(err)
		case errs.ENOTFOUND:
			code = http.StatusNotFound
			message = errs.ErrorMessage(err)
		case errs.ECONFLICT:
			code = http.StatusConflict
			message = errs.ErrorMessage(err)
		case errs.EUNAUTHORIZED:
			code = http.StatusUnauthorized
			message = errs.ErrorMessage(err)
		case errs.EFORBIDDEN:
			code = http.StatusForbidden
			message = errs.ErrorMessage(err)
		case errs.ENOTIMPLEMENTED:
			code = http.StatusNotImplemented
			message = errs.ErrorMessage(err)
		case errs.EINTERNAL:
			code = http.StatusInternalServerError
			message = "Internal server error"
		}
	}

	// Don't write response if already committed
	if c.Response().Committed {
		return
	}
	if code >= http.StatusInternalServerError {
		s.Logger.Errorw("unhandled error", "request_id", c.Response().Header().Get(echo.HeaderXRequestID), "error", err)
		sentry.WithContext(c).
			WithTags(map[string]string{"route": c.Path(), "error_code": errs.ErrorCode(err)}).
			Error(err)
	}
	if err := writeError(c, code, message, "", err); err != nil {
		s.Logger.Errorw("write error response", "error", err)
	}
}

func (s *Server) RegisterPublicRoutes(g *echo.Group) {
	s.RegisterAuthRoutes(g)
	s.RegisterPublicMovieRoutes(g)
	s.RegisterPublicRatingRoutes(g)
}

func (s *Server) RegisterPrivateRoutes(g *echo.Group) {
	s.RegisterPrivateUserRoutes(g)
	s.RegisterPrivateMovieRoutes(g)
	s.RegisterPrivateRatingRoutes(g)
}

func (s *Server) RegisterAdminRoutes(g *echo.Group) {
	s.RegisterAdminUserRoutes(g)
	s.RegisterAdminMovieRoutes(g)
	s.RegisterAdminSyncRoutes(g)
}
