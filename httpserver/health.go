package httpserver

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) RegisterHealthRoutes() {
	s.Router.GET("/healthcheck", s.healthCheck)
}

// healthCheck godoc
// @Summary Health Check
// @Description Check if the server and its dependencies are reachable
// @Tags health
// @Success 200 {object} APISuccessResponse{result=healthStatus}
// @Failure 503 {object} APIResponse{result=healthStatus}
// @Router /healthcheck [get]
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.HealthChecks))
	for name := range s.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	result := healthStatus{Status: "OK"}
	status := http.StatusOK
	for _, name := range names {
		if result.Checks == nil {
			result.Checks = make(map[string]string, len(names))
		}
		if err := s.HealthChecks[name](ctx); err != nil {
			s.Logger.Warnw("health check failed", "dependency", name, "error", err)
			result.Checks[name] = "DOWN"
			result.Status = "DEGRADED"
			status = http.StatusServiceUnavailable
			continue
		}
		result.Checks[name] = "OK"
	}
	if status != http.StatusOK {
		return c.JSON(status, APIResponse{
			Code:    errorCode(nil, status),
			Message: "Service unavailable",
			Result:  result,
		})
	}
	return writeSuccess(c, status, result)
}
