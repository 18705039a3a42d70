package httpserver

import (
	"net/http"

	"cinerate/errs"

	"github.com/labstack/echo/v4"
)

func (s *Server) RegisterAdminSyncRoutes(g *echo.Group) {
	g.POST("/admin/sync", s.handleTriggerSync, requireAdmin)
	g.GET("/admin/sync", s.handleSyncStatus, requireAdmin)
}

// handleTriggerSync godoc
// @Summary Trigger TMDB Sync
// @Description Start a sync run in the background
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 202 {object} APISuccessResponse
// @Failure 409 {object} APIErrorResponse
// @Failure 501 {object} APIErrorResponse
// @Router /api/admin/sync [post]
func (s *Server) handleTriggerSync(c echo.Context) error {
	if s.SyncJob == nil {
		return errs.Errorf(errs.ENOTIMPLEMENTED, "sync is not configured")
	}

	runID, err := s.SyncJob.Trigger()
	if err != nil {
		return err
	}
	s.Logger.Infow("sync triggered", "run_id", runID, "request_id", c.Response().Header().Get(echo.HeaderXRequestID))
	return writeSuccess(c, http.StatusAccepted, map[string]string{
		"run_id": runID,
	})
}

// handleSyncStatus godoc
// @Summary TMDB Sync Status
// @Description Whether a run is in progress and the report of the last finished run
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APISuccessResponse
// @Failure 501 {object} APIErrorResponse
// @Router /api/admin/sync [get]
func (s *Server) handleSyncStatus(c echo.Context) error {
	if s.SyncJob == nil {
		return errs.Errorf(errs.ENOTIMPLEMENTED, "sync is not configured")
	}

	status := map[string]interface{}{
		"running": s.SyncJob.Running(),
	}
	if report, ok := s.SyncJob.LastReport(); ok {
		status["last_run"] = report
	}
	return writeSuccess(c, http.StatusOK, status)
}
