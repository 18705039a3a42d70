package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) RegisterPublicRatingRoutes(g *echo.Group) {
	g.GET("/ratings/:id", s.handleGetRating)
}

func (s *Server) RegisterPrivateRatingRoutes(g *echo.Group) {
	g.GET("/users/me/ratings", s.handleMyRatings)
	g.PATCH("/ratings/:id", s.handleUpdateRating)
	g.DELETE("/ratings/:id", s.handleDeleteRating)
}

// handleGetRating godoc
// @Summary Get Rating
// @Tags ratings
// @Produce json
// @Param id path int true "Rating ID"
// @Success 200 {object} APISuccessResponse{result=rating.Rating}
// @Failure 404 {object} APIErrorResponse
// @Router /api/ratings/{id} [get]
func (s *Server) handleGetRating(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	r, err := s.RatingService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, r)
}

// handleMyRatings godoc
// @Summary My Ratings
// @Description Page through the authenticated user's ratings, newest first
// @Tags ratings
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=paging.Page[rating.Rating]}
// @Router /api/users/me/ratings [get]
func (s *Server) handleMyRatings(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var q PageQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := s.RatingService.ListByUser(c.Request().Context(), userID, q.Params())
	if err != nil {
		return err
	}
	return writePagedList(c, http.StatusOK, page)
}

// handleUpdateRating godoc
// @Summary Update Rating
// @Description Change score or review of your own rating
// @Tags ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Rating ID"
// @Param payload body UpdateRatingRequest true "Score and review"
// @Success 200 {object} APISuccessResponse{result=rating.Rating}
// @Failure 400 {object} APIErrorResponse
// @Failure 403 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/ratings/{id} [patch]
func (s *Server) handleUpdateRating(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateRatingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	r, err := s.RatingService.Update(c.Request().Context(), id, actor, req.Score, req.Review)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, r)
}

// handleDeleteRating godoc
// @Summary Delete Rating
// @Description Delete a rating; allowed for its author and admins
// @Tags ratings
// @Security BearerAuth
// @Param id path int true "Rating ID"
// @Success 204
// @Failure 403 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/ratings/{id} [delete]
func (s *Server) handleDeleteRating(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := s.RatingService.Delete(c.Request().Context(), id, actor); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
