package httpserver

import (
	"context"
	"net/http"

	"cinerate/movie"
	"cinerate/pkg/paging"

	"github.com/labstack/echo/v4"
)

func (s *Server) RegisterPrivateUserRoutes(g *echo.Group) {
	g.GET("/users/me", s.handleGetMe)
	g.PATCH("/users/me", s.handleUpdateMe)
	g.DELETE("/users/me", s.handleDeleteMe)
	g.PATCH("/users/me/password", s.handleChangePassword)

	g.GET("/users/me/watchlist", s.handleWatchlist)
	g.POST("/users/me/watchlist/:movieId", s.handleAddToWatchlist)
	g.DELETE("/users/me/watchlist/:movieId", s.handleRemoveFromWatchlist)
	g.GET("/users/me/favorites", s.handleFavorites)
	g.POST("/users/me/favorites/:movieId", s.handleAddFavorite)
	g.DELETE("/users/me/favorites/:movieId", s.handleRemoveFavorite)
}

func (s *Server) RegisterAdminUserRoutes(g *echo.Group) {
	g.GET("/users", s.handleListUsers, requireAdmin)
}

// handleGetMe godoc
// @Summary Current User
// @Description Get the authenticated user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APISuccessResponse{result=user.User}
// @Failure 401 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/users/me [get]
func (s *Server) handleGetMe(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	u, err := s.UserService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, u)
}

// handleUpdateMe godoc
// @Summary Update Profile
// @Description Change the authenticated user's username or email
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} APISuccessResponse{result=user.User}
// @Failure 400 {object} APIErrorResponse
// @Failure 409 {object} APIErrorResponse
// @Router /api/users/me [patch]
func (s *Server) handleUpdateMe(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := s.UserService.UpdateProfile(c.Request().Context(), userID, req.ToPatch())
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, u)
}

// handleDeleteMe godoc
// @Summary Delete Account
// @Description Delete the authenticated user with their ratings and lists
// @Tags users
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} APIErrorResponse
// @Router /api/users/me [delete]
func (s *Server) handleDeleteMe(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := s.UserService.DeleteUser(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleChangePassword godoc
// @Summary Change Password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body ChangePasswordRequest true "Passwords"
// @Success 200 {object} APISuccessResponse
// @Failure 400 {object} APIErrorResponse
// @Failure 401 {object} APIErrorResponse
// @Router /api/users/me/password [patch]
func (s *Server) handleChangePassword(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.UserService.ChangePassword(c.Request().Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, map[string]string{
		"status": "updated",
	})
}

// handleWatchlist godoc
// @Summary Watchlist
// @Description List movies on the authenticated user's watchlist, most recently added first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=paging.Page[movie.Movie]}
// @Router /api/users/me/watchlist [get]
func (s *Server) handleWatchlist(c echo.Context) error {
	return s.listMovies(c, s.UserService.Watchlist)
}

// handleAddToWatchlist godoc
// @Summary Add To Watchlist
// @Tags users
// @Security BearerAuth
// @Param movieId path int true "Movie ID"
// @Success 204
// @Failure 404 {object} APIErrorResponse
// @Router /api/users/me/watchlist/{movieId} [post]
func (s *Server) handleAddToWatchlist(c echo.Context) error {
	return s.changeList(c, s.UserService.AddToWatchlist)
}

// handleRemoveFromWatchlist godoc
// @Summary Remove From Watchlist
// @Tags users
// @Security BearerAuth
// @Param movieId path int true "Movie ID"
// @Success 204
// @Failure 404 {object} APIErrorResponse
// @Router /api/users/me/watchlist/{movieId} [delete]
func (s *Server) handleRemoveFromWatchlist(c echo.Context) error {
	return s.changeList(c, s.UserService.RemoveFromWatchlist)
}

// handleFavorites godoc
// @Summary Favorites
// @Description List the authenticated user's favorite movies, most recently added first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=paging.Page[movie.Movie]}
// @Router /api/users/me/favorites [get]
func (s *Server) handleFavorites(c echo.Context) error {
	return s.listMovies(c, s.UserService.Favorites)
}

// handleAddFavorite godoc
// @Summary Add Favorite
// @Tags users
// @Security BearerAuth
// @Param movieId path int true "Movie ID"
// @Success 204
// @Failure 404 {object} APIErrorResponse
// @Router /api/users/me/favorites/{movieId} [post]
func (s *Server) handleAddFavorite(c echo.Context) error {
	return s.changeList(c, s.UserService.AddFavorite)
}

// handleRemoveFavorite godoc
// @Summary Remove Favorite
// @Tags users
// @Security BearerAuth
// @Param movieId path int true "Movie ID"
// @Success 204
// @Failure 404 {object} APIErrorResponse
// @Router /api/users/me/favorites/{movieId} [delete]
func (s *Server) handleRemoveFavorite(c echo.Context) error {
	return s.changeList(c, s.UserService.RemoveFavorite)
}

func (s *Server) listMovies(c echo.Context, list func(ctx context.Context, userID string, p paging.Params) (paging.Page[movie.Movie], error)) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var q PageQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := list(c.Request().Context(), userID, q.Params())
	if err != nil {
		return err
	}
	return writePagedList(c, http.StatusOK, page)
}

func (s *Server) changeList(c echo.Context, change func(ctx context.Context, userID string, movieID int64) error) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	movieID, err := pathID(c, "movieId")
	if err != nil {
		return err
	}

	if err := change(c.Request().Context(), userID, movieID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleListUsers godoc
// @Summary List Users
// @Description Page through all users (admin only)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=paging.Page[user.User]}
// @Failure 403 {object} APIErrorResponse
// @Router /api/users [get]
func (s *Server) handleListUsers(c echo.Context) error {
	var q PageQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	users, err := s.UserService.ListUsers(c.Request().Context(), q.Params())
	if err != nil {
		return err
	}
	return writePagedList(c, http.StatusOK, users)
}
