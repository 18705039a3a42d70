package httpserver

import (
	"net/http"
	"strconv"

	"cinerate/errs"
	"cinerate/rating"

	"github.com/labstack/echo/v4"
)

func (s *Server) RegisterPublicMovieRoutes(g *echo.Group) {
	g.GET("/movies", s.handleListMovies)
	g.GET("/movies/search", s.handleSearchMovies)
	g.GET("/movies/:id", s.handleGetMovie)
	g.GET("/movies/:id/stats", s.handleMovieStats)
	g.GET("/movies/:id/ratings", s.handleMovieRatings)
}

func (s *Server) RegisterPrivateMovieRoutes(g *echo.Group) {
	g.PUT("/movies/:id/rating", s.handleRateMovie)
	g.GET("/movies/:id/rating", s.handleGetMyRating)
	g.GET("/tmdb/search", s.handleSearchTMDB)
	g.GET("/tmdb/genres", s.handleTMDBGenres)
}

func (s *Server) RegisterAdminMovieRoutes(g *echo.Group) {
	g.POST("/movies", s.handleCreateMovie, requireAdmin)
	g.PATCH("/movies/:id", s.handleUpdateMovie, requireAdmin)
	g.DELETE("/movies/:id", s.handleDeleteMovie, requireAdmin)
	g.POST("/movies/tmdb/:tmdbId", s.handleImportMovie, requireAdmin)
}

// handleListMovies godoc
// @Summary List Movies
// @Description Filter, sort and page through the catalogue
// @Tags movies
// @Produce json
// @Param q query string false "Full-text query"
// @Param genre query string false "Genre name, case-insensitive"
// @Param year query int false "Release year"
// @Param min_rating query number false "Minimum average user rating (0-10)"
// @Param sort query string false "popularity|release_date|title|average_rating|created_at"
// @Param order query string false "asc|desc"
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=paging.Page[movie.Movie]}
// @Failure 400 {object} APIErrorResponse
// @Router /api/movies [get]
func (s *Server) handleListMovies(c echo.Context) error {
	var q MovieListQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := s.MovieService.List(c.Request().Context(), q.ToFilter())
	if err != nil {
		return err
	}
	return writePagedList(c, http.StatusOK, page)
}

// handleSearchMovies godoc
// @Summary Search Movies
// @Description Full-text search movies by title, overview and genres
// @Tags movies
// @Produce json
// @Param q query string true "Search query"
// @Param limit query int false "Max results (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=[]movie.Movie}
// @Failure 400 {object} APIErrorResponse
// @Failure 500 {object} APIErrorResponse
// @Router /api/movies/search [get]
func (s *Server) handleSearchMovies(c echo.Context) error {
	var q SearchQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	results, err := s.MovieService.Search(c.Request().Context(), q.Query, q.Limit)
	if err != nil {
		return err
	}
	return writeList(c, http.StatusOK, results)
}

// handleGetMovie godoc
// @Summary Get Movie
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} APISuccessResponse{result=movie.Movie}
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id} [get]
func (s *Server) handleGetMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	m, err := s.MovieService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, m)
}

// handleMovieStats godoc
// @Summary Movie Rating Stats
// @Description Average, count and score histogram of a movie's ratings
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} APISuccessResponse{result=rating.Stats}
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id}/stats [get]
func (s *Server) handleMovieStats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	stats, err := s.RatingService.MovieStats(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, stats)
}

// handleMovieRatings godoc
// @Summary Movie Ratings
// @Description Page through a movie's ratings, newest first
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Param page query int false "Page, default 1"
// @Param limit query int false "Page size (1-100), default 20"
// @Success 200 {object} APISuccessResponse{result=paging.Page[rating.Rating]}
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id}/ratings [get]
func (s *Server) handleMovieRatings(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var q PageQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := s.RatingService.ListByMovie(c.Request().Context(), id, q.Params())
	if err != nil {
		return err
	}
	return writePagedList(c, http.StatusOK, page)
}

// handleRateMovie godoc
// @Summary Rate Movie
// @Description Create or replace the authenticated user's rating of a movie
// @Tags ratings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movie ID"
// @Param payload body RateMovieRequest true "Score and review"
// @Success 200 {object} APISuccessResponse{result=rating.Rating}
// @Success 201 {object} APISuccessResponse{result=rating.Rating}
// @Failure 400 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id}/rating [put]
func (s *Server) handleRateMovie(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	movieID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req RateMovieRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	r, created, err := s.RatingService.Rate(c.Request().Context(), userID, movieID, req.Score, req.Review)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return writeSuccess(c, status, r)
}

// handleGetMyRating godoc
// @Summary My Rating
// @Description Get the authenticated user's rating of a movie
// @Tags ratings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movie ID"
// @Success 200 {object} APISuccessResponse{result=rating.Rating}
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id}/rating [get]
func (s *Server) handleGetMyRating(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	movieID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	r, err := s.RatingService.UserRating(c.Request().Context(), userID, movieID)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, r)
}

// handleCreateMovie godoc
// @Summary Create Movie
// @Tags movies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body CreateMovieRequest true "Movie"
// @Success 201 {object} APISuccessResponse{result=movie.Movie}
// @Failure 400 {object} APIErrorResponse
// @Failure 403 {object} APIErrorResponse
// @Failure 409 {object} APIErrorResponse
// @Router /api/movies [post]
func (s *Server) handleCreateMovie(c echo.Context) error {
	var req CreateMovieRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	m, err := req.ToMovie()
	if err != nil {
		return err
	}

	created, err := s.MovieService.Create(c.Request().Context(), m)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusCreated, created)
}

// handleUpdateMovie godoc
// @Summary Update Movie
// @Description Partially update a movie; omitted fields are kept
// @Tags movies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Movie ID"
// @Param payload body UpdateMovieRequest true "Fields to change"
// @Success 200 {object} APISuccessResponse{result=movie.Movie}
// @Failure 400 {object} APIErrorResponse
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id} [patch]
func (s *Server) handleUpdateMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateMovieRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	patch, err := req.ToPatch()
	if err != nil {
		return err
	}

	updated, err := s.MovieService.Update(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, updated)
}

// handleDeleteMovie godoc
// @Summary Delete Movie
// @Description Delete a movie together with its ratings and list entries
// @Tags movies
// @Security BearerAuth
// @Param id path int true "Movie ID"
// @Success 204
// @Failure 404 {object} APIErrorResponse
// @Router /api/movies/{id} [delete]
func (s *Server) handleDeleteMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.MovieService.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleImportMovie godoc
// @Summary Import From TMDB
// @Description Fetch a movie from TMDB and insert or refresh it locally
// @Tags movies
// @Produce json
// @Security BearerAuth
// @Param tmdbId path int true "TMDB movie ID"
// @Success 200 {object} APISuccessResponse{result=movie.Movie}
// @Failure 404 {object} APIErrorResponse
// @Failure 501 {object} APIErrorResponse
// @Router /api/movies/tmdb/{tmdbId} [post]
func (s *Server) handleImportMovie(c echo.Context) error {
	tmdbID, err := strconv.Atoi(c.Param("tmdbId"))
	if err != nil || tmdbID <= 0 {
		return errs.Errorf(errs.EINVALID, "tmdbId must be a positive integer")
	}

	m, err := s.MovieService.ImportFromTMDB(c.Request().Context(), tmdbID)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, m)
}

// handleSearchTMDB godoc
// @Summary Search TMDB
// @Description Search the TMDB catalogue without importing
// @Tags movies
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search query"
// @Param page query int false "TMDB page, default 1"
// @Success 200 {object} APISuccessResponse{result=tmdb.MoviePage}
// @Failure 501 {object} APIErrorResponse
// @Router /api/tmdb/search [get]
func (s *Server) handleSearchTMDB(c echo.Context) error {
	var q TMDBSearchQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	if q.Page == 0 {
		q.Page = 1
	}

	page, err := s.MovieService.SearchTMDB(c.Request().Context(), q.Query, q.Page)
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, page)
}

// handleTMDBGenres godoc
// @Summary TMDB Genres
// @Description List the genres TMDB assigns to movies
// @Tags movies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APISuccessResponse{result=[]tmdb.Genre}
// @Failure 501 {object} APIErrorResponse
// @Router /api/tmdb/genres [get]
func (s *Server) handleTMDBGenres(c echo.Context) error {
	genres, err := s.MovieService.TMDBGenres(c.Request().Context())
	if err != nil {
		return err
	}
	return writeSuccess(c, http.StatusOK, genres)
}

func actorFromContext(c echo.Context) (rating.Actor, error) {
	claims, err := currentClaims(c)
	if err != nil {
		return rating.Actor{}, err
	}
	return rating.Actor{UserID: claims.UserID(), Admin: claims.IsAdmin()}, nil
}
