package httpserver

import (
	"strconv"

	"cinerate/errs"

	"github.com/labstack/echo/v4"
)

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Errorf(errs.EINVALID, "%s must be a positive integer", name)
	}
	return id, nil
}

// bindAndValidate binds the body, path and query params into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errs.Errorf(errs.EINVALID, "invalid request")
	}
	return c.Validate(req)
}
