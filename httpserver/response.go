package httpserver

import (
	"fmt"
	"strconv"

	"cinerate/errs"
	"cinerate/pkg/paging"

	"github.com/labstack/echo/v4"
)

const (
	successMessage   = "OK"
	defaultErrorCode = "100500"
)

type APIResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
	Info    string      `json:"info,omitempty"`
}

// APISuccessResponse documents the success envelope for swagger.
type APISuccessResponse struct {
	Code    string      `json:"code" example:"200"`
	Message string      `json:"message" example:"OK"`
	Result  interface{} `json:"result,omitempty"`
}

// APIErrorResponse documents the error envelope for swagger.
type APIErrorResponse struct {
	Code    string `json:"code" example:"100404"`
	Message string `json:"message" example:"movie: not found"`
	Info    string `json:"info,omitempty"`
}

func writeSuccess(c echo.Context, status int, result interface{}) error {
	return c.JSON(status, APIResponse{
		Code:    strconv.Itoa(status),
		Message: successMessage,
		Result:  result,
	})
}

func writeList(c echo.Context, status int, data interface{}) error {
	return writeSuccess(c, status, map[string]interface{}{
		"data": data,
	})
}

func writePagedList[T any](c echo.Context, status int, page paging.Page[T]) error {
	return writeSuccess(c, status, page)
}

func writeError(c echo.Context, status int, message, info string, err error) error {
	return c.JSON(status, APIResponse{
		Code:    errorCode(err, status),
		Message: message,
		Info:    info,
	})
}

func errorCode(err error, status int) string {
	switch errs.ErrorCode(err) {
	case errs.EINVALID:
		return "100010"
	case errs.ENOTFOUND:
		return "100404"
	case errs.ECONFLICT:
		return "100409"
	case errs.EUNAUTHORIZED:
		return "100401"
	case errs.EFORBIDDEN:
		return "100403"
	case errs.ENOTIMPLEMENTED:
		return "100501"
	}

	if status != 0 {
		return fmt.Sprintf("100%03d", status)
	}
	return defaultErrorCode
}
