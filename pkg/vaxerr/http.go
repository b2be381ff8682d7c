package vaxerr

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// JSON writes a domain error as a stable machine-readable payload. Errors
// without a known kind become a 500 with the detail withheld.
func JSON(c echo.Context, err error) error {
	status := HTTPStatus(err)
	kind := KindOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		kind = "INTERNAL"
		msg = "internal server error"
	}
	return c.JSON(status, map[string]errorBody{
		"error": {Kind: kind, Message: msg},
	})
}
