package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"cardmass/domain"
)

const (
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal"
)

var errUnauthorized = &domain.Error{Code: codeUnauthorized, Message: "missing or invalid credentials"}

func statusFor(code string) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case codeUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError renders err as {code, message}. Errors that are not domain
// errors are logged and hidden behind a generic internal error.
func writeError(c echo.Context, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return c.JSON(statusFor(de.Code), de)
	}
	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, &domain.Error{Code: codeInternal, Message: "internal error"})
}

// errorStage names the metrics stage for a handler error.
func errorStage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "storage"
}
