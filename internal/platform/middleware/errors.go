package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/labops/labops/internal/platform/apperr"
)

// statusByKind maps every domain error kind to a stable HTTP status. The
// presentation layer keys its messaging off the machine-readable kind, not
// the status code.
var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:           http.StatusBadRequest,
	apperr.KindInvalidTransition:    http.StatusConflict,
	apperr.KindNotFound:             http.StatusNotFound,
	apperr.KindCollectorUnavailable: http.StatusConflict,
	apperr.KindInsufficientStock:    http.StatusConflict,
	apperr.KindDuplicateResult:      http.StatusConflict,
	apperr.KindIncompleteResults:    http.StatusConflict,
	apperr.KindContention:           http.StatusServiceUnavailable,
}

// ErrorHandler renders domain errors as {"kind": ..., "message": ...} with
// the status from statusByKind, leaving echo's own HTTP errors untouched.
func ErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if kind := apperr.KindOf(err); kind != "" {
			status, ok := statusByKind[kind]
			if !ok {
				status = http.StatusInternalServerError
			}
			_ = c.JSON(status, map[string]string{
				"kind":    string(kind),
				"message": err.Error(),
			})
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, map[string]interface{}{"message": he.Message})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, map[string]string{"message": "internal server error"})
	}
}
