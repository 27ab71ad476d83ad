package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/iksnae/chatdesk/internal"
	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		internal.LogError("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, ErrorBody{Error: detail})
	}
	if werr != nil {
		internal.LogWarn("Failed to write error response: %v", werr)
	}
}

func classify(err error) (int, ErrorDetail) {
	var verr *internal.ValidationError
	var nf *internal.NotFoundError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, ErrorDetail{Code: "validation_failed", Message: verr.Error(), Field: verr.Field}
	case errors.As(err, &nf):
		return http.StatusNotFound, ErrorDetail{Code: "not_found", Message: nf.Error()}
	case errors.Is(err, internal.ErrDispatcherClosed):
		return http.StatusServiceUnavailable, ErrorDetail{Code: "unavailable", Message: err.Error()}
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		return he.Code, ErrorDetail{Code: codeFor(he.Code), Message: msg}
	default:
		return http.StatusInternalServerError, ErrorDetail{Code: "internal", Message: "internal server error"}
	}
}

func codeFor(status int) string {
	if status == http.StatusTooManyRequests {
		return "rate_limited"
	}
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
