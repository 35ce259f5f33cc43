package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/racegraph/internal/domain/aggregates"
	"github.com/yungbote/racegraph/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	RespondFieldError(c, status, code, "", err)
}

func RespondFieldError(c *gin.Context, status int, code, field string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
			Field:   field,
		},
	})
}

// RespondServiceError renders an apierr.Error or aggregate error with its mapped status.
// Anything else is a 500 with fallbackCode.
func RespondServiceError(c *gin.Context, fallbackCode string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondFieldError(c, ae.Status, ae.Code, ae.Field, ae.Err)
		return
	}
	if ae = FromAggregate(err); ae != nil {
		RespondFieldError(c, ae.Status, ae.Code, ae.Field, ae.Err)
		return
	}
	RespondError(c, http.StatusInternalServerError, fallbackCode, err)
}

// FromAggregate maps aggregate error codes to HTTP statuses. It returns nil for other errors.
func FromAggregate(err error) *apierr.Error {
	code := domainagg.CodeOf(err)
	if code == "" {
		return nil
	}
	status := http.StatusInternalServerError
	switch code {
	case domainagg.CodeValidation:
		status = http.StatusBadRequest
	case domainagg.CodeNotFound:
		status = http.StatusNotFound
	case domainagg.CodeConflict:
		status = http.StatusConflict
	case domainagg.CodePersistence:
		status = http.StatusServiceUnavailable
	}
	return apierr.New(status, string(code), err).WithField(domainagg.FieldOf(err))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
