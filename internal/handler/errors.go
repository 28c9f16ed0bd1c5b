package handler

import (
	"errors"
	"net/http"

	"workshop/internal/model"
	"workshop/internal/service"
	"workshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrConfirmationRequired):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAlreadyPaid), errors.Is(err, model.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrLinkUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	_ = c.Error(err)
	c.JSON(code, response.Error(code, err.Error()))
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}
