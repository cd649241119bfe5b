package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/service"
)

// HandleServiceError maps a service error to an HTTP response.
func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrAuthenticationFailed) {
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	} else if errors.Is(err, service.ErrRegistrationFailed) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrUnitNotFound) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrForbidden) {
		ErrorResponse(c, http.StatusForbidden, err.Error())
	} else if errors.Is(err, service.ErrInvalidAction) || errors.Is(err, service.ErrInvalidPassword) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else {
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
