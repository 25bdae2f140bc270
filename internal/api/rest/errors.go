package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/biorbit/biorbit/internal/api/shared/errors"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, apierrors.NewValidationError(message))
}

// respondUnauthorized responds with an unauthorized error
func respondUnauthorized(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError(message, details...))
}

// respondInternalError responds with an internal server error and logs it
func respondInternalError(c *gin.Context, err error, message string) {
	logger.Error(err, zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondContractError maps a registry revert reason onto an HTTP status and
// the shared error envelope
func respondContractError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInsufficientDonation),
		errors.Is(err, domain.ErrNameMismatch),
		errors.Is(err, domain.ErrMonitoringSeries),
		errors.Is(err, domain.ErrWrongPayment),
		errors.Is(err, domain.ErrZeroValue),
		errors.Is(err, domain.ErrSameValue):
		c.JSON(http.StatusBadRequest, apierrors.NewValidationError(err.Error()))

	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotTokenOwner),
		errors.Is(err, domain.ErrNotApproved):
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError("Forbidden", err.Error()))

	case errors.Is(err, domain.ErrAreaNotFound),
		errors.Is(err, domain.ErrImageNotFound),
		errors.Is(err, domain.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("Not found", err.Error()))

	case errors.Is(err, domain.ErrNameTaken),
		errors.Is(err, domain.ErrAlreadySold),
		errors.Is(err, domain.ErrMonitoringRecorded),
		errors.Is(err, domain.ErrNoBalance),
		errors.Is(err, domain.ErrRoleNotGranted):
		c.JSON(http.StatusConflict, apierrors.NewConflictError("Conflict", err.Error()))

	case errors.Is(err, domain.ErrPageOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(err.Error()))

	case errors.Is(err, domain.ErrReentrantCall):
		c.JSON(http.StatusLocked, apierrors.NewLockedError("Operation in progress", err.Error()))

	default:
		respondInternalError(c, err, "Operation failed")
	}
}
