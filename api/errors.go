package api

import (
	"errors"
	"net/http"

	"streambet/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrRateLimited, http.StatusTooManyRequests},

	{service.ErrInvalidTelegramPayload, http.StatusUnauthorized},
	{service.ErrUserBanned, http.StatusForbidden},
	{service.ErrNotWhitelisted, http.StatusForbidden},
	{service.ErrAdminOnly, http.StatusForbidden},
	{service.ErrUserMuted, http.StatusForbidden},

	{service.ErrMarketNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrWalletNotFound, http.StatusNotFound},
	{service.ErrMessageNotFound, http.StatusNotFound},

	{service.ErrMarketFinished, http.StatusConflict},
	{service.ErrInvalidStatus, http.StatusConflict},

	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrBettingClosed, http.StatusBadRequest},
	{service.ErrInvalidOutcome, http.StatusBadRequest},
	{service.ErrDuplicateWager, http.StatusBadRequest},
	{service.ErrInsufficientBalance, http.StatusBadRequest},
	{service.ErrTooFewOutcomes, http.StatusBadRequest},
	{service.ErrInvalidMarketFields, http.StatusBadRequest},
	{service.ErrEmptyMessage, http.StatusBadRequest},
	{service.ErrMessageTooLong, http.StatusBadRequest},
}

// statusFor maps a service error to its HTTP status; unknown errors are 500
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error body. Internal errors are logged
// and not exposed.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"error":  err,
		}).Error("Request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
