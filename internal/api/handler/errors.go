package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tazhate/classsync/internal/api/response"
	"github.com/tazhate/classsync/internal/domain"
)

// handleError maps service errors onto HTTP statuses
func handleError(c *gin.Context, err error) {
	var invalid *domain.InvalidScheduleError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &invalid):
		response.BadRequest(c, invalid.Error())
	case errors.As(err, &tooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, domain.ErrAuthExpired):
		response.Unauthorized(c, domain.ErrAuthExpired.Error())
	case errors.Is(err, domain.ErrExtraction):
		response.Error(c, http.StatusBadGateway, "could not read the timetable, please try again")
	case errors.Is(err, domain.ErrCalendarNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, domain.ErrCalendarNotConfigured.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
