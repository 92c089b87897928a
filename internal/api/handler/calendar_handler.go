package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tazhate/classsync/internal/api/response"
)

type CalendarHandler struct {
	calendarSvc CalendarService
	now         func() time.Time
}

func NewCalendarHandler(calendarSvc CalendarService, now func() time.Time) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc, now: now}
}

type syncRequest struct {
	ClassIDs []string `json:"class_ids"`
}

// Sync creates one weekly recurring event per class. An empty or missing
// body syncs the whole schedule. Per-class failures are reported in the
// result, not as an error status.
// POST /api/v1/calendar/sync
func (h *CalendarHandler) Sync(c *gin.Context) {
	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body")
		return
	}

	report, err := h.calendarSvc.SyncClasses(c.Request.Context(), id, req.ClassIDs, h.now())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, report)
}
