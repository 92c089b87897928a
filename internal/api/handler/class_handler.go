package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/tazhate/classsync/internal/api/response"
	"github.com/tazhate/classsync/internal/domain"
)

const (
	defaultNextCount = 4
	maxNextCount     = 52
)

// ClassHandler serves timetable extraction and the saved schedule
type ClassHandler struct {
	classSvc       ClassService
	maxUploadBytes int64
	now            func() time.Time
}

func NewClassHandler(classSvc ClassService, maxUploadBytes int64, now func() time.Time) *ClassHandler {
	return &ClassHandler{classSvc: classSvc, maxUploadBytes: maxUploadBytes, now: now}
}

type saveScheduleRequest struct {
	Classes []*domain.ClassRecord `json:"classes" binding:"required"`
}

// Extract reads an uploaded timetable photo and returns the classes for
// review. Nothing is saved.
// POST /api/v1/timetables/extract (multipart field "image")
func (h *ClassHandler) Extract(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(c, err)
			return
		}
		response.BadRequest(c, "image file is required")
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "cannot read image")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, "cannot read image")
		return
	}
	if len(data) == 0 {
		response.BadRequest(c, "image is empty")
		return
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		response.BadRequest(c, fmt.Sprintf("unsupported file type %s", mt.String()))
		return
	}

	classes, err := h.classSvc.Extract(c.Request.Context(), data, mt.String())
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, classes)
}

// SaveSchedule stores the reviewed classes
// POST /api/v1/classes
func (h *ClassHandler) SaveSchedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req saveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.classSvc.SaveSchedule(c.Request.Context(), userID, req.Classes)
	if err != nil {
		handleError(c, err)
		return
	}

	if len(result.Saved) == 0 {
		response.OK(c, result)
		return
	}
	response.Created(c, result)
}

// ListClasses GET /api/v1/classes
func (h *ClassHandler) ListClasses(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classes, err := h.classSvc.List(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	if classes == nil {
		classes = []*domain.ClassRecord{}
	}
	response.OK(c, classes)
}

// TodayClasses GET /api/v1/classes/today
func (h *ClassHandler) TodayClasses(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	classes, err := h.classSvc.Today(c.Request.Context(), userID, h.now())
	if err != nil {
		handleError(c, err)
		return
	}
	if classes == nil {
		classes = []*domain.ClassRecord{}
	}
	response.OK(c, classes)
}

// NextOccurrence previews the event a class would produce and its next
// starts.
// GET /api/v1/classes/:id/next?count=4
func (h *ClassHandler) NextOccurrence(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	count := defaultNextCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxNextCount {
			response.BadRequest(c, fmt.Sprintf("count must be between 1 and %d", maxNextCount))
			return
		}
		count = n
	}

	next, err := h.classSvc.Next(c.Request.Context(), userID, c.Param("id"), h.now(), count)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, next)
}

// DeleteClass DELETE /api/v1/classes/:id
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, nil)
}

// ResetSchedule deletes every class of the caller
// DELETE /api/v1/classes
func (h *ClassHandler) ResetSchedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	n, err := h.classSvc.Reset(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

// ReminderOptions lists the reminder offsets a class may use
// GET /api/v1/reminder-options
func (h *ClassHandler) ReminderOptions(c *gin.Context) {
	response.OK(c, domain.ReminderOptions)
}
