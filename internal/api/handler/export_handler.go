package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	icsContentType  = "text/calendar; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExportHandler struct {
	exportSvc ExportService
	now       func() time.Time
}

func NewExportHandler(exportSvc ExportService, now func() time.Time) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, now: now}
}

// ExportICS GET /api/v1/export/ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.exportSvc.ICS(c.Request.Context(), userID, h.now())
	if err != nil {
		handleError(c, err)
		return
	}
	attachment(c, "classsync.ics", icsContentType, data)
}

// ExportXLSX GET /api/v1/export/xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.exportSvc.XLSX(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	attachment(c, "classsync.xlsx", xlsxContentType, data)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
