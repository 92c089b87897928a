package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/clients/caldav"
	"github.com/tazhate/classsync/internal/projector"
	"github.com/tazhate/classsync/internal/storage"
)

var ErrExportGenerateFail = errors.New("failed to generate export file")

// ExportService renders the saved week as files the user can import elsewhere
type ExportService struct {
	storage  *storage.Storage
	timezone *time.Location
	logger   *zap.Logger
}

func NewExportService(s *storage.Storage, tz *time.Location, logger *zap.Logger) *ExportService {
	if tz == nil {
		tz = time.UTC
	}
	return &ExportService{storage: s, timezone: tz, logger: logger}
}

// ICS returns an iCalendar feed with one weekly event per class, projected
// from now. Classes that no longer validate are left out.
func (s *ExportService) ICS(ctx context.Context, userID string, now time.Time) ([]byte, error) {
	classes, err := s.storage.ListClasses(ctx, userID)
	if err != nil {
		return nil, err
	}

	cal := caldav.NewCalendar()
	calName := ical.NewProp("X-WR-CALNAME")
	calName.Value = "ClassSync"
	cal.Props.Set(calName)
	calTZ := ical.NewProp("X-WR-TIMEZONE")
	calTZ.Value = s.timezone.String()
	cal.Props.Set(calTZ)

	for _, c := range classes {
		d, err := projector.BuildEventDescriptor(c, now, s.timezone)
		if err != nil {
			s.logger.Warn("skipping class in ics export", zap.String("class_id", c.ID), zap.Error(err))
			continue
		}
		cal.Children = append(cal.Children, caldav.EventComponent(d, c.ID+"@classsync", now))
	}

	if len(cal.Children) == 0 {
		// an empty VCALENDAR is rejected by the encoder
		return emptyICS(), nil
	}
	caldav.AddTimezone(cal, s.timezone, now)

	data, err := caldav.SerializeCalendar(cal)
	if err != nil {
		s.logger.Error("encode ics export", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return data, nil
}

func emptyICS() []byte {
	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString(ical.PropVersion + ":2.0\r\n")
	buf.WriteString(ical.PropProductID + ":-//ClassSync//Timetable//EN\r\n")
	buf.WriteString("END:VCALENDAR\r\n")
	return buf.Bytes()
}

const weekSheet = "Week"

// XLSX returns a workbook with the week laid out one row per class
func (s *ExportService) XLSX(ctx context.Context, userID string) ([]byte, error) {
	classes, err := s.storage.ListClasses(ctx, userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(weekSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(weekSheet, "A", "A", 12)
	f.SetColWidth(weekSheet, "B", "B", 14)
	f.SetColWidth(weekSheet, "C", "C", 30)
	f.SetColWidth(weekSheet, "D", "E", 22)
	f.SetColWidth(weekSheet, "F", "F", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"Day", "Time", "Class", "Location", "Professor", "Reminder"}
	for i, h := range headers {
		f.SetCellValue(weekSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(weekSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	row := 2
	for _, c := range classes {
		f.SetCellValue(weekSheet, cell("A", row), c.Day)
		f.SetCellValue(weekSheet, cell("B", row), c.TimeRange())
		f.SetCellValue(weekSheet, cell("C", row), c.Name)
		f.SetCellValue(weekSheet, cell("D", row), c.Location)
		f.SetCellValue(weekSheet, cell("E", row), c.Professor)
		f.SetCellValue(weekSheet, cell("F", row), fmt.Sprintf("%d min", c.ReminderOffsetMinutes))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write xlsx export", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf.Bytes(), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
