package extractor

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/projector"
)

// ToClass converts one raw record into a class with canonical day and
// defaults applied. The error explains why the record is unusable.
func (r RawClass) ToClass() (*domain.ClassRecord, error) {
	name := strings.TrimSpace(r.Title())
	if name == "" {
		return nil, fmt.Errorf("missing class name")
	}

	day, start, end := r.Day, r.StartTime, r.EndTime
	if day == "" && r.Time != "" {
		var err error
		day, start, end, err = splitCompactTime(r.Time)
		if err != nil {
			return nil, err
		}
	}

	c := &domain.ClassRecord{
		Name:      name,
		Day:       strings.TrimSpace(day),
		StartTime: strings.TrimSpace(start),
		EndTime:   strings.TrimSpace(end),
		Location:  strings.TrimSpace(r.Location),
		Professor: strings.TrimSpace(r.Professor),
	}

	wd, err := projector.ValidateRecord(c)
	if err != nil {
		return nil, err
	}
	c.Day = wd.String()
	c.ApplyDefaults()
	return c, nil
}

// splitCompactTime parses "MON 10:00-11:30"
func splitCompactTime(s string) (day, start, end string, err error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("malformed time %q", s)
	}
	start, end, ok := strings.Cut(parts[1], "-")
	if !ok || start == "" || end == "" {
		return "", "", "", fmt.Errorf("malformed time range %q", parts[1])
	}
	return parts[0], start, end, nil
}

// Normalize converts the extraction output into reviewable classes. Records
// that cannot be used are logged and skipped; the rest go through.
func Normalize(raw []RawClass, log *zap.Logger) []*domain.ClassRecord {
	classes := make([]*domain.ClassRecord, 0, len(raw))
	for i, r := range raw {
		c, err := r.ToClass()
		if err != nil {
			log.Warn("skipping invalid class data",
				zap.Int("index", i),
				zap.String("name", r.Title()),
				zap.Error(err),
			)
			continue
		}
		classes = append(classes, c)
	}
	return classes
}
