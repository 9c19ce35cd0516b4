package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/internal/timetable"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
	"github.com/uniplan/timetable-api/pkg/export"
)

// ExportResult is a rendered download.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders weekly schedules into downloadable CSV or PDF files.
type ExportService struct {
	engine    *timetable.Engine
	schedules *ScheduleService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(engine *timetable.Engine, schedules *ScheduleService, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		engine:    engine,
		schedules: schedules,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ExportWeek renders one week of events along a dimension into a file.
func (s *ExportService) ExportWeek(ctx context.Context, q dto.ExportQuery) (*ExportResult, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}

	events, err := s.schedules.WeeklySchedule(ctx, q.ScheduleQuery)
	if err != nil {
		return nil, err
	}

	data := s.dataset(events)
	day := q.WeekStart.Format("2006-01-02")
	filename := fmt.Sprintf("schedule_%s_%d_%s", strings.ToLower(q.Dimension), q.Key, day)

	switch q.Format {
	case "pdf":
		title := fmt.Sprintf("%s %d schedule, week of %s", q.Dimension, q.Key, day)
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: filename + ".pdf"}, nil
	default:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: filename + ".csv"}, nil
	}
}

func (s *ExportService) dataset(events []models.Event) export.Dataset {
	headers := []string{"Begin", "End", "Name", "Form", "Room", "Course", "Teacher", "Group"}
	rows := make([]map[string]string, 0, len(events))
	for _, ev := range events {
		row := map[string]string{
			"Begin": ev.Begin.Format("2006-01-02 15:04"),
			"End":   ev.End.Format("2006-01-02 15:04"),
			"Name":  ev.Name,
			"Form":  string(ev.Form),
		}
		if room, err := s.engine.Room(ev.RoomID); err == nil {
			row["Room"] = room.Name
		}
		if ev.CourseID != nil {
			if course, err := s.engine.Course(*ev.CourseID); err == nil {
				row["Course"] = course.Code
				if course.PersonID != nil {
					if person, err := s.engine.Person(*course.PersonID); err == nil {
						row["Teacher"] = person.FullName()
					}
				}
				if group, err := s.engine.Group(course.GroupID); err == nil {
					row["Group"] = group.Name
				}
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
