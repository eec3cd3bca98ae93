package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/repository"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
	"github.com/jn-uniformes/taller-api/pkg/export"
)

type trackingTransferStore interface {
	ListByReposition(ctx context.Context, repositionID string) ([]models.Transfer, error)
}

type trackingTimerStore interface {
	ListByReposition(ctx context.Context, repositionID string) ([]models.Timer, error)
}

type trackingHistoryStore interface {
	ListByReposition(ctx context.Context, repositionID string) ([]models.HistoryEntry, error)
}

// TrackingService assembles the read model of one reposition's journey
// across the floor: per-area steps, logged minutes, handoffs and the
// history log, plus CSV/PDF renderings of it.
type TrackingService struct {
	repositions transferRepositionStore
	transfers   trackingTransferStore
	timers      trackingTimerStore
	history     trackingHistoryStore
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewTrackingService constructs the service.
func NewTrackingService(repositions transferRepositionStore, transfers trackingTransferStore, timers trackingTimerStore, history trackingHistoryStore, logger *zap.Logger) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingService{
		repositions: repositions,
		transfers:   transfers,
		timers:      timers,
		history:     history,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Get builds the tracking view for one reposition.
func (s *TrackingService) Get(ctx context.Context, repositionID string) (*dto.TrackingView, error) {
	rep, err := s.repositions.GetByID(ctx, repositionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reposition")
	}

	timers, err := s.timers.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timers")
	}
	transfers, err := s.transfers.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transfers")
	}
	history, err := s.history.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}

	steps, progress, total := assembleSteps(rep, timers)
	return &dto.TrackingView{
		Reposition:   rep,
		Steps:        steps,
		Progress:     progress,
		TotalMinutes: total,
		Transfers:    transfers,
		History:      history,
	}, nil
}

// History returns the full audit trail of one reposition.
func (s *TrackingService) History(ctx context.Context, repositionID string) ([]models.HistoryEntry, error) {
	entries, err := s.history.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return entries, nil
}

// ExportCSV renders the tracking view as a CSV document.
func (s *TrackingService) ExportCSV(ctx context.Context, repositionID string) ([]byte, string, error) {
	view, err := s.Get(ctx, repositionID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.csv.Render(trackingDataset(view))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, fmt.Sprintf("tracking-%s.csv", view.Reposition.Folio), nil
}

// ExportPDF renders the tracking view as a PDF document.
func (s *TrackingService) ExportPDF(ctx context.Context, repositionID string) ([]byte, string, error) {
	view, err := s.Get(ctx, repositionID)
	if err != nil {
		return nil, "", err
	}
	title := fmt.Sprintf("Seguimiento %s", view.Reposition.Folio)
	data, err := s.pdf.Render(trackingDataset(view), title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, fmt.Sprintf("tracking-%s.pdf", view.Reposition.Folio), nil
}

// assembleSteps derives the per-area step list: every area that logged
// time plus the current holder, ordered by the canonical production
// sequence. An area with a bounded timer counts as completed; the holder
// of a live reposition is the current step.
func assembleSteps(rep *models.Reposition, timers []models.Timer) (steps []dto.TrackingStep, progress, totalMinutes int) {
	minutesByArea := make(map[models.Area]int, len(timers))
	boundedByArea := make(map[models.Area]bool, len(timers))
	areas := make([]models.Area, 0, len(timers)+1)
	seen := make(map[models.Area]struct{}, len(timers)+1)

	for _, t := range timers {
		minutesByArea[t.Area] += t.ElapsedMinutes
		if t.Bounded() {
			boundedByArea[t.Area] = true
		}
		if _, ok := seen[t.Area]; !ok {
			seen[t.Area] = struct{}{}
			areas = append(areas, t.Area)
		}
		totalMinutes += t.ElapsedMinutes
	}
	if _, ok := seen[rep.CurrentArea]; !ok {
		areas = append(areas, rep.CurrentArea)
	}

	sort.SliceStable(areas, func(i, j int) bool {
		ri, rj := models.PipelineRank(areas[i]), models.PipelineRank(areas[j])
		if ri != rj {
			return ri < rj
		}
		return areas[i] < areas[j]
	})

	closed := rep.Status == models.StatusCompletado
	completed := 0
	steps = make([]dto.TrackingStep, 0, len(areas))
	for _, area := range areas {
		status := dto.StepPending
		switch {
		case closed || boundedByArea[area]:
			status = dto.StepCompleted
			completed++
		case area == rep.CurrentArea:
			status = dto.StepCurrent
		}
		steps = append(steps, dto.TrackingStep{
			Area:           area,
			Status:         status,
			ElapsedMinutes: minutesByArea[area],
		})
	}
	if len(steps) > 0 {
		progress = (completed*100 + len(steps)/2) / len(steps)
	}
	return steps, progress, totalMinutes
}

// trackingDataset flattens the view into the tabular form shared by the
// CSV and PDF exporters.
func trackingDataset(view *dto.TrackingView) export.Dataset {
	headers := []string{"Area", "Estado", "Minutos", "Tiempo"}
	rows := make([]map[string]string, 0, len(view.Steps)+1)
	for _, step := range view.Steps {
		rows = append(rows, map[string]string{
			"Area":    string(step.Area),
			"Estado":  string(step.Status),
			"Minutos": strconv.Itoa(step.ElapsedMinutes),
			"Tiempo":  repository.FormatElapsed(step.ElapsedMinutes),
		})
	}
	rows = append(rows, map[string]string{
		"Area":    "total",
		"Estado":  string(view.Reposition.Status),
		"Minutos": strconv.Itoa(view.TotalMinutes),
		"Tiempo":  repository.FormatElapsed(view.TotalMinutes),
	})
	return export.Dataset{Headers: headers, Rows: rows}
}
