package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jn-uniformes/taller-api/internal/dto"
	"github.com/jn-uniformes/taller-api/internal/models"
	"github.com/jn-uniformes/taller-api/internal/repository"
	appErrors "github.com/jn-uniformes/taller-api/pkg/errors"
)

const (
	manualDateLayout = "2006-01-02"
	manualTimeLayout = "15:04"
)

type timerStore interface {
	Get(ctx context.Context, repositionID string, area models.Area) (*models.Timer, error)
	ListByReposition(ctx context.Context, repositionID string) ([]models.Timer, error)
	Start(ctx context.Context, repositionID string, area models.Area, userID string, now time.Time, entry *models.HistoryEntry) (*models.Timer, error)
	Stop(ctx context.Context, repositionID string, area models.Area, now time.Time, entry *models.HistoryEntry) (*models.Timer, error)
	SetManual(ctx context.Context, params repository.ManualParams, entry *models.HistoryEntry) error
}

// TimerService records working time per (reposition, area): a live
// start/stop pair, or a manually entered interval in the business timezone.
// Manual intervals that end before they start are read as crossing midnight.
type TimerService struct {
	timers      timerStore
	repositions transferRepositionStore
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
	location    *time.Location
	now         func() time.Time
}

// TimerOption customises the service.
type TimerOption func(*TimerService)

// WithTimerLogger overrides the default no-op logger.
func WithTimerLogger(logger *zap.Logger) TimerOption {
	return func(s *TimerService) { s.logger = logger }
}

// WithTimerClock overrides the time source, mainly for tests.
func WithTimerClock(now func() time.Time) TimerOption {
	return func(s *TimerService) { s.now = now }
}

// WithTimerLocation sets the business timezone for manual intervals.
func WithTimerLocation(loc *time.Location) TimerOption {
	return func(s *TimerService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTimerMetrics wires the workflow counters.
func WithTimerMetrics(m *MetricsService) TimerOption {
	return func(s *TimerService) { s.metrics = m }
}

// NewTimerService constructs the service.
func NewTimerService(timers timerStore, repositions transferRepositionStore, opts ...TimerOption) *TimerService {
	s := &TimerService{
		timers:      timers,
		repositions: repositions,
		validate:    validator.New(),
		logger:      zap.NewNop(),
		location:    time.UTC,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a live timer for the actor's area on the reposition.
func (s *TimerService) Start(ctx context.Context, actor Actor, repositionID string) (*models.Timer, error) {
	if err := s.authorize(ctx, actor, repositionID); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: repositionID,
		Action:       models.HistoryActionTimerStarted,
		Description:  fmt.Sprintf("Timer started by %s (%s)", actor.Name, actor.Area),
		UserID:       actor.UserID,
		FromArea:     &actor.Area,
		CreatedAt:    now,
	}
	timer, err := s.timers.Start(ctx, repositionID, actor.Area, actor.UserID, now, entry)
	if err != nil {
		if errors.Is(err, repository.ErrTimerAlreadyRunning) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a timer is already running for this area")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start timer")
	}
	s.metrics.TimerStarted()
	return timer, nil
}

// Stop closes the running timer of the actor's area and records the
// elapsed minutes.
func (s *TimerService) Stop(ctx context.Context, actor Actor, repositionID string) (*models.Timer, error) {
	if err := s.authorize(ctx, actor, repositionID); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: repositionID,
		Action:       models.HistoryActionTimerStopped,
		Description:  fmt.Sprintf("Timer stopped by %s (%s)", actor.Name, actor.Area),
		UserID:       actor.UserID,
		FromArea:     &actor.Area,
		CreatedAt:    now,
	}
	timer, err := s.timers.Stop(ctx, repositionID, actor.Area, now, entry)
	if err != nil {
		if errors.Is(err, repository.ErrTimerNotRunning) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "no timer is running for this area")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timer exists for this area")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stop timer")
	}
	s.metrics.TimerStopped()
	return timer, nil
}

// SetManual backfills the actor's area interval. An end time at or before
// the start time with no later end date means the shift crossed midnight.
func (s *TimerService) SetManual(ctx context.Context, actor Actor, repositionID string, req dto.ManualTimerRequest) (*models.Timer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := s.authorize(ctx, actor, repositionID); err != nil {
		return nil, err
	}

	elapsed, err := s.manualElapsed(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := &models.HistoryEntry{
		RepositionID: repositionID,
		Action:       models.HistoryActionManualTimeSet,
		Description: fmt.Sprintf("Manual time %s-%s (%s) set by %s (%s)",
			req.StartTime, req.EndTime, repository.FormatElapsed(elapsed), actor.Name, actor.Area),
		UserID:    actor.UserID,
		FromArea:  &actor.Area,
		CreatedAt: now,
	}
	params := repository.ManualParams{
		RepositionID:   repositionID,
		Area:           actor.Area,
		UserID:         actor.UserID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Date:           req.StartDate,
		ElapsedMinutes: elapsed,
		Now:            now,
	}
	if err := s.timers.SetManual(ctx, params, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save manual time")
	}

	timer, err := s.timers.Get(ctx, repositionID, actor.Area)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timer")
	}
	return timer, nil
}

// Get returns the actor's area timer for the reposition, or nil when no
// time has been logged yet.
func (s *TimerService) Get(ctx context.Context, actor Actor, repositionID string) (*models.Timer, error) {
	timer, err := s.timers.Get(ctx, repositionID, actor.Area)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timer")
	}
	return timer, nil
}

// ListByReposition returns every area's logged time on the reposition.
func (s *TimerService) ListByReposition(ctx context.Context, repositionID string) ([]models.Timer, error) {
	timers, err := s.timers.ListByReposition(ctx, repositionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timers")
	}
	return timers, nil
}

// authorize checks that the actor's area holds an approved reposition.
func (s *TimerService) authorize(ctx context.Context, actor Actor, repositionID string) error {
	rep, err := s.repositions.GetByID(ctx, repositionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reposition not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reposition")
	}
	if rep.Status != models.StatusAprobado {
		return appErrors.Clone(appErrors.ErrInvalidState, "time can only be logged on approved repositions")
	}
	if actor.Area != rep.CurrentArea {
		return appErrors.Clone(appErrors.ErrForbidden, "only the area holding the reposition can log time")
	}
	// The requesting area works its first pass without a timer; it logs time
	// only after the piece comes back through an accepted transfer.
	if actor.Area == rep.SolicitanteArea && !rep.HasReturnedToCreator {
		return appErrors.Clone(appErrors.ErrForbidden, "the requesting area logs time only after the reposition returns to it")
	}
	return nil
}

// manualElapsed computes the interval length in minutes in the business
// timezone. When no end date is given and the end is at or before the
// start, the interval is assumed to cross midnight into the next day.
func (s *TimerService) manualElapsed(req dto.ManualTimerRequest) (int, error) {
	start, err := time.ParseInLocation(manualDateLayout+" "+manualTimeLayout, req.StartDate+" "+req.StartTime, s.location)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "start must be a valid date and HH:MM time")
	}

	endDate := req.EndDate
	if endDate == "" {
		endDate = req.StartDate
	}
	end, err := time.ParseInLocation(manualDateLayout+" "+manualTimeLayout, endDate+" "+req.EndTime, s.location)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end must be a valid date and HH:MM time")
	}
	if req.EndDate == "" && !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	if !end.After(start) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}

	elapsed := int(end.Sub(start).Minutes())
	if elapsed <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "interval must be at least one minute")
	}
	return elapsed, nil
}
