package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/internal/timetable"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
)

// placementProposal keeps an advisory draft until commit or expiry.
type placementProposal struct {
	ProposalID  string
	Draft       timetable.EventDraft
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]placementProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]placementProposal),
	}
}

func (s *proposalStore) Save(proposal placementProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (placementProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return placementProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return placementProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// PlacementConfig governs the placement workflow.
type PlacementConfig struct {
	ProposalTTL time.Duration
}

// PlacementService drives the propose, commit, cancel and reschedule
// lifecycle around the engine. Propose is advisory and open to any
// authenticated caller; the mutating calls require the admin grant.
type PlacementService struct {
	engine    *timetable.Engine
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	proposals *proposalStore
}

// NewPlacementService wires the placement workflow dependencies.
func NewPlacementService(engine *timetable.Engine, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg PlacementConfig) *PlacementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &PlacementService{
		engine:    engine,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		proposals: newProposalStore(cfg.ProposalTTL),
	}
}

// Propose asks the engine for the earliest feasible slot and stores the
// answer as a proposal the caller can commit later. The answer may be stale
// by commit time; the commit runs the full check again.
func (s *PlacementService) Propose(ctx context.Context, req dto.ProposePlacementRequest) (*dto.PlacementResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}

	result, err := s.engine.Propose(timetable.PlacementRequest{
		CourseID:       req.CourseID,
		RoomCandidates: req.RoomCandidates,
		WindowBegin:    req.WindowBegin,
		WindowEnd:      req.WindowEnd,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
		Form:           models.EventForm(req.Form),
		Name:           req.Name,
	})
	if err != nil {
		return nil, mapEngineError(err)
	}

	resp := &dto.PlacementResponse{Reports: result.Reports}
	if result.Placed != nil {
		proposal := placementProposal{
			ProposalID:  uuid.NewString(),
			Draft:       *result.Placed,
			RequestedAt: time.Now().UTC(),
		}
		s.proposals.Save(proposal)
		resp.ProposalID = proposal.ProposalID
		resp.Placed = result.Placed
		s.metrics.RecordPlacement("propose", "placed")
		return resp, nil
	}

	s.metrics.RecordPlacement("propose", "no_slot")
	for _, report := range result.Reports {
		s.metrics.RecordConflicts(report.Conflicts)
	}
	return resp, nil
}

// Commit places a stored proposal or an explicit draft into the timetable.
func (s *PlacementService) Commit(ctx context.Context, actor *models.Actor, req dto.CommitPlacementRequest) (models.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Event{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Event{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commit payload")
	}

	var draft timetable.EventDraft
	switch {
	case req.ProposalID != "" && req.Draft != nil:
		return models.Event{}, appErrors.Clone(appErrors.ErrValidation, "provide either a proposal id or a draft, not both")
	case req.ProposalID != "":
		proposal, ok := s.proposals.Get(req.ProposalID)
		if !ok {
			return models.Event{}, appErrors.Clone(appErrors.ErrNotFound, "proposal expired or unknown")
		}
		draft = proposal.Draft
	case req.Draft != nil:
		draft = timetable.EventDraft{
			CourseID: req.Draft.CourseID,
			RoomID:   req.Draft.RoomID,
			Begin:    req.Draft.Begin,
			End:      req.Draft.End,
			Name:     req.Draft.Name,
			Form:     models.EventForm(req.Draft.Form),
			Notes:    req.Draft.Notes,
			Status:   models.EventProposed,
		}
	default:
		return models.Event{}, appErrors.Clone(appErrors.ErrValidation, "provide a proposal id or a draft")
	}

	event, err := s.engine.Commit(ctx, draft)
	if err != nil {
		s.recordFailure("commit", err)
		return models.Event{}, mapEngineError(err)
	}

	if req.ProposalID != "" {
		s.proposals.Delete(req.ProposalID)
	}
	s.metrics.RecordPlacement("commit", "committed")
	return event, nil
}

// Cancel removes a committed event. Cancelling twice reports not found.
func (s *PlacementService) Cancel(ctx context.Context, actor *models.Actor, eventID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.engine.Cancel(ctx, eventID); err != nil {
		s.recordFailure("cancel", err)
		return mapEngineError(err)
	}
	s.metrics.RecordPlacement("cancel", "cancelled")
	return nil
}

// Reschedule moves a committed event to a new interval and room. On a
// conflict the original placement stays fully intact.
func (s *PlacementService) Reschedule(ctx context.Context, actor *models.Actor, eventID int64, req dto.RescheduleRequest) (models.Event, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Event{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Event{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}

	event, err := s.engine.Reschedule(ctx, eventID, req.Begin, req.End, req.RoomID)
	if err != nil {
		s.recordFailure("reschedule", err)
		return models.Event{}, mapEngineError(err)
	}
	s.metrics.RecordPlacement("reschedule", "rescheduled")
	return event, nil
}

// GetEvent returns a committed event by id.
func (s *PlacementService) GetEvent(id int64) (models.Event, error) {
	event, err := s.engine.Event(id)
	if err != nil {
		return models.Event{}, mapEngineError(err)
	}
	return event, nil
}

// ListEvents lists all committed events.
func (s *PlacementService) ListEvents() []models.Event {
	return s.engine.Events()
}

func (s *PlacementService) recordFailure(operation string, err error) {
	var conflictErr *models.ConflictError
	switch {
	case errors.Is(err, timetable.ErrBusy):
		s.metrics.RecordBusy()
		s.metrics.RecordPlacement(operation, "busy")
	case errors.As(err, &conflictErr):
		s.metrics.RecordConflicts(conflictErr.Conflicts)
		s.metrics.RecordPlacement(operation, "conflict")
	default:
		s.metrics.RecordPlacement(operation, "error")
	}
}
