package timetable

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uniplan/timetable-api/internal/models"
)

// Config governs engine behaviour.
type Config struct {
	// LockTimeout bounds how long a mutating call waits for the writer gate
	// before failing with ErrBusy.
	LockTimeout time.Duration
}

// Engine is the timetable core: it owns the entity store and the conflict
// index and serializes every check-then-insert sequence so two concurrent
// commits cannot both pass the checker against a stale index.
//
// Writers first pass a capacity-one gate with a bounded wait, then take the
// write lock for the actual mutation. Readers take the read lock only, so
// they observe either the fully-before or the fully-after state of a commit,
// never an index with a subset of dimensions updated.
type Engine struct {
	mu          sync.RWMutex
	gate        chan struct{}
	lockTimeout time.Duration

	store   *Store
	index   *ConflictIndex
	checker *Checker
	logger  *zap.Logger

	version uint64
}

// New builds an engine with an empty store and index.
func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := NewStore()
	index := NewConflictIndex()
	return &Engine{
		gate:        make(chan struct{}, 1),
		lockTimeout: cfg.LockTimeout,
		store:       store,
		index:       index,
		checker:     NewChecker(store, index),
		logger:      logger,
	}
}

func (e *Engine) acquireGate(ctx context.Context) error {
	timer := time.NewTimer(e.lockTimeout)
	defer timer.Stop()
	select {
	case e.gate <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("writer gate not acquired within %s: %w", e.lockTimeout, ErrBusy)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) releaseGate() {
	<-e.gate
}

// Version increases on every committed mutation; read caches key on it.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// mutate runs fn inside the writer critical section.
func (e *Engine) mutate(ctx context.Context, fn func() error) error {
	if err := e.acquireGate(ctx); err != nil {
		return err
	}
	defer e.releaseGate()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	e.version++
	return nil
}

// --- Registry: persons ---

// CreatePerson stores a new person.
func (e *Engine) CreatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	var out models.Person
	err := e.mutate(ctx, func() error {
		var err error
		out, err = e.store.CreatePerson(p)
		return err
	})
	return out, err
}

// Person returns a person by id.
func (e *Engine) Person(id int64) (models.Person, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Person(id)
}

// Persons lists all persons.
func (e *Engine) Persons() []models.Person {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Persons()
}

// UpdatePerson replaces a stored person.
func (e *Engine) UpdatePerson(ctx context.Context, p models.Person) error {
	return e.mutate(ctx, func() error { return e.store.UpdatePerson(p) })
}

// DeletePerson removes a person unless accounts or courses depend on it.
func (e *Engine) DeletePerson(ctx context.Context, id int64) error {
	return e.mutate(ctx, func() error { return e.store.DeletePerson(id) })
}

// --- Registry: users ---

// CreateUser stores a new user account.
func (e *Engine) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	var out models.User
	err := e.mutate(ctx, func() error {
		var err error
		out, err = e.store.CreateUser(u)
		return err
	})
	return out, err
}

// User returns an account by id.
func (e *Engine) User(id int64) (models.User, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.User(id)
}

// Users lists all accounts.
func (e *Engine) Users() []models.User {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Users()
}

// UpdateUser replaces a stored account.
func (e *Engine) UpdateUser(ctx context.Context, u models.User) error {
	return e.mutate(ctx, func() error { return e.store.UpdateUser(u) })
}

// DeleteUser removes an account.
func (e *Engine) DeleteUser(ctx context.Context, id int64) error {
	return e.mutate(ctx, func() error { return e.store.DeleteUser(id) })
}

// --- Registry: groups ---

// CreateGroup stores a new edu group.
func (e *Engine) CreateGroup(ctx context.Context, g models.EduGroup) (models.EduGroup, error) {
	var out models.EduGroup
	err := e.mutate(ctx, func() error {
		var err error
		out, err = e.store.CreateGroup(g)
		return err
	})
	return out, err
}

// Group returns a group by id.
func (e *Engine) Group(id int64) (models.EduGroup, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Group(id)
}

// Groups lists all groups.
func (e *Engine) Groups() []models.EduGroup {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Groups()
}

// UpdateGroup replaces a stored group.
func (e *Engine) UpdateGroup(ctx context.Context, g models.EduGroup) error {
	return e.mutate(ctx, func() error { return e.store.UpdateGroup(g) })
}

// DeleteGroup removes a group unless courses depend on it.
func (e *Engine) DeleteGroup(ctx context.Context, id int64) error {
	return e.mutate(ctx, func() error { return e.store.DeleteGroup(id) })
}

// --- Registry: rooms ---

// CreateRoom stores a new room.
func (e *Engine) CreateRoom(ctx context.Context, r models.Room) (models.Room, error) {
	var out models.Room
	err := e.mutate(ctx, func() error {
		var err error
		out, err = e.store.CreateRoom(r)
		return err
	})
	return out, err
}

// Room returns a room by id.
func (e *Engine) Room(id int64) (models.Room, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Room(id)
}

// Rooms lists all rooms.
func (e *Engine) Rooms() []models.Room {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Rooms()
}

// UpdateRoom replaces a stored room.
func (e *Engine) UpdateRoom(ctx context.Context, r models.Room) error {
	return e.mutate(ctx, func() error { return e.store.UpdateRoom(r) })
}

// DeleteRoom removes a room unless events depend on it.
func (e *Engine) DeleteRoom(ctx context.Context, id int64) error {
	return e.mutate(ctx, func() error { return e.store.DeleteRoom(id) })
}

// --- Registry: courses ---

// CreateCourse stores a new course.
func (e *Engine) CreateCourse(ctx context.Context, c models.Course) (models.Course, error) {
	var out models.Course
	err := e.mutate(ctx, func() error {
		var err error
		out, err = e.store.CreateCourse(c)
		return err
	})
	return out, err
}

// Course returns a course by id.
func (e *Engine) Course(id int64) (models.Course, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Course(id)
}

// Courses lists all courses.
func (e *Engine) Courses() []models.Course {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Courses()
}

// UpdateCourse replaces a stored course. Changing the assigned teacher, the
// group, or the date window while the course owns committed events re-checks
// those events against the new keys and reindexes them atomically; on any
// collision the whole update is rejected and nothing changes.
func (e *Engine) UpdateCourse(ctx context.Context, c models.Course) error {
	return e.mutate(ctx, func() error {
		prev, err := e.store.Course(c.ID)
		if err != nil {
			return err
		}
		if err := e.store.validateCourse(c); err != nil {
			return err
		}

		teacherChanged := !int64PtrEqual(prev.PersonID, c.PersonID)
		groupChanged := prev.GroupID != c.GroupID
		windowChanged := !prev.Begin.Equal(c.Begin) || !prev.End.Equal(c.End)
		eventIDs := e.store.eventIDsOfCourse(c.ID)

		if len(eventIDs) > 0 && (teacherChanged || groupChanged || windowChanged) {
			var conflicts []models.Conflict
			for _, id := range eventIDs {
				ev, _ := e.store.Event(id)
				if teacherChanged && c.PersonID != nil {
					conflicts = append(conflicts,
						e.index.QueryOverlaps(models.DimensionTeacher, *c.PersonID, ev.Begin, ev.End)...)
				}
				if groupChanged {
					conflicts = append(conflicts,
						e.index.QueryOverlaps(models.DimensionGroup, c.GroupID, ev.Begin, ev.End)...)
				}
				if windowChanged && !c.WindowContains(ev.Begin, ev.End) {
					conflicts = append(conflicts, models.Conflict{
						Dimension: models.DimensionCourseWindow,
						EventID:   ev.ID,
						Begin:     c.Begin,
						End:       c.End.AddDate(0, 0, 1),
					})
				}
			}
			if len(conflicts) > 0 {
				return &models.ConflictError{
					Message:   fmt.Sprintf("course %d update collides with the committed timetable", c.ID),
					Conflicts: conflicts,
				}
			}
		}

		if err := e.store.updateCourse(c); err != nil {
			return err
		}
		if teacherChanged || groupChanged {
			for _, id := range eventIDs {
				ev, _ := e.store.Event(id)
				e.index.Remove(id)
				e.index.Insert(e.indexedEvent(ev))
			}
		}
		return nil
	})
}

// DeleteCourse removes a course unless events depend on it.
func (e *Engine) DeleteCourse(ctx context.Context, id int64) error {
	return e.mutate(ctx, func() error { return e.store.DeleteCourse(id) })
}

// --- Placement ---

// EventDraft is a fully specified placement candidate awaiting commit.
type EventDraft struct {
	CourseID *int64             `json:"course_id,omitempty"`
	RoomID   int64              `json:"room_id"`
	Begin    time.Time          `json:"begin"`
	End      time.Time          `json:"end"`
	Name     string             `json:"name"`
	Form     models.EventForm   `json:"form"`
	Notes    string             `json:"notes,omitempty"`
	Status   models.EventStatus `json:"status"`
}

// PlacementRequest asks for the earliest feasible slot for a course event.
// Room candidates are searched in the caller-given order; this is a greedy
// first-fit search, not global optimization.
type PlacementRequest struct {
	CourseID       int64
	RoomCandidates []int64
	WindowBegin    time.Time
	WindowEnd      time.Time
	Duration       time.Duration
	Form           models.EventForm
	Name           string
}

// RoomSearchReport summarises why one candidate room yielded no slot.
type RoomSearchReport struct {
	RoomID    int64             `json:"room_id"`
	Reason    string            `json:"reason"`
	Conflicts []models.Conflict `json:"conflicts,omitempty"`
}

// PlacementResult is either a placed draft or a per-room conflict summary.
type PlacementResult struct {
	Placed  *EventDraft        `json:"placed,omitempty"`
	Reports []RoomSearchReport `json:"reports,omitempty"`
}

// Propose searches room candidates in order for the earliest slot inside the
// window that satisfies the duration and passes the checker. It is advisory:
// it takes only a read lock and its answer may be stale by commit time.
func (e *Engine) Propose(req PlacementRequest) (PlacementResult, error) {
	if req.Duration <= 0 {
		return PlacementResult{}, fmt.Errorf("placement duration must be positive: %w", ErrValidation)
	}
	if !req.WindowEnd.After(req.WindowBegin) {
		return PlacementResult{}, fmt.Errorf("placement window end must be after begin: %w", ErrValidation)
	}
	if len(req.RoomCandidates) == 0 {
		return PlacementResult{}, fmt.Errorf("placement requires at least one room candidate: %w", ErrValidation)
	}
	if !req.Form.Valid() {
		return PlacementResult{}, fmt.Errorf("placement form %q is unknown: %w", req.Form, ErrValidation)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	course, err := e.store.Course(req.CourseID)
	if err != nil {
		return PlacementResult{}, err
	}
	group, err := e.store.Group(course.GroupID)
	if err != nil {
		return PlacementResult{}, err
	}

	name := req.Name
	if name == "" {
		name = course.Name
	}

	// Clamp the search window to the course date window up front so the
	// checker's window rule can never fire during the scan.
	searchBegin := maxTime(req.WindowBegin, course.Begin)
	searchEnd := minTime(req.WindowEnd, course.End.AddDate(0, 0, 1))

	reports := make([]RoomSearchReport, 0, len(req.RoomCandidates))
	for _, roomID := range req.RoomCandidates {
		room, err := e.store.Room(roomID)
		if err != nil {
			reports = append(reports, RoomSearchReport{RoomID: roomID, Reason: "room not found"})
			continue
		}
		if !room.Fits(group.Students) {
			reports = append(reports, RoomSearchReport{RoomID: roomID, Reason: "capacity below group headcount"})
			continue
		}
		if searchBegin.Add(req.Duration).After(searchEnd) {
			reports = append(reports, RoomSearchReport{RoomID: roomID, Reason: "window lies outside the course dates"})
			continue
		}

		draft, blocking := e.scanRoom(req, course.ID, roomID, name, searchBegin, searchEnd)
		if draft != nil {
			return PlacementResult{Placed: draft}, nil
		}
		reports = append(reports, RoomSearchReport{RoomID: roomID, Reason: "no feasible slot", Conflicts: blocking})
	}
	return PlacementResult{Reports: reports}, nil
}

// scanRoom walks the window earliest-first, jumping past the latest end of
// the conflicts blocking each attempt so every iteration makes progress.
func (e *Engine) scanRoom(req PlacementRequest, courseID, roomID int64, name string, begin, end time.Time) (*EventDraft, []models.Conflict) {
	var blocking []models.Conflict
	cursor := begin
	for !cursor.Add(req.Duration).After(end) {
		candidate := models.Event{
			Begin:    cursor,
			End:      cursor.Add(req.Duration),
			Name:     name,
			CourseID: &courseID,
			RoomID:   roomID,
			Form:     req.Form,
		}
		result := e.checker.Check(candidate, 0)
		if result.Feasible {
			return &EventDraft{
				CourseID: &courseID,
				RoomID:   roomID,
				Begin:    candidate.Begin,
				End:      candidate.End,
				Name:     name,
				Form:     req.Form,
				Status:   models.EventProposed,
			}, nil
		}
		blocking = append(blocking, result.Conflicts...)
		next := cursor
		for _, conflict := range result.Conflicts {
			if conflict.EventID != 0 && conflict.End.After(next) {
				next = conflict.End
			}
		}
		if !next.After(cursor) {
			break
		}
		cursor = next
	}
	return nil, blocking
}

// Commit validates the draft one final time inside the writer critical
// section and atomically inserts it into the store and the index. A result
// that changed since the proposal surfaces as a ConflictError carrying the
// checker's conflict list.
func (e *Engine) Commit(ctx context.Context, draft EventDraft) (models.Event, error) {
	var out models.Event
	err := e.mutate(ctx, func() error {
		candidate := models.Event{
			Begin:    draft.Begin,
			End:      draft.End,
			Name:     draft.Name,
			CourseID: draft.CourseID,
			RoomID:   draft.RoomID,
			Form:     draft.Form,
			Notes:    draft.Notes,
		}
		if err := e.store.validateEvent(candidate); err != nil {
			return err
		}
		result := e.checker.Check(candidate, 0)
		if !result.Feasible {
			return &models.ConflictError{Message: "placement is no longer feasible", Conflicts: result.Conflicts}
		}
		ev, err := e.store.insertEvent(candidate)
		if err != nil {
			return err
		}
		e.index.Insert(e.indexedEvent(ev))
		out = ev
		e.logger.Info("event committed",
			zap.Int64("event_id", ev.ID),
			zap.Int64("room_id", ev.RoomID),
			zap.Time("begin", ev.Begin),
			zap.Time("end", ev.End))
		return nil
	})
	return out, err
}

// Cancel removes a committed event from the store and the index atomically.
// Cancelling twice reports ErrNotFound the second time, never a silent no-op.
func (e *Engine) Cancel(ctx context.Context, eventID int64) error {
	return e.mutate(ctx, func() error {
		if err := e.store.removeEvent(eventID); err != nil {
			return err
		}
		e.index.Remove(eventID)
		e.logger.Info("event cancelled", zap.Int64("event_id", eventID))
		return nil
	})
}

// Reschedule moves a committed event to a new interval and room. The check
// runs before anything is touched, so a ConflictError leaves the original
// placement fully intact.
func (e *Engine) Reschedule(ctx context.Context, eventID int64, newBegin, newEnd time.Time, newRoomID int64) (models.Event, error) {
	var out models.Event
	err := e.mutate(ctx, func() error {
		ev, err := e.store.Event(eventID)
		if err != nil {
			return err
		}
		candidate := ev
		candidate.Begin = newBegin
		candidate.End = newEnd
		candidate.RoomID = newRoomID
		if err := e.store.validateEvent(candidate); err != nil {
			return err
		}
		result := e.checker.Check(candidate, eventID)
		if !result.Feasible {
			return &models.ConflictError{Message: "reschedule is not feasible", Conflicts: result.Conflicts}
		}
		e.index.Remove(eventID)
		if err := e.store.updateEvent(candidate); err != nil {
			// validateEvent passed above, so this cannot fail; restore the
			// old index entry if it somehow does.
			e.index.Insert(e.indexedEvent(ev))
			return err
		}
		e.index.Insert(e.indexedEvent(candidate))
		out = candidate
		e.logger.Info("event rescheduled",
			zap.Int64("event_id", eventID),
			zap.Int64("room_id", newRoomID),
			zap.Time("begin", newBegin),
			zap.Time("end", newEnd))
		return nil
	})
	return out, err
}

// --- Query layer ---

// Event returns a committed event by id.
func (e *Engine) Event(id int64) (models.Event, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Event(id)
}

// Events lists all committed events.
func (e *Engine) Events() []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Events()
}

// ScheduleFor returns the events sharing (dimension, key) that overlap the
// week starting at weekStart, ordered by begin then id. Unknown keys yield
// an empty slice, not an error.
func (e *Engine) ScheduleFor(dim models.Dimension, key int64, weekStart time.Time) []models.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	weekEnd := weekStart.AddDate(0, 0, 7)
	found := e.index.QueryOverlaps(dim, key, weekStart, weekEnd)
	events := make([]models.Event, 0, len(found))
	for _, conflict := range found {
		if ev, err := e.store.Event(conflict.EventID); err == nil {
			events = append(events, ev)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Begin.Equal(events[j].Begin) {
			return events[i].ID < events[j].ID
		}
		return events[i].Begin.Before(events[j].Begin)
	})
	return events
}

// Overlapping exposes raw index queries for read-side callers and tests.
func (e *Engine) Overlapping(dim models.Dimension, key int64, begin, end time.Time) []models.Conflict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.QueryOverlaps(dim, key, begin, end)
}

func (e *Engine) indexedEvent(ev models.Event) IndexedEvent {
	indexed := IndexedEvent{ID: ev.ID, Begin: ev.Begin, End: ev.End, RoomID: ev.RoomID}
	if ev.CourseID != nil {
		if course, err := e.store.Course(*ev.CourseID); err == nil {
			indexed.TeacherID = course.PersonID
			groupID := course.GroupID
			indexed.GroupID = &groupID
		}
	}
	return indexed
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
