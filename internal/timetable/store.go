package timetable

import (
	"errors"
	"fmt"
	"sort"

	"github.com/uniplan/timetable-api/internal/models"
)

// Sentinel errors surfaced by the store and the engine. Services map them
// onto the HTTP error taxonomy.
var (
	ErrNotFound   = errors.New("timetable: not found")
	ErrValidation = errors.New("timetable: validation failed")
	ErrBusy       = errors.New("timetable: engine busy")
)

// Store holds the canonical in-memory entity sets. Identifiers are assigned
// from a single monotonically increasing sequence and never reused.
//
// The store is a plain data structure: synchronization and the event
// insert/remove discipline are owned by the Engine, which keeps the conflict
// index and the event set in lockstep.
type Store struct {
	seq int64

	persons map[int64]models.Person
	users   map[int64]models.User
	groups  map[int64]models.EduGroup
	rooms   map[int64]models.Room
	courses map[int64]models.Course
	events  map[int64]models.Event

	// Reverse lookup sets replace the legacy ORM backrefs: the child owns
	// the foreign key, the parent side is derived here.
	usersByPerson   map[int64]map[int64]struct{}
	coursesByPerson map[int64]map[int64]struct{}
	coursesByGroup  map[int64]map[int64]struct{}
	eventsByCourse  map[int64]map[int64]struct{}
	eventsByRoom    map[int64]map[int64]struct{}
}

// NewStore returns an empty entity store.
func NewStore() *Store {
	return &Store{
		persons:         make(map[int64]models.Person),
		users:           make(map[int64]models.User),
		groups:          make(map[int64]models.EduGroup),
		rooms:           make(map[int64]models.Room),
		courses:         make(map[int64]models.Course),
		events:          make(map[int64]models.Event),
		usersByPerson:   make(map[int64]map[int64]struct{}),
		coursesByPerson: make(map[int64]map[int64]struct{}),
		coursesByGroup:  make(map[int64]map[int64]struct{}),
		eventsByCourse:  make(map[int64]map[int64]struct{}),
		eventsByRoom:    make(map[int64]map[int64]struct{}),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func addRef(index map[int64]map[int64]struct{}, parent, child int64) {
	if index[parent] == nil {
		index[parent] = make(map[int64]struct{})
	}
	index[parent][child] = struct{}{}
}

func dropRef(index map[int64]map[int64]struct{}, parent, child int64) {
	if set, ok := index[parent]; ok {
		delete(set, child)
		if len(set) == 0 {
			delete(index, parent)
		}
	}
}

// --- Person ---

// CreatePerson assigns an id and stores the person.
func (s *Store) CreatePerson(p models.Person) (models.Person, error) {
	if err := validatePerson(p); err != nil {
		return models.Person{}, err
	}
	p.ID = s.nextID()
	s.persons[p.ID] = p
	return p, nil
}

// Person returns a person by id.
func (s *Store) Person(id int64) (models.Person, error) {
	p, ok := s.persons[id]
	if !ok {
		return models.Person{}, fmt.Errorf("person %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// Persons lists all persons ordered by id.
func (s *Store) Persons() []models.Person {
	out := make([]models.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdatePerson replaces the stored person with the same id.
func (s *Store) UpdatePerson(p models.Person) error {
	if _, ok := s.persons[p.ID]; !ok {
		return fmt.Errorf("person %d: %w", p.ID, ErrNotFound)
	}
	if err := validatePerson(p); err != nil {
		return err
	}
	s.persons[p.ID] = p
	return nil
}

// DeletePerson removes a person unless user accounts or courses still
// reference it.
func (s *Store) DeletePerson(id int64) error {
	if _, ok := s.persons[id]; !ok {
		return fmt.Errorf("person %d: %w", id, ErrNotFound)
	}
	if n := len(s.usersByPerson[id]); n > 0 {
		return &models.IntegrityError{Kind: "Person", ID: id, DependentKind: "User", Count: n}
	}
	if n := len(s.coursesByPerson[id]); n > 0 {
		return &models.IntegrityError{Kind: "Person", ID: id, DependentKind: "Course", Count: n}
	}
	delete(s.persons, id)
	return nil
}

// --- User ---

// CreateUser assigns an id and stores the account. The referenced person
// must exist.
func (s *Store) CreateUser(u models.User) (models.User, error) {
	if err := s.validateUser(u); err != nil {
		return models.User{}, err
	}
	u.ID = s.nextID()
	s.users[u.ID] = u
	addRef(s.usersByPerson, u.PersonID, u.ID)
	return u, nil
}

// User returns an account by id.
func (s *Store) User(id int64) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

// Users lists all accounts ordered by id.
func (s *Store) Users() []models.User {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateUser replaces the stored account with the same id.
func (s *Store) UpdateUser(u models.User) error {
	prev, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	if err := s.validateUser(u); err != nil {
		return err
	}
	if prev.PersonID != u.PersonID {
		dropRef(s.usersByPerson, prev.PersonID, u.ID)
		addRef(s.usersByPerson, u.PersonID, u.ID)
	}
	s.users[u.ID] = u
	return nil
}

// DeleteUser removes an account. Accounts have no dependents.
func (s *Store) DeleteUser(id int64) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	dropRef(s.usersByPerson, u.PersonID, id)
	delete(s.users, id)
	return nil
}

// --- EduGroup ---

// CreateGroup assigns an id and stores the group.
func (s *Store) CreateGroup(g models.EduGroup) (models.EduGroup, error) {
	if err := validateGroup(g); err != nil {
		return models.EduGroup{}, err
	}
	g.ID = s.nextID()
	s.groups[g.ID] = g
	return g, nil
}

// Group returns a group by id.
func (s *Store) Group(id int64) (models.EduGroup, error) {
	g, ok := s.groups[id]
	if !ok {
		return models.EduGroup{}, fmt.Errorf("edu group %d: %w", id, ErrNotFound)
	}
	return g, nil
}

// Groups lists all groups ordered by id.
func (s *Store) Groups() []models.EduGroup {
	out := make([]models.EduGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateGroup replaces the stored group with the same id.
func (s *Store) UpdateGroup(g models.EduGroup) error {
	if _, ok := s.groups[g.ID]; !ok {
		return fmt.Errorf("edu group %d: %w", g.ID, ErrNotFound)
	}
	if err := validateGroup(g); err != nil {
		return err
	}
	s.groups[g.ID] = g
	return nil
}

// DeleteGroup removes a group unless courses still reference it.
func (s *Store) DeleteGroup(id int64) error {
	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("edu group %d: %w", id, ErrNotFound)
	}
	if n := len(s.coursesByGroup[id]); n > 0 {
		return &models.IntegrityError{Kind: "EduGroup", ID: id, DependentKind: "Course", Count: n}
	}
	delete(s.groups, id)
	return nil
}

// --- Room ---

// CreateRoom assigns an id and stores the room.
func (s *Store) CreateRoom(r models.Room) (models.Room, error) {
	if err := validateRoom(r); err != nil {
		return models.Room{}, err
	}
	r.ID = s.nextID()
	s.rooms[r.ID] = r
	return r, nil
}

// Room returns a room by id.
func (s *Store) Room(id int64) (models.Room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return models.Room{}, fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	return r, nil
}

// Rooms lists all rooms ordered by id.
func (s *Store) Rooms() []models.Room {
	out := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateRoom replaces the stored room with the same id.
func (s *Store) UpdateRoom(r models.Room) error {
	if _, ok := s.rooms[r.ID]; !ok {
		return fmt.Errorf("room %d: %w", r.ID, ErrNotFound)
	}
	if err := validateRoom(r); err != nil {
		return err
	}
	s.rooms[r.ID] = r
	return nil
}

// DeleteRoom removes a room unless events still reference it.
func (s *Store) DeleteRoom(id int64) error {
	if _, ok := s.rooms[id]; !ok {
		return fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	if n := len(s.eventsByRoom[id]); n > 0 {
		return &models.IntegrityError{Kind: "Room", ID: id, DependentKind: "Event", Count: n}
	}
	delete(s.rooms, id)
	return nil
}

// --- Course ---

// CreateCourse assigns an id and stores the course. The group, and the
// teacher when set, must exist and the date window must be ordered.
func (s *Store) CreateCourse(c models.Course) (models.Course, error) {
	if err := s.validateCourse(c); err != nil {
		return models.Course{}, err
	}
	c.ID = s.nextID()
	s.courses[c.ID] = c
	addRef(s.coursesByGroup, c.GroupID, c.ID)
	if c.PersonID != nil {
		addRef(s.coursesByPerson, *c.PersonID, c.ID)
	}
	return c, nil
}

// Course returns a course by id.
func (s *Store) Course(id int64) (models.Course, error) {
	c, ok := s.courses[id]
	if !ok {
		return models.Course{}, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// Courses lists all courses ordered by id.
func (s *Store) Courses() []models.Course {
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// updateCourse replaces the stored course and fixes reverse references. The
// engine is responsible for reindexing events when teacher or group change.
func (s *Store) updateCourse(c models.Course) error {
	prev, ok := s.courses[c.ID]
	if !ok {
		return fmt.Errorf("course %d: %w", c.ID, ErrNotFound)
	}
	if err := s.validateCourse(c); err != nil {
		return err
	}
	if prev.GroupID != c.GroupID {
		dropRef(s.coursesByGroup, prev.GroupID, c.ID)
		addRef(s.coursesByGroup, c.GroupID, c.ID)
	}
	if prevPID, newPID := prev.PersonID, c.PersonID; !int64PtrEqual(prevPID, newPID) {
		if prevPID != nil {
			dropRef(s.coursesByPerson, *prevPID, c.ID)
		}
		if newPID != nil {
			addRef(s.coursesByPerson, *newPID, c.ID)
		}
	}
	s.courses[c.ID] = c
	return nil
}

// DeleteCourse removes a course unless events still reference it.
func (s *Store) DeleteCourse(id int64) error {
	c, ok := s.courses[id]
	if !ok {
		return fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	if n := len(s.eventsByCourse[id]); n > 0 {
		return &models.IntegrityError{Kind: "Course", ID: id, DependentKind: "Event", Count: n}
	}
	dropRef(s.coursesByGroup, c.GroupID, id)
	if c.PersonID != nil {
		dropRef(s.coursesByPerson, *c.PersonID, id)
	}
	delete(s.courses, id)
	return nil
}

// --- Event ---

// Event returns a committed event by id.
func (s *Store) Event(id int64) (models.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return models.Event{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return ev, nil
}

// Events lists all committed events ordered by id.
func (s *Store) Events() []models.Event {
	out := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// eventIDsOfCourse returns ids of the committed events owned by a course.
func (s *Store) eventIDsOfCourse(courseID int64) []int64 {
	ids := make([]int64, 0, len(s.eventsByCourse[courseID]))
	for id := range s.eventsByCourse[courseID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// insertEvent assigns an id and stores a committed event. Only the engine
// calls this, paired with a conflict index insert.
func (s *Store) insertEvent(ev models.Event) (models.Event, error) {
	if err := s.validateEvent(ev); err != nil {
		return models.Event{}, err
	}
	ev.ID = s.nextID()
	ev.Status = models.EventCommitted
	s.events[ev.ID] = ev
	addRef(s.eventsByRoom, ev.RoomID, ev.ID)
	if ev.CourseID != nil {
		addRef(s.eventsByCourse, *ev.CourseID, ev.ID)
	}
	return ev, nil
}

// updateEvent replaces a committed event, fixing reverse references. Only
// the engine calls this, paired with index remove/insert.
func (s *Store) updateEvent(ev models.Event) error {
	prev, ok := s.events[ev.ID]
	if !ok {
		return fmt.Errorf("event %d: %w", ev.ID, ErrNotFound)
	}
	if err := s.validateEvent(ev); err != nil {
		return err
	}
	if prev.RoomID != ev.RoomID {
		dropRef(s.eventsByRoom, prev.RoomID, ev.ID)
		addRef(s.eventsByRoom, ev.RoomID, ev.ID)
	}
	if !int64PtrEqual(prev.CourseID, ev.CourseID) {
		if prev.CourseID != nil {
			dropRef(s.eventsByCourse, *prev.CourseID, ev.ID)
		}
		if ev.CourseID != nil {
			addRef(s.eventsByCourse, *ev.CourseID, ev.ID)
		}
	}
	s.events[ev.ID] = ev
	return nil
}

// removeEvent deletes a committed event. Only the engine calls this, paired
// with a conflict index remove.
func (s *Store) removeEvent(id int64) error {
	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	dropRef(s.eventsByRoom, ev.RoomID, id)
	if ev.CourseID != nil {
		dropRef(s.eventsByCourse, *ev.CourseID, id)
	}
	delete(s.events, id)
	return nil
}

// --- Validation ---

func validatePerson(p models.Person) error {
	if p.Name == "" || p.Surname == "" {
		return fmt.Errorf("person requires name and surname: %w", ErrValidation)
	}
	return nil
}

func (s *Store) validateUser(u models.User) error {
	if u.Logins == "" {
		return fmt.Errorf("user requires logins: %w", ErrValidation)
	}
	if _, ok := s.persons[u.PersonID]; !ok {
		return fmt.Errorf("user references unknown person %d: %w", u.PersonID, ErrValidation)
	}
	return nil
}

func validateGroup(g models.EduGroup) error {
	if g.Name == "" {
		return fmt.Errorf("edu group requires a name: %w", ErrValidation)
	}
	if g.Year <= 0 {
		return fmt.Errorf("edu group requires an admission year: %w", ErrValidation)
	}
	if !g.Degree.Valid() {
		return fmt.Errorf("edu group degree %q is unknown: %w", g.Degree, ErrValidation)
	}
	if g.Students < 0 {
		return fmt.Errorf("edu group headcount must not be negative: %w", ErrValidation)
	}
	return nil
}

func validateRoom(r models.Room) error {
	if r.Name == "" || r.Building == "" {
		return fmt.Errorf("room requires name and building: %w", ErrValidation)
	}
	if r.Capacity != nil && *r.Capacity <= 0 {
		return fmt.Errorf("room capacity must be positive when set: %w", ErrValidation)
	}
	return nil
}

func (s *Store) validateCourse(c models.Course) error {
	if c.Code == "" || c.Name == "" {
		return fmt.Errorf("course requires code and name: %w", ErrValidation)
	}
	if c.Credits < 0 {
		return fmt.Errorf("course credits must not be negative: %w", ErrValidation)
	}
	for _, control := range c.Controls {
		if !control.Valid() {
			return fmt.Errorf("course control form %q is unknown: %w", control, ErrValidation)
		}
	}
	if c.End.Before(c.Begin) {
		return fmt.Errorf("course window end precedes begin: %w", ErrValidation)
	}
	if _, ok := s.groups[c.GroupID]; !ok {
		return fmt.Errorf("course references unknown edu group %d: %w", c.GroupID, ErrValidation)
	}
	if c.PersonID != nil {
		if _, ok := s.persons[*c.PersonID]; !ok {
			return fmt.Errorf("course references unknown person %d: %w", *c.PersonID, ErrValidation)
		}
	}
	return nil
}

func (s *Store) validateEvent(ev models.Event) error {
	if ev.Name == "" {
		return fmt.Errorf("event requires a name: %w", ErrValidation)
	}
	if !ev.End.After(ev.Begin) {
		return fmt.Errorf("event end must be after begin: %w", ErrValidation)
	}
	if !ev.Form.Valid() {
		return fmt.Errorf("event form %q is unknown: %w", ev.Form, ErrValidation)
	}
	if _, ok := s.rooms[ev.RoomID]; !ok {
		return fmt.Errorf("event references unknown room %d: %w", ev.RoomID, ErrValidation)
	}
	if ev.CourseID != nil {
		if _, ok := s.courses[*ev.CourseID]; !ok {
			return fmt.Errorf("event references unknown course %d: %w", *ev.CourseID, ErrValidation)
		}
	}
	return nil
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
