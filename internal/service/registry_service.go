package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/internal/timetable"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
)

// RegistryService manages the master data behind the timetable: persons,
// user accounts, edu groups, rooms and courses. Reads are open; every
// mutation requires the admin grant.
type RegistryService struct {
	engine    *timetable.Engine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistryService constructs a RegistryService instance.
func NewRegistryService(engine *timetable.Engine, validate *validator.Validate, logger *zap.Logger) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{engine: engine, validator: validate, logger: logger}
}

// --- Persons ---

// CreatePerson stores a new person.
func (s *RegistryService) CreatePerson(ctx context.Context, actor *models.Actor, req dto.PersonRequest) (models.Person, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Person{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Person{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}

	person, err := s.engine.CreatePerson(ctx, personFromRequest(0, req))
	if err != nil {
		return models.Person{}, mapEngineError(err)
	}
	s.logger.Info("person created", zap.Int64("person_id", person.ID))
	return person, nil
}

// GetPerson returns a person by id.
func (s *RegistryService) GetPerson(id int64) (models.Person, error) {
	person, err := s.engine.Person(id)
	if err != nil {
		return models.Person{}, mapEngineError(err)
	}
	return person, nil
}

// ListPersons lists all persons.
func (s *RegistryService) ListPersons() []models.Person {
	return s.engine.Persons()
}

// UpdatePerson replaces a stored person.
func (s *RegistryService) UpdatePerson(ctx context.Context, actor *models.Actor, id int64, req dto.PersonRequest) (models.Person, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Person{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Person{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}

	person := personFromRequest(id, req)
	if err := s.engine.UpdatePerson(ctx, person); err != nil {
		return models.Person{}, mapEngineError(err)
	}
	return person, nil
}

// DeletePerson removes a person unless accounts or courses still reference it.
func (s *RegistryService) DeletePerson(ctx context.Context, actor *models.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.engine.DeletePerson(ctx, id); err != nil {
		return mapEngineError(err)
	}
	s.logger.Info("person deleted", zap.Int64("person_id", id))
	return nil
}

func personFromRequest(id int64, req dto.PersonRequest) models.Person {
	return models.Person{
		ID:         id,
		Name:       req.Name,
		Surname:    req.Surname,
		Patronymic: req.Patronymic,
		Maiden:     req.Maiden,
		Phones:     req.Phones,
		Notes:      req.Notes,
	}
}

// --- Users ---

// CreateUser stores a new user account.
func (s *RegistryService) CreateUser(ctx context.Context, actor *models.Actor, req dto.UserRequest) (models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return models.User{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.User{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.engine.CreateUser(ctx, userFromRequest(0, req))
	if err != nil {
		return models.User{}, mapEngineError(err)
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID))
	return user, nil
}

// GetUser returns an account by id.
func (s *RegistryService) GetUser(id int64) (models.User, error) {
	user, err := s.engine.User(id)
	if err != nil {
		return models.User{}, mapEngineError(err)
	}
	return user, nil
}

// ListUsers lists all accounts.
func (s *RegistryService) ListUsers() []models.User {
	return s.engine.Users()
}

// UpdateUser replaces a stored account.
func (s *RegistryService) UpdateUser(ctx context.Context, actor *models.Actor, id int64, req dto.UserRequest) (models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return models.User{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.User{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user := userFromRequest(id, req)
	if err := s.engine.UpdateUser(ctx, user); err != nil {
		return models.User{}, mapEngineError(err)
	}
	return user, nil
}

// DeleteUser removes an account.
func (s *RegistryService) DeleteUser(ctx context.Context, actor *models.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.engine.DeleteUser(ctx, id); err != nil {
		return mapEngineError(err)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

func userFromRequest(id int64, req dto.UserRequest) models.User {
	perms := make(models.PermissionSet, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, models.Permission(p))
	}
	return models.User{
		ID:          id,
		Logins:      req.Logins,
		Permissions: perms,
		PersonID:    req.PersonID,
		Notes:       req.Notes,
	}
}

// --- Groups ---

// CreateGroup stores a new edu group.
func (s *RegistryService) CreateGroup(ctx context.Context, actor *models.Actor, req dto.GroupRequest) (models.EduGroup, error) {
	if err := requireAdmin(actor); err != nil {
		return models.EduGroup{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.EduGroup{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	group, err := s.engine.CreateGroup(ctx, groupFromRequest(0, req))
	if err != nil {
		return models.EduGroup{}, mapEngineError(err)
	}
	s.logger.Info("group created", zap.Int64("group_id", group.ID))
	return group, nil
}

// GetGroup returns a group by id.
func (s *RegistryService) GetGroup(id int64) (models.EduGroup, error) {
	group, err := s.engine.Group(id)
	if err != nil {
		return models.EduGroup{}, mapEngineError(err)
	}
	return group, nil
}

// ListGroups lists all groups.
func (s *RegistryService) ListGroups() []models.EduGroup {
	return s.engine.Groups()
}

// UpdateGroup replaces a stored group.
func (s *RegistryService) UpdateGroup(ctx context.Context, actor *models.Actor, id int64, req dto.GroupRequest) (models.EduGroup, error) {
	if err := requireAdmin(actor); err != nil {
		return models.EduGroup{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.EduGroup{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	group := groupFromRequest(id, req)
	if err := s.engine.UpdateGroup(ctx, group); err != nil {
		return models.EduGroup{}, mapEngineError(err)
	}
	return group, nil
}

// DeleteGroup removes a group unless courses still reference it.
func (s *RegistryService) DeleteGroup(ctx context.Context, actor *models.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.engine.DeleteGroup(ctx, id); err != nil {
		return mapEngineError(err)
	}
	s.logger.Info("group deleted", zap.Int64("group_id", id))
	return nil
}

func groupFromRequest(id int64, req dto.GroupRequest) models.EduGroup {
	return models.EduGroup{
		ID:       id,
		Name:     req.Name,
		Year:     req.Year,
		Degree:   models.Degree(req.Degree),
		Students: req.Students,
		Notes:    req.Notes,
	}
}

// --- Rooms ---

// CreateRoom stores a new room.
func (s *RegistryService) CreateRoom(ctx context.Context, actor *models.Actor, req dto.RoomRequest) (models.Room, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Room{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Room{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.engine.CreateRoom(ctx, roomFromRequest(0, req))
	if err != nil {
		return models.Room{}, mapEngineError(err)
	}
	s.logger.Info("room created", zap.Int64("room_id", room.ID))
	return room, nil
}

// GetRoom returns a room by id.
func (s *RegistryService) GetRoom(id int64) (models.Room, error) {
	room, err := s.engine.Room(id)
	if err != nil {
		return models.Room{}, mapEngineError(err)
	}
	return room, nil
}

// ListRooms lists all rooms.
func (s *RegistryService) ListRooms() []models.Room {
	return s.engine.Rooms()
}

// UpdateRoom replaces a stored room.
func (s *RegistryService) UpdateRoom(ctx context.Context, actor *models.Actor, id int64, req dto.RoomRequest) (models.Room, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Room{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Room{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := roomFromRequest(id, req)
	if err := s.engine.UpdateRoom(ctx, room); err != nil {
		return models.Room{}, mapEngineError(err)
	}
	return room, nil
}

// DeleteRoom removes a room unless events still reference it.
func (s *RegistryService) DeleteRoom(ctx context.Context, actor *models.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.engine.DeleteRoom(ctx, id); err != nil {
		return mapEngineError(err)
	}
	s.logger.Info("room deleted", zap.Int64("room_id", id))
	return nil
}

func roomFromRequest(id int64, req dto.RoomRequest) models.Room {
	return models.Room{
		ID:       id,
		Name:     req.Name,
		Building: req.Building,
		Capacity: req.Capacity,
		Notes:    req.Notes,
	}
}

// --- Courses ---

// CreateCourse stores a new course.
func (s *RegistryService) CreateCourse(ctx context.Context, actor *models.Actor, req dto.CourseRequest) (models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Course{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.engine.CreateCourse(ctx, courseFromRequest(0, req))
	if err != nil {
		return models.Course{}, mapEngineError(err)
	}
	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// GetCourse returns a course by id.
func (s *RegistryService) GetCourse(id int64) (models.Course, error) {
	course, err := s.engine.Course(id)
	if err != nil {
		return models.Course{}, mapEngineError(err)
	}
	return course, nil
}

// ListCourses lists all courses.
func (s *RegistryService) ListCourses() []models.Course {
	return s.engine.Courses()
}

// UpdateCourse replaces a stored course. Retargeting the teacher, the group
// or the date window while the course owns committed events is rejected with
// a conflict payload when the committed timetable would collide.
func (s *RegistryService) UpdateCourse(ctx context.Context, actor *models.Actor, id int64, req dto.CourseRequest) (models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Course{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return models.Course{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := courseFromRequest(id, req)
	if err := s.engine.UpdateCourse(ctx, course); err != nil {
		return models.Course{}, mapEngineError(err)
	}
	return course, nil
}

// DeleteCourse removes a course unless events still reference it.
func (s *RegistryService) DeleteCourse(ctx context.Context, actor *models.Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.engine.DeleteCourse(ctx, id); err != nil {
		return mapEngineError(err)
	}
	s.logger.Info("course deleted", zap.Int64("course_id", id))
	return nil
}

func courseFromRequest(id int64, req dto.CourseRequest) models.Course {
	controls := make(models.ControlSet, 0, len(req.Controls))
	for _, c := range req.Controls {
		controls = append(controls, models.ControlForm(c))
	}
	return models.Course{
		ID:       id,
		Code:     req.Code,
		Name:     req.Name,
		Elective: req.Elective,
		Credits:  req.Credits,
		Controls: controls,
		Begin:    req.Begin,
		End:      req.End,
		PersonID: req.PersonID,
		GroupID:  req.GroupID,
		Notes:    req.Notes,
	}
}
