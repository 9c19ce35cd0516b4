package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/uniplan/timetable-api/internal/dto"
	"github.com/uniplan/timetable-api/internal/models"
	"github.com/uniplan/timetable-api/internal/timetable"
	appErrors "github.com/uniplan/timetable-api/pkg/errors"
)

// ScheduleCacheConfig governs the optional redis cache on weekly reads.
type ScheduleCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ScheduleService answers weekly schedule queries, optionally through a
// version-keyed redis cache. Cache keys embed the engine version, so every
// committed mutation invalidates the whole cache without explicit deletes.
type ScheduleService struct {
	engine    *timetable.Engine
	redis     *redis.Client
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	enabled   bool
	ttl       time.Duration
}

// NewScheduleService constructs a ScheduleService. A nil redis client
// disables caching regardless of configuration.
func NewScheduleService(engine *timetable.Engine, redisClient *redis.Client, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg ScheduleCacheConfig) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &ScheduleService{
		engine:    engine,
		redis:     redisClient,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		enabled:   cfg.Enabled && redisClient != nil,
		ttl:       cfg.TTL,
	}
}

// WeeklySchedule returns the events sharing (dimension, key) that overlap
// the seven days starting at the query's week start, ordered by begin then
// id. Unknown keys yield an empty list. Repeating the same query against an
// unchanged timetable returns the same answer.
func (s *ScheduleService) WeeklySchedule(ctx context.Context, q dto.ScheduleQuery) ([]models.Event, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule query")
	}
	dim := models.Dimension(q.Dimension)

	var cacheKey string
	if s.enabled {
		cacheKey = s.cacheKey(dim, q.Key, q.WeekStart)
		raw, err := s.redis.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var events []models.Event
			if err := json.Unmarshal(raw, &events); err == nil {
				s.metrics.RecordCacheOperation(true)
				return events, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("schedule cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	events := s.engine.ScheduleFor(dim, q.Key, q.WeekStart)

	if s.enabled {
		if raw, err := json.Marshal(events); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("schedule cache write failed", zap.Error(err))
			}
		}
	}
	return events, nil
}

// RoomSchedule is a convenience wrapper for room queries.
func (s *ScheduleService) RoomSchedule(ctx context.Context, roomID int64, weekStart time.Time) ([]models.Event, error) {
	return s.WeeklySchedule(ctx, dto.ScheduleQuery{Dimension: string(models.DimensionRoom), Key: roomID, WeekStart: weekStart})
}

// TeacherSchedule is a convenience wrapper for teacher queries.
func (s *ScheduleService) TeacherSchedule(ctx context.Context, personID int64, weekStart time.Time) ([]models.Event, error) {
	return s.WeeklySchedule(ctx, dto.ScheduleQuery{Dimension: string(models.DimensionTeacher), Key: personID, WeekStart: weekStart})
}

// GroupSchedule is a convenience wrapper for group queries.
func (s *ScheduleService) GroupSchedule(ctx context.Context, groupID int64, weekStart time.Time) ([]models.Event, error) {
	return s.WeeklySchedule(ctx, dto.ScheduleQuery{Dimension: string(models.DimensionGroup), Key: groupID, WeekStart: weekStart})
}

func (s *ScheduleService) cacheKey(dim models.Dimension, key int64, weekStart time.Time) string {
	return fmt.Sprintf("schedule:v%d:%s:%d:%s", s.engine.Version(), dim, key, weekStart.UTC().Format("2006-01-02T15"))
}
