package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/uniplan/timetable-api/internal/handler"
	"github.com/uniplan/timetable-api/internal/middleware"
	"github.com/uniplan/timetable-api/internal/service"
	"github.com/uniplan/timetable-api/internal/timetable"
	"github.com/uniplan/timetable-api/pkg/cache"
	"github.com/uniplan/timetable-api/pkg/config"
	"github.com/uniplan/timetable-api/pkg/logger"
	corsmiddleware "github.com/uniplan/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniplan/timetable-api/pkg/middleware/requestid"
)

type crudHandler interface {
	List(*gin.Context)
	Get(*gin.Context)
	Create(*gin.Context)
	Update(*gin.Context)
	Delete(*gin.Context)
}

func registerCRUD(api *gin.RouterGroup, path string, admin gin.HandlerFunc, h crudHandler) {
	api.GET(path, h.List)
	api.GET(path+"/:id", h.Get)
	api.POST(path, admin, h.Create)
	api.PUT(path+"/:id", admin, h.Update)
	api.DELETE(path+"/:id", admin, h.Delete)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
			redisClient = nil
		}
	}

	engine := timetable.New(timetable.Config{LockTimeout: cfg.Scheduler.LockTimeout}, logr)
	validate := validator.New()

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT)
	registrySvc := service.NewRegistryService(engine, validate, logr)
	placementSvc := service.NewPlacementService(engine, validate, logr, metricsSvc, service.PlacementConfig{
		ProposalTTL: cfg.Scheduler.ProposalTTL,
	})
	scheduleSvc := service.NewScheduleService(engine, redisClient, validate, logr, metricsSvc, service.ScheduleCacheConfig{
		Enabled: cfg.Cache.Enabled,
		TTL:     cfg.Cache.TTL,
	})
	exportSvc := service.NewExportService(engine, scheduleSvc, validate, logr)

	persons := handler.NewPersonHandler(registrySvc)
	users := handler.NewUserHandler(registrySvc)
	groups := handler.NewGroupHandler(registrySvc)
	rooms := handler.NewRoomHandler(registrySvc)
	courses := handler.NewCourseHandler(registrySvc)
	placements := handler.NewPlacementHandler(placementSvc)
	schedules := handler.NewScheduleHandler(scheduleSvc, exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	admin := middleware.RequireAdmin()

	registerCRUD(api, "/persons", admin, persons)
	registerCRUD(api, "/users", admin, users)
	registerCRUD(api, "/groups", admin, groups)
	registerCRUD(api, "/rooms", admin, rooms)
	registerCRUD(api, "/courses", admin, courses)

	api.POST("/placements/propose", placements.Propose)
	api.POST("/placements/commit", admin, placements.Commit)
	api.GET("/events", placements.ListEvents)
	api.GET("/events/:id", placements.GetEvent)
	api.DELETE("/events/:id", admin, placements.Cancel)
	api.PUT("/events/:id/reschedule", admin, placements.Reschedule)

	api.GET("/schedule/week", schedules.Week)
	api.GET("/schedule/export", schedules.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
