package router

import (
	"context"

	polsvc "horas-backend/internal/application/policies"
	tesvc "horas-backend/internal/application/timeentries"
	usersvc "horas-backend/internal/application/user"
	vacsvc "horas-backend/internal/application/vacations"
	authcore "horas-backend/internal/auth"
	"horas-backend/internal/config"
	"horas-backend/internal/infrastructure/database"
	authhandler "horas-backend/internal/interfaces/handlers/auth"
	tehandler "horas-backend/internal/interfaces/handlers/timeentries"
	userhandler "horas-backend/internal/interfaces/handlers/users"
	vachandler "horas-backend/internal/interfaces/handlers/vacations"
	"horas-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration, returning the DB and Redis handles for startup checks and
// shutdown.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)

	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	registerRoutes(app, db, rdb, sessionCfg)
	return app, db, rdb, nil
}

// registerRoutes wires every module. db may be nil in tests without a
// database; protected modules are skipped in that case.
func registerRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, sessionCfg middleware.SessionConfig) {
	app.Get("/health/json", func(c *fiber.Ctx) error {
		dbStatus := "disconnected"
		if db != nil {
			if sqlDB, err := db.DB(); err == nil && sqlDB.Ping() == nil {
				dbStatus = "connected"
			}
		}
		redisStatus := "disconnected"
		if rdb != nil && rdb.Ping(context.Background()).Err() == nil {
			redisStatus = "connected"
		}
		return c.JSON(fiber.Map{
			"status":       "ok",
			"dependencies": fiber.Map{"database": dbStatus, "redis": redisStatus},
		})
	})

	var userFinder authcore.UserFinder
	if db != nil {
		userFinder = &authcore.GormUserFinder{DB: db}
	}
	authHandlers := &authhandler.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db == nil || rdb == nil {
		return
	}

	policiesService := &polsvc.Service{DB: db}
	vacationService := &vacsvc.Service{DB: db, Policies: policiesService}
	vacationHandlers := &vachandler.Handlers{Service: vacationService, Policies: policiesService}

	// Public policy subset (no auth)
	app.Get("/api/v1/vacations/policies/public", vacationHandlers.GetPoliciesPublic)

	vacGroup := app.Group("/api/v1/vacations", middleware.RequireAuth())
	vacGroup.Post("/", vacationHandlers.CreateRequest)
	vacGroup.Get("/my", vacationHandlers.ListMine)
	vacGroup.Get("/", middleware.RequireAdmin(), vacationHandlers.ListAll)
	vacGroup.Get("/stats", middleware.RequireAdmin(), vacationHandlers.Stats)
	vacGroup.Get("/policies", middleware.RequireAdmin(), vacationHandlers.GetPolicies)
	vacGroup.Put("/policies", middleware.RequireAdmin(), vacationHandlers.SetPolicies)
	vacGroup.Get("/balance/my", vacationHandlers.GetMyBalance)
	vacGroup.Get("/balance/:userId", middleware.RequireAdmin(), vacationHandlers.GetUserBalance)
	vacGroup.Put("/balance/:userId", middleware.RequireAdmin(), vacationHandlers.UpsertBalance)
	vacGroup.Get("/detail/:id", vacationHandlers.GetDetail)
	vacGroup.Post("/:id/cancel", vacationHandlers.Cancel)
	vacGroup.Put("/:id/decision", middleware.RequireAdmin(), vacationHandlers.Decide)
	vacGroup.Get("/:id", vacationHandlers.GetDetail)

	userService := &usersvc.Service{DB: db}
	userHandlers := &userhandler.Handlers{Service: userService}
	userGroup := app.Group("/api/v1/users", middleware.RequireAuth(), middleware.RequireAdmin())
	userGroup.Post("/", userHandlers.CreateUser)
	userGroup.Get("/", userHandlers.ListUsers)
	userGroup.Get("/:id", userHandlers.ViewUser)
	userGroup.Put("/:id", userHandlers.UpdateUser)

	teService := &tesvc.Service{DB: db}
	teHandlers := &tehandler.Handlers{Service: teService}
	teGroup := app.Group("/api/v1/time-entries", middleware.RequireAuth())
	teGroup.Post("/", teHandlers.Create)
	teGroup.Get("/my", teHandlers.ListMine)
	teGroup.Get("/summary", middleware.RequireAdmin(), teHandlers.Summary)
	teGroup.Get("/", middleware.RequireAdmin(), teHandlers.ListAll)
	teGroup.Put("/:id", teHandlers.Update)
	teGroup.Delete("/:id", teHandlers.Delete)
}
