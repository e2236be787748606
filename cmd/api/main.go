package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-pubflow/internal/common/api"
	"go-pubflow/internal/config"
	"go-pubflow/internal/database"
	"go-pubflow/internal/features/action"
	"go-pubflow/internal/features/automation"
	"go-pubflow/internal/features/expression"
	"go-pubflow/internal/features/pub"
	"go-pubflow/internal/features/run"
	"go-pubflow/internal/features/scheduler"
	"go-pubflow/internal/features/stage"
	"go-pubflow/internal/features/system"
	"go-pubflow/internal/logger"
	"go-pubflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,
			database.NewDatabase,

			// Repositories
			stage.NewStageRepository,
			pub.NewPubRepository,
			automation.NewAutomationRepository,
			run.NewRunRepository,

			// Engine
			expression.NewTengoEvaluator,
			action.NewRegistry,
			scheduler.NewSchedulerService,

			// Services
			stage.NewStageService,
			pub.NewPubService,
			automation.NewAutomationService,

			// Interface adapters to break circular dependencies
			func(s scheduler.SchedulerService) pub.StageEventEmitter { return s },
			func(r action.Registry) automation.ActionValidator { return r },
			func(ws *system.WebSocketController) scheduler.RunNotifier { return ws },

			// Controllers
			stage.NewStageController,
			pub.NewPubController,
			automation.NewAutomationController,
			run.NewRunController,
			scheduler.NewSchedulerController,
			system.NewHealthController,
			system.NewWebSocketController,

			// API routes
			AsRoute(stage.NewStageApi),
			AsRoute(pub.NewPubApi),
			AsRoute(automation.NewAutomationApi),
			AsRoute(run.NewRunApi),
			AsRoute(scheduler.NewEventApi),
			AsRoute(system.NewSystemApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, sched scheduler.SchedulerService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return sched.StartPolling()
					},
					OnStop: func(ctx context.Context) error {
						return sched.StopPolling()
					},
				})
			},
		),
	)

	app.Run()
}
