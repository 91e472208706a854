package di

import (
	"go.uber.org/zap"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/clock"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/handler"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/policy"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/ratelimit"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/repository"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/service"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/config"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/database"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/redis"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/retry"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher service.EventPublisher

	// Engine
	Store     repository.Store
	Evaluator *policy.Evaluator
	Limiter   *ratelimit.Limiter
	Clock     clock.Clock

	// Services
	ValidationService service.ValidationService
	TicketService     service.TicketService
	EventService      service.EventService

	// Handlers
	ValidationHandler *handler.ValidationHandler
	TicketHandler     *handler.TicketHandler
	EventHandler      *handler.EventHandler
	HealthHandler     *handler.HealthHandler
}

// ContainerConfig holds pre-built infrastructure handed to the container.
// Connections and the publisher are established in main so startup fallback
// decisions stay there.
type ContainerConfig struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher service.EventPublisher
}

// NewContainer wires repositories, services, and handlers
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		Config:    cfg.Config,
		Logger:    cfg.Logger,
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: cfg.Publisher,
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Publisher == nil {
		c.Publisher = service.NewNoOpEventPublisher()
	}

	c.Clock = clock.New()
	c.Store = repository.NewPostgresStore(c.DB.Pool())

	c.Evaluator = policy.NewEvaluator(&policy.Config{
		MinScanInterval:     c.Config.Validation.MinScanInterval,
		SupportedQRVersions: c.Config.Validation.QRSupportedVersions,
	})

	c.Limiter = ratelimit.NewLimiter(ratelimit.Config{
		Capacity:        c.Config.Validation.RateLimitCapacity,
		RefillPerSecond: c.Config.Validation.RateLimitRefillPerSec,
	})

	c.ValidationService = service.NewValidationService(
		c.Store,
		c.Evaluator,
		c.Limiter,
		c.Publisher,
		c.Clock,
		c.Logger,
		&service.ValidationServiceConfig{
			BatchMaxItems: c.Config.Validation.BatchMaxItems,
			RetryConfig:   retry.DefaultConfig(),
		},
	)
	c.TicketService = service.NewTicketService(c.Store, c.Logger)
	c.EventService = service.NewEventService(c.Store, c.Clock)

	c.ValidationHandler = handler.NewValidationHandler(c.ValidationService, c.Logger)
	c.TicketHandler = handler.NewTicketHandler(c.TicketService, c.Logger)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)

	return c
}

// Close releases container-owned resources
func (c *Container) Close() {
	if c.Limiter != nil {
		c.Limiter.Stop()
	}
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
}
