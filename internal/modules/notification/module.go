package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/saransh1220/ev-notify/internal/modules/notification/application"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/cache"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/live"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/metrics"
	"github.com/saransh1220/ev-notify/internal/modules/notification/infrastructure/persistence/postgres"
	notification_http "github.com/saransh1220/ev-notify/internal/modules/notification/interfaces/http"
	"github.com/saransh1220/ev-notify/internal/modules/notification/templates"
	"github.com/saransh1220/ev-notify/pkg/eventbus"
)

// Config carries the notification settings of the service configuration.
type Config struct {
	KeepAlive      time.Duration
	PullLimit      int
	EmitDelivery   string
	SessionBuffer  int
	RedisChannel   string
	IdempotencyTTL time.Duration
}

type Module struct {
	service     *application.NotificationService
	preferences *application.PreferenceService
	handler     *notification_http.NotificationHandler
	renderer    *templates.Renderer
	broker      *live.Broker
	fanout      *live.RedisFanout
	bus         *eventbus.Bus
	logger      *slog.Logger

	unsubscribe  func()
	cancelFanout context.CancelFunc
	stopOnce     sync.Once
}

// NewModule wires the notification module. rdb may be nil; live delivery then stays
// local to this process and Emit idempotency keys are ignored.
func NewModule(db *sqlx.DB, rdb *redis.Client, cfg Config, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "notification")

	renderer := templates.New()
	broker := live.NewBroker(logger)
	bus := eventbus.New()

	deps := application.Deps{
		Preferences:   postgres.NewPgPreferenceRepository(db),
		Notifications: postgres.NewPgNotificationRepository(db),
		Deliveries:    postgres.NewPgDeliveryRepository(db),
		Renderer:      renderer,
		Notifier:      broker,
		Bus:           bus,
		Logger:        logger,
	}

	m := &Module{
		renderer: renderer,
		broker:   broker,
		bus:      bus,
		logger:   logger,
	}
	if rdb != nil {
		m.fanout = live.NewRedisFanout(broker, rdb, cfg.RedisChannel, logger)
		deps.Notifier = m.fanout
		deps.Idempotency = cache.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	}

	m.service = application.NewNotificationService(deps, application.Options{
		PullLimit:    cfg.PullLimit,
		EmitDelivery: application.DeliveryMode(cfg.EmitDelivery),
	})
	m.preferences = application.NewPreferenceService(deps.Preferences)
	m.handler = notification_http.NewNotificationHandler(m.service, m.preferences, broker,
		notification_http.LiveOptions{KeepAlive: cfg.KeepAlive, SessionBuffer: cfg.SessionBuffer}, logger)
	m.unsubscribe = metrics.Subscribe(bus)

	return m
}

// Start runs the cross-instance fan-out listener when Redis is configured.
func (m *Module) Start(ctx context.Context) {
	if m.fanout == nil {
		return
	}
	ctx, m.cancelFanout = context.WithCancel(ctx)
	go func() {
		if err := m.fanout.Run(ctx); err != nil {
			m.logger.Error("live fanout stopped", "error", err)
		}
	}()
}

// Shutdown closes every live session and stops background work.
func (m *Module) Shutdown() {
	m.stopOnce.Do(func() {
		if m.cancelFanout != nil {
			m.cancelFanout()
		}
		m.broker.Stop()
		m.unsubscribe()
	})
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}

func (m *Module) Preferences() *application.PreferenceService {
	return m.preferences
}

// Renderer exposes the template registry so other modules can register their types.
func (m *Module) Renderer() *templates.Renderer {
	return m.renderer
}

func (m *Module) Broker() *live.Broker {
	return m.broker
}
