package learn

import (
	"context"
	"log/slog"

	mem "learnkit/adapters/memory"
	"learnkit/core"
	"learnkit/engine"
	"learnkit/integrations/webhook"
	"learnkit/leaderboard"
	"learnkit/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	catalog *core.Catalog
	mode    engine.DispatchMode
	hub     *realtime.Hub
	board   leaderboard.Board
	sink    *webhook.Sink
	log     *slog.Logger
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithCatalog sets the badge catalog.
func WithCatalog(cat *core.Catalog) Option { return func(c *config) { c.catalog = cat } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithLeaderboard keeps a board updated from point events.
func WithLeaderboard(b leaderboard.Board) Option { return func(c *config) { c.board = b } }

// WithWebhook forwards all engine events to the webhook sink.
func WithWebhook(s *webhook.Sink) Option { return func(c *config) { c.sink = s } }

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option { return func(c *config) { c.log = log } }

// allEventTypes lists every event the engine publishes, for bridging.
var allEventTypes = []core.EventType{
	core.EventPointsAdded,
	core.EventLevelUp,
	core.EventBadgeAwarded,
	core.EventStreakExtended,
	core.EventLessonCompleted,
	core.EventCourseCompleted,
	core.EventEnrolled,
	core.EventUnenrolled,
}

// New builds a configured LearnService. If not provided, defaults are used:
//   - storage: in-memory
//   - catalog: the built-in badge catalog
//   - dispatch: async
func New(opts ...Option) *engine.LearnService {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	if cfg.catalog == nil {
		cfg.catalog = core.NewDefaultCatalog()
	}

	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewLearnService(cfg.storage, cfg.catalog, bus, cfg.log)

	if cfg.hub != nil {
		for _, typ := range allEventTypes {
			bus.Subscribe(typ, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		}
	}
	if cfg.sink != nil {
		for _, typ := range allEventTypes {
			bus.Subscribe(typ, func(_ context.Context, e core.Event) { cfg.sink.OnEvent(e) })
		}
	}
	if cfg.board != nil {
		bus.Subscribe(core.EventPointsAdded, func(_ context.Context, e core.Event) {
			cfg.board.Update(e.UserID, e.Total)
		})
	}
	return svc
}
