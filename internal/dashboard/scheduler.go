package dashboard

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nniahq/portal-api/internal/appointments"
	"github.com/nniahq/portal-api/internal/observability/metrics"
	"github.com/nniahq/portal-api/internal/realtime"
	"github.com/nniahq/portal-api/pkg/logging"
)

// AppointmentSource lists raw appointments for one client. Both the Postgres
// repository and the remote API client satisfy it.
type AppointmentSource interface {
	ListByClient(ctx context.Context, clientID string) ([]appointments.Appointment, error)
}

// ClientLister enumerates the clients whose previews get refreshed.
type ClientLister interface {
	ListClientIDs(ctx context.Context) ([]string, error)
}

// StaticClients is a fixed client list, used when the set comes from config.
type StaticClients []string

func (s StaticClients) ListClientIDs(context.Context) ([]string, error) {
	return s, nil
}

// clockResolver is the slice of realtime.Source the scheduler uses.
type clockResolver interface {
	Resolve(ctx context.Context) realtime.Resolution
}

// Scheduler refreshes upcoming-appointment previews on a fixed interval.
// The reference instant is resolved once when the scheduler starts and reused
// for every cycle, so the window does not drift with provider flakiness.
type Scheduler struct {
	source  AppointmentSource
	clients ClientLister
	clock   clockResolver
	store   PreviewStore
	limit   int
	logger  *logging.Logger
	metrics *metrics.PortalMetrics
	tracer  trace.Tracer

	tick <-chan time.Time
	stop func()

	reference realtime.Resolution
}

type SchedulerConfig struct {
	Source  AppointmentSource
	Clients ClientLister
	Clock   clockResolver
	Store   PreviewStore

	Interval time.Duration
	Limit    int

	Logger  *logging.Logger
	Metrics *metrics.PortalMetrics

	// Tick and Stop override the interval ticker, used by tests.
	Tick <-chan time.Time
	Stop func()
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Source == nil {
		return nil, errors.New("dashboard: scheduler requires an appointment source")
	}
	if cfg.Clients == nil {
		return nil, errors.New("dashboard: scheduler requires a client lister")
	}
	if cfg.Clock == nil {
		return nil, errors.New("dashboard: scheduler requires a clock resolver")
	}
	if cfg.Store == nil {
		return nil, errors.New("dashboard: scheduler requires a preview store")
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = 2
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 20 * time.Second
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Scheduler{
		source:  cfg.Source,
		clients: cfg.Clients,
		clock:   cfg.Clock,
		store:   cfg.Store,
		limit:   limit,
		logger:  logger,
		metrics: cfg.Metrics,
		tracer:  otel.Tracer("nnia.internal.dashboard"),
		tick:    tick,
		stop:    stop,
	}, nil
}

// Start resolves the reference instant, runs one refresh immediately, then
// loops until the context is cancelled. Refresh errors are logged and never
// stop the loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if s.stop != nil {
			s.stop()
		}
	}()

	res := s.clock.Resolve(ctx)
	s.reference = res
	s.logger.Info("scheduler: reference instant resolved",
		"instant", res.Instant.Format(time.RFC3339),
		"source", res.Source,
	)

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduler: refresh cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tick:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("scheduler: refresh cycle failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single refresh cycle across all clients.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "dashboard.refresh_cycle")
	defer span.End()

	ids, err := s.clients.ListClientIDs(ctx)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveRefreshCycle("error", time.Since(start).Seconds())
		return err
	}
	span.SetAttributes(attribute.Int("clients.count", len(ids)))

	var firstErr error
	for _, clientID := range ids {
		if err := s.refreshClient(ctx, clientID); err != nil {
			s.logger.Error("scheduler: client refresh failed", "client_id", clientID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	outcome := "ok"
	if firstErr != nil {
		outcome = "error"
		span.RecordError(firstErr)
	}
	s.metrics.ObserveRefreshCycle(outcome, time.Since(start).Seconds())
	return firstErr
}

func (s *Scheduler) refreshClient(ctx context.Context, clientID string) error {
	appts, err := s.source.ListByClient(ctx, clientID)
	if err != nil {
		// Keep the previous snapshot; a fetch failure should not blank the
		// client's panel.
		return err
	}

	upcoming := appointments.UpcomingPending(appts, s.reference.Instant, s.limit)
	if upcoming == nil {
		upcoming = []appointments.Appointment{}
	}

	return s.store.Set(ctx, Preview{
		ClientID:         clientID,
		ReferenceInstant: s.reference.Instant,
		ReferenceSource:  s.reference.Source,
		RefreshedAt:      time.Now().UTC(),
		Appointments:     upcoming,
	})
}
