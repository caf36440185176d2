// Package app wires the configured backend, board session, coordinator and
// outer surfaces into one running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apiboard "github.com/kilianp07/dispatchboard/api/board"
	"github.com/kilianp07/dispatchboard/config"
	"github.com/kilianp07/dispatchboard/core/audit"
	"github.com/kilianp07/dispatchboard/core/board"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/grid"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/model"
	coremon "github.com/kilianp07/dispatchboard/core/monitoring"
	"github.com/kilianp07/dispatchboard/core/schedule"
	"github.com/kilianp07/dispatchboard/infra/backend/rediscache"
	"github.com/kilianp07/dispatchboard/infra/logger"
	"github.com/kilianp07/dispatchboard/infra/metrics"
	"github.com/kilianp07/dispatchboard/infra/monitoring"
	"github.com/kilianp07/dispatchboard/infra/mqtt"

	// schedule backends register themselves
	_ "github.com/kilianp07/dispatchboard/infra/backend/httpapi"
	_ "github.com/kilianp07/dispatchboard/infra/backend/memory"
)

// Service holds one tenant's dispatch session and its surfaces.
type Service struct {
	cfg *config.Config

	Backend     schedule.Backend
	Board       *board.Board
	Coordinator *dispatch.Coordinator
	Audit       audit.Store
	Sink        coremetrics.MetricsSink
	API         *apiboard.Handler

	notifier *mqtt.Notifier
	redis    *redis.Client
	log      logger.Logger
	now      func() time.Time
}

// Option customizes New.
type Option func(*options)

type options struct {
	backend schedule.Backend
	now     func() time.Time
}

// WithBackend bypasses the configured backend, used by scenarios and tests.
func WithBackend(b schedule.Backend) Option { return func(o *options) { o.backend = b } }

// WithClock sets the clock used for the initial week and every event time.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New creates a Service from the configuration. Nothing is fetched until
// Start or Run.
func New(cfg *config.Config, opts ...Option) (svc *Service, err error) {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if err := logger.Configure(cfg.Logging.Writer(), cfg.Logging.Format, cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry, map[string]string{"tenant": cfg.Tenant})
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	s := &Service{cfg: cfg, log: logg, now: o.now}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.Backend = o.backend
	if s.Backend == nil {
		if s.Backend, err = schedule.NewBackend(cfg.Backend); err != nil {
			return nil, fmt.Errorf("backend %s: %w", cfg.Backend.Type, err)
		}
	}
	if cfg.Cache.Enabled {
		s.redis = rediscache.NewClient(cfg.Cache)
		cached, err := rediscache.New(s.Backend, s.redis, cfg.Cache, logger.New("cache"))
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		s.Backend = cached
	}

	if s.Sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	if s.Board, err = board.New(cfg.Tenant, s.Backend, cfg.Board, logger.New("board"),
		board.WithSink(s.Sink), board.WithClock(o.now)); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}

	if s.Audit, err = audit.Open(cfg.Audit); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	notifiers := dispatch.Notifiers{dispatch.LogNotifier{Log: logger.New("dispatch-failures")}}
	if cfg.MQTT.Enabled {
		if s.notifier, err = mqtt.NewNotifier(cfg.MQTT, cfg.Tenant); err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
		s.notifier.SetMetricsSink(s.Sink)
		notifiers = append(notifiers, s.notifier)
	}

	if s.Coordinator, err = dispatch.NewCoordinator(s.Board, s.Backend, notifiers, logger.New("dispatch"), cfg.Dispatch); err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}
	s.Coordinator.SetMetricsSink(s.Sink)
	s.Coordinator.SetAuditStore(s.Audit)
	s.Coordinator.SetClock(o.now)

	if s.API, err = apiboard.NewHandler(s.Board, s.Coordinator, s.Audit,
		apiboard.WithToken(cfg.HTTP.Token),
		apiboard.WithRetryAfter(cfg.HTTP.RetryAfter()),
		apiboard.WithClock(o.now)); err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	return s, nil
}

// Start loads the week containing anchor, or the current week when anchor
// is zero. A failed fetch leaves the board in its error state.
func (s *Service) Start(ctx context.Context, anchor model.Date) error {
	if anchor.IsZero() {
		anchor = model.DateOf(s.now())
	}
	return s.Board.Load(ctx, grid.WeekRange(anchor))
}

// ErrNotifierDisabled is returned by AssignAndWait when MQTT is not enabled.
var ErrNotifierDisabled = errors.New("mqtt notifications disabled")

// Assign runs one Begin and Drop. Technician notifications for the result
// are published before it returns.
func (s *Service) Assign(ctx context.Context, workOrderID, target string) (dispatch.Result, error) {
	return s.assign(ctx, workOrderID, target, 0)
}

// AssignAndWait is Assign followed by a wait of up to ackTimeout for the
// newly assigned technician to acknowledge. A missing ack is reported as an
// error next to the already applied Result.
func (s *Service) AssignAndWait(ctx context.Context, workOrderID, target string, ackTimeout time.Duration) (dispatch.Result, error) {
	if s.notifier == nil {
		return dispatch.Result{}, ErrNotifierDisabled
	}
	if ackTimeout <= 0 {
		return dispatch.Result{}, fmt.Errorf("ack timeout must be positive, got %s", ackTimeout)
	}
	return s.assign(ctx, workOrderID, target, ackTimeout)
}

func (s *Service) assign(ctx context.Context, workOrderID, target string, ackTimeout time.Duration) (dispatch.Result, error) {
	var events <-chan dispatch.Event
	if s.notifier != nil {
		events = s.Coordinator.Subscribe()
		defer s.Coordinator.Unsubscribe(events)
	}
	if err := s.Coordinator.Begin(workOrderID); err != nil {
		return dispatch.Result{}, err
	}
	res, err := s.Coordinator.Drop(ctx, target)
	var ackErr error
	for events != nil {
		select {
		case e := <-events:
			if ackTimeout > 0 {
				if werr := s.notifier.HandleAndWait(ctx, e, ackTimeout); werr != nil && ackErr == nil {
					ackErr = werr
				}
				continue
			}
			s.notifier.Handle(ctx, e)
		default:
			events = nil
		}
	}
	if err == nil {
		err = ackErr
	}
	return res, err
}

// Run starts the background loops and the HTTP API, blocking until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx, model.Date{}); err != nil {
		s.log.Warnf("initial load: %v", err)
	}

	go func() {
		if err := s.Board.Run(ctx); err != nil {
			s.log.Errorf("board refresh loop: %v", err)
		}
	}()
	if s.notifier != nil {
		events := s.Coordinator.Subscribe()
		go s.notifier.Run(ctx, events)
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.API.Mux,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("serving %s board on %s", s.cfg.Tenant, s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.Coordinator != nil {
		s.Coordinator.Close()
	}
	if s.Board != nil {
		s.Board.Close()
	}
	if s.notifier != nil {
		s.notifier.Disconnect()
	}
	if s.Audit != nil {
		errs = append(errs, s.Audit.Close())
	}
	if c, ok := s.Sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
