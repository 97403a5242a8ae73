package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"

	"github.com/zkesrefoglu/turkish-stars-tracker/external/gamefeed"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/config"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/fixture"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/subject"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/fanout"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/repository/memory"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/infrastructure/repository/postgres"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/interfaces/httpapi"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/resilience"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

// App owns every long-lived component: storage, the fan-out pipeline,
// the poll scheduler, the websocket hub and the HTTP server.
type App struct {
	cfg    config.Config
	logger *logging.Logger

	db          *sqlx.DB
	redisClient *redis.Client
	bus         *fanout.Bus

	scheduler *usecase.PollScheduler
	hub       *httpapi.Hub
	server    *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{cfg: cfg, logger: logger}

	publisher, feed, err := a.buildFanout()
	if err != nil {
		return nil, err
	}

	subjectRepo, fixtureRepo, liveRepo, err := a.buildRepositories(ctx, publisher)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	provider := gamefeed.NewClient(gamefeed.ClientConfig{
		BaseURL: cfg.GamefeedBaseURL,
		Token:   cfg.GamefeedToken,
		Timeout: cfg.GamefeedTimeout,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.GamefeedCircuitEnabled,
			FailureThreshold: cfg.GamefeedCircuitFailureCount,
			OpenTimeout:      cfg.GamefeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.GamefeedCircuitHalfOpenMaxReq,
		},
	})

	windowSvc := usecase.NewWindowService(fixtureRepo, liveRepo, cfg.Competition, usecase.WindowConfig{
		Lookahead: cfg.PollLookahead,
		Lookback:  cfg.PollLookback,
	}, logger)
	reconcileSvc := usecase.NewReconcileService(provider, liveRepo, windowSvc, logger)
	boardSvc := usecase.NewBoardService(subjectRepo, fixtureRepo, liveRepo, cfg.Competition)

	a.scheduler = usecase.NewPollScheduler(subjectRepo, windowSvc, reconcileSvc, cfg.Competition, usecase.SchedulerConfig{
		Interval:    cfg.PollInterval,
		Workers:     cfg.PollWorkers,
		Enabled:     cfg.PollEnabled,
		TickTimeout: cfg.PollTickTimeout,
	}, logger)

	a.hub = httpapi.NewHub(boardSvc, feed, a.scheduler, logger)
	handler := httpapi.NewHandler(boardSvc, a.scheduler, a.hub, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalOpsToken)

	a.server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if a.server.Addr == "" {
		a.closeResources()
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return a, nil
}

func (a *App) buildFanout() (usecase.ChangePublisher, usecase.ChangeFeed, error) {
	switch a.cfg.FanoutDriver {
	case config.FanoutDriverRedis:
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		rf := fanout.NewRedisFanout(a.redisClient, uuid.NewString(), a.logger)
		return rf, rf, nil

	case config.FanoutDriverPG:
		// The live_matches trigger NOTIFYs on commit, so the
		// repository-side publisher stays a noop.
		feed := fanout.NewPGChangeFeed(normalizeDBURL(a.cfg.DBURL, a.cfg.DBDisablePreparedBinary), a.logger)
		return usecase.NewNoopChangePublisher(), feed, nil

	case config.FanoutDriverMemory:
		a.bus = fanout.NewBus(a.logger)
		return a.bus, a.bus, nil

	default:
		return nil, nil, fmt.Errorf("unknown fanout driver %q", a.cfg.FanoutDriver)
	}
}

func (a *App) buildRepositories(ctx context.Context, publisher usecase.ChangePublisher) (subject.Repository, fixture.Repository, livematch.Repository, error) {
	switch a.cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := openDB(ctx, a.cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		a.db = db
		return postgres.NewSubjectRepository(db),
			postgres.NewFixtureRepository(db),
			postgres.NewLiveMatchRepository(db, publisher),
			nil

	case config.StoreDriverMemory:
		now := time.Now().UTC()
		return memory.NewSubjectRepository(memory.SeedSubjects()),
			memory.NewFixtureRepository(memory.SeedFixtures(now)),
			memory.NewLiveMatchRepository(publisher),
			nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", a.cfg.StoreDriver)
	}
}

// Run serves until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var background conc.WaitGroup
	background.Go(func() {
		if err := a.hub.Run(runCtx); err != nil {
			a.logger.Error("hub stopped", "error", err)
		}
	})
	background.Go(func() {
		if err := a.scheduler.Run(runCtx); err != nil {
			a.logger.Error("poll scheduler stopped", "error", err)
		}
	})

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		cancel()
		background.Wait()
		a.closeResources()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	shutdownErr := a.server.Shutdown(shutdownCtx)

	cancel()
	background.Wait()
	a.closeResources()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}
	a.logger.Info("http server stopped")
	return nil
}

func (a *App) closeResources() {
	if a.bus != nil {
		a.bus.Close()
		a.bus = nil
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
		a.redisClient = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
