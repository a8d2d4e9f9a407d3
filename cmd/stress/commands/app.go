package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/hedgestress/internal/batch"
	"github.com/wonny/hedgestress/internal/metrics"
	"github.com/wonny/hedgestress/internal/scenariofile"
	"github.com/wonny/hedgestress/internal/store"
	"github.com/wonny/hedgestress/internal/stress"
	"github.com/wonny/hedgestress/pkg/config"
	"github.com/wonny/hedgestress/pkg/database"
	"github.com/wonny/hedgestress/pkg/logger"
	"github.com/wonny/hedgestress/pkg/redis"
)

// app 커맨드 공용 의존성
// ⭐ SSOT: 컴포넌트 조립은 여기서만
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Registry
	db      *database.DB
	redis   *redis.Client
	repo    *store.Repository
}

// appOptions 어떤 인프라를 연결할지
type appOptions struct {
	store bool // Postgres 결과 저장
	cache bool // Redis 결과 캐시 / 공유 레이트 리밋
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	a := &app{
		cfg:     cfg,
		log:     logger.New(cfg),
		metrics: metrics.NewRegistry(),
	}

	if opts.store {
		db, err := database.New(ctx, cfg)
		switch {
		case errors.Is(err, database.ErrDisabled):
			a.log.Info("DATABASE_URL not set, result persistence disabled")
		case err != nil:
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			a.db = db
			a.repo = store.NewRepository(db)
			if err := a.repo.EnsureSchema(ctx); err != nil {
				a.Close()
				return nil, err
			}
			a.log.Info("Connected to database")
		}
	}

	if opts.cache {
		client, err := redis.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
	}

	return a, nil
}

// Close releases infrastructure connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *app) optimizerConfig() stress.OptimizerConfig {
	o := a.cfg.Optimizer
	return stress.OptimizerConfig{
		MaxIterations:   o.MaxIterations,
		ObjectiveTol:    o.ObjectiveTol,
		ConstraintTol:   o.ConstraintTol,
		InitialStep:     o.InitialStep,
		StallIterations: o.StallIterations,
		CornerRestarts:  o.CornerRestarts,
	}
}

func (a *app) defaultTargets() stress.MetricsTargets {
	return stress.MetricsTargets{
		LossRatio:  a.cfg.Targets.LossRatio,
		JointSigma: a.cfg.Targets.JointSigma,
	}
}

func (a *app) newEngine(targets stress.MetricsTargets) *stress.Engine {
	return stress.NewEngine(a.log, a.optimizerConfig(),
		stress.WithTargets(targets),
		stress.WithPenaltyWeight(a.cfg.Optimizer.PenaltyWeight),
		stress.WithRecorder(a.metrics),
	)
}

// newRunner 캐시/저장소가 연결되어 있으면 배치에 붙인다
func (a *app) newRunner(targets stress.MetricsTargets, cfg batch.Config) *batch.Runner {
	opts := []batch.Option{batch.WithRecorder(a.metrics)}
	if a.redis != nil && a.redis.Enabled() {
		opts = append(opts, batch.WithCache(redis.NewCache(a.redis, "hedgestress", a.cfg.Redis.CacheTTL)))
	}
	if a.repo != nil {
		opts = append(opts, batch.WithSink(a.repo))
	}
	return batch.NewRunner(a.newEngine(targets), a.log, cfg, opts...)
}

func (a *app) batchConfig() batch.Config {
	return batch.Config{
		Workers:         a.cfg.Batch.Workers,
		ScenarioTimeout: a.cfg.Batch.ScenarioTimeout,
	}
}

// loadBook --book 우선, 없으면 STRESS_BOOK_PATH
func (a *app) loadBook() (*scenariofile.Book, string, error) {
	path := bookPath
	if path == "" {
		path = a.cfg.Scheduler.BookPath
	}
	book, _, err := scenariofile.Load(path)
	if err != nil {
		return nil, path, err
	}
	return book, path, nil
}
