package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/haptix"
	"github.com/aretw0/haptix/internal/config"
	"github.com/aretw0/haptix/internal/logging"
	"github.com/aretw0/haptix/pkg/adapters/memory"
	"github.com/aretw0/haptix/pkg/adapters/pavlok"
	"github.com/aretw0/haptix/pkg/adapters/redis"
	"github.com/aretw0/haptix/pkg/adapters/scribe"
	"github.com/aretw0/haptix/pkg/domain"
	"github.com/aretw0/haptix/pkg/observability"
	"github.com/aretw0/haptix/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type app struct {
	engine  *haptix.Engine
	metrics *observability.Metrics
	logger  *slog.Logger
	closers []func() error
}

func (a *app) Close(ctx context.Context) {
	a.engine.Close(ctx)
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("Close failed", "err", err)
		}
	}
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func wireApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	var dispatcher ports.StimulusDispatcher
	if cfg.DryRun() {
		logger.Warn("No pavlok.token configured; stimuli are logged, not sent")
		dispatcher = memory.NewDispatcher(memory.WithDispatchLogger(logger))
	} else {
		dispatcher = pavlok.New(cfg.Pavlok.Token,
			pavlok.WithBaseURL(cfg.Pavlok.BaseURL),
			pavlok.WithTimeout(cfg.Pavlok.Timeout),
		)
	}

	var store ports.TriggerStore
	switch cfg.Store.Driver {
	case config.StoreRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
	default:
		store = memory.NewTriggerStore()
	}

	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if cfg.Metrics.Enabled {
		m, err := observability.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		a.metrics = m
		hooks = append(hooks, m.Hooks())
	}

	opts := []haptix.Option{
		haptix.WithLogger(logger),
		haptix.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		haptix.WithTriggerStore(store),
		haptix.WithMaxTranscriptBytes(cfg.Session.MaxTranscriptBytes),
	}
	if cfg.ElevenLabs.APIKey != "" {
		opts = append(opts, haptix.WithTokenIssuer(scribe.New(cfg.ElevenLabs.APIKey,
			scribe.WithBaseURL(cfg.ElevenLabs.BaseURL),
			scribe.WithTimeout(cfg.ElevenLabs.Timeout),
		)))
	}

	eng, err := haptix.New(dispatcher, opts...)
	if err != nil {
		return nil, err
	}
	a.engine = eng
	return a, nil
}
