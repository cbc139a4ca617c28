package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/cache"
	"github.com/hoangnph/vnquant/internal/domain"
	"github.com/hoangnph/vnquant/internal/ingest"
	"github.com/hoangnph/vnquant/internal/net/budget"
	"github.com/hoangnph/vnquant/internal/net/circuit"
	"github.com/hoangnph/vnquant/internal/net/ratelimit"
	"github.com/hoangnph/vnquant/internal/orchestrator"
	"github.com/hoangnph/vnquant/internal/persistence"
	"github.com/hoangnph/vnquant/internal/persistence/postgres"
	"github.com/hoangnph/vnquant/internal/provider"
	"github.com/hoangnph/vnquant/internal/settings"
	"github.com/hoangnph/vnquant/internal/telemetry"
)

const defaultSource = domain.Source("ssi")

// app bundles every wired collaborator one process needs, built once per
// command invocation from settings and flags.
type app struct {
	settings settings.Settings
	db       *sqlx.DB
	cache    *cache.Cache
	metrics  *telemetry.Registry
	breakers *circuit.Manager
	limiter  *ratelimit.Limiter
	budgets  *budget.Manager

	universe domain.UniverseProvider
	mdp      domain.MarketDataProvider

	prices     persistence.PriceRepo
	foreign    persistence.ForeignFlowRepo
	watermarks persistence.WatermarkRepo
	configs    persistence.ConfigRepo
	analysis   persistence.AnalysisPersister
	runs       persistence.OrchestratorRunRepo
}

func buildApp(configPath, universePath string) (*app, error) {
	s, err := settings.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	sqlxDB, err := postgres.Open(s.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rdb := cache.New(s.Redis.Addr, s.Redis.Password, s.Redis.DB, 10*time.Minute)

	universe, err := provider.LoadStaticUniverse(universePath, 4)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}

	httpClient := &http.Client{Timeout: s.HTTP.Timeout}
	mdp := provider.NewHTTPMarketDataProvider(httpClient, provider.HTTPConfig{
		BaseURL: "https://api.example-mdp.local", Source: defaultSource,
	})

	breakers := circuit.NewManager(func(name string) circuit.Config {
		return circuit.Config{
			Name: name, FailureThreshold: 5, SuccessThreshold: 2,
			Timeout: 30 * time.Second, RequestTimeout: s.HTTP.Timeout,
		}
	})
	limiter := ratelimit.NewLimiter(2, 4)

	budgets := budget.NewManager()
	budgets.AddProvider(string(defaultSource), s.Ingest.DailyRequestBudget, s.Ingest.BudgetResetHourUTC, s.Ingest.BudgetWarnThreshold)

	a := &app{
		settings: s,
		db:       sqlxDB,
		metrics:  telemetry.NewRegistry(),
		breakers: breakers,
		limiter:  limiter,
		budgets:  budgets,
		universe: universe,
		mdp:      mdp,
		cache:    rdb,

		prices:     &postgres.PriceRepo{DB: sqlxDB},
		foreign:    &postgres.ForeignFlowRepo{DB: sqlxDB},
		watermarks: &postgres.WatermarkRepo{DB: sqlxDB},
		configs:    &postgres.ConfigRepo{DB: sqlxDB},
		analysis:   &postgres.AnalysisPersister{DB: sqlxDB},
		runs:       &postgres.OrchestratorRunRepo{DB: sqlxDB},
	}
	return a, nil
}

func (a *app) ingestEngine() *ingest.Engine {
	return &ingest.Engine{
		MDP: a.mdp, Prices: a.prices, Foreign: a.foreign, Watermarks: a.watermarks,
		Breaker: a.breakers, Limiter: a.limiter, Budget: a.budgets, Settings: a.settings.Ingest,
		Source: defaultSource, Log: log.Logger,
	}
}

func (a *app) orchestratorEngine() *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Universe: a.universe, Ingest: a.ingestEngine(),
		Prices: a.prices, Configs: a.configs, Analysis: a.analysis, Runs: a.runs,
		Settings: a.settings, Metrics: a.metrics, Log: log.Logger,
	}
}
