package api

import (
	"context"
	"os"
	"strings"
	"time"

	"gasroute/internal/config"
	"gasroute/internal/opt"
	"gasroute/internal/provider"
	"gasroute/internal/resilience"
	"gasroute/internal/store"
)

type Server struct {
	Store     store.Store
	Optimizer *opt.Optimizer
	Travel    *resilience.Client
	Cfg       config.Config
}

// NewServer wires the process: config, provider, resilience envelope, store.
// If DATABASE_URL is unset, uses the in-memory store; if REDIS_URL is unset,
// the matrix cache stays in-process.
func NewServer() (*Server, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}
	return NewServerWithConfig(cfg)
}

func NewServerWithConfig(cfg config.Config) (*Server, error) {
	prov, err := provider.New(provider.Config{
		Kind:       cfg.Provider.Kind,
		BaseURL:    cfg.Provider.BaseURL,
		APIKey:     cfg.Provider.APIKey,
		Mode:       cfg.Provider.Mode,
		TimeoutSec: cfg.Provider.TimeoutSec,
	})
	if err != nil {
		return nil, err
	}

	var travel *resilience.Client
	if prov != nil {
		var cache resilience.MatrixCache
		if cfg.Cache.RedisURL != "" {
			if rc, err := resilience.NewRedisCache(cfg.Cache.RedisURL); err == nil {
				cache = rc
			} else {
				cache = resilience.NewMemoryCache()
			}
		} else {
			cache = resilience.NewMemoryCache()
		}
		breaker := resilience.NewBreaker(
			cfg.Breaker.FailureThreshold,
			time.Duration(cfg.Breaker.CooldownSec)*time.Second,
			time.Duration(cfg.Breaker.MaxCooldownSec)*time.Second,
		)
		limiter := resilience.NewLimiter(map[string]resilience.LimiterRate{
			resilience.EndpointMatrix: {
				PerSec:   cfg.RateLimit.MatrixPerSec,
				Burst:    cfg.RateLimit.MatrixBurst,
				DailyMax: cfg.RateLimit.MatrixDailyMax,
			},
		}, time.Duration(cfg.RateLimit.MaxWaitMs)*time.Millisecond)
		budget := resilience.NewBudget(cfg.Budget.CostPerCall, cfg.Budget.DailyLimit, 24*time.Hour)
		travel = resilience.NewClient(prov, breaker, limiter, budget, cache, resilience.ClientConfig{
			CallTimeout: time.Duration(cfg.Provider.TimeoutSec) * time.Second,
			CacheTTL:    time.Duration(cfg.Cache.TTLMin) * time.Minute,
		})
	}

	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			_ = sp.Migrate(context.Background())
		}
		s = sp
	}

	optimizer := opt.New(nil)
	if travel != nil {
		optimizer = opt.New(travel)
	}
	return &Server{Store: s, Optimizer: optimizer, Travel: travel, Cfg: cfg}, nil
}

// defaultOptions resolves optimizer options from config plus any stored
// planner config overrides.
func (s *Server) defaultOptions(ctx context.Context) opt.Options {
	o := opt.Options{
		MaxImprovementIterations: s.Cfg.Optimizer.MaxIterations,
		TimeBudget:               time.Duration(s.Cfg.Optimizer.TimeBudgetMs) * time.Millisecond,
		AvgSpeedKph:              s.Cfg.Optimizer.AvgSpeedKph,
	}
	cfg, err := s.Store.GetPlannerConfig(ctx)
	if err != nil || cfg == nil {
		return o
	}
	if v, ok := cfg["maxIterations"].(float64); ok && v > 0 {
		o.MaxImprovementIterations = int(v)
	}
	if v, ok := cfg["timeBudgetMs"].(float64); ok && v > 0 {
		o.TimeBudget = time.Duration(v) * time.Millisecond
	}
	if v, ok := cfg["avgSpeedKph"].(float64); ok && v > 0 {
		o.AvgSpeedKph = v
	}
	return o
}
