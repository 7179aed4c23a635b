package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"knowgate/internal/adapter/knowledge"
	"knowgate/internal/adapter/provider/search/bing"
	"knowgate/internal/adapter/provider/search/duckduckgo"
	"knowgate/internal/adapter/provider/search/rssfeed"
	"knowgate/internal/adapter/provider/search/serpapi"
	"knowgate/internal/api"
	"knowgate/internal/cache"
	"knowgate/internal/db/postgres"
	redisdb "knowgate/internal/db/redis"
	"knowgate/internal/domain/route"
	"knowgate/internal/domain/websearch"
	"knowgate/internal/platform/config"
	applog "knowgate/internal/platform/log"
	"knowgate/internal/platform/metrics"
	"knowgate/internal/provider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	m := metrics.New()

	store := initCache(cfg, m)
	scheduler := initScheduler(cfg, store, m)
	searcher := initSearcher(cfg, m)

	routeCfg := route.DefaultConfig()
	routeCfg.LocalTopK = cfg.Route.LocalTopK
	routeCfg.MinLocalHits = cfg.Route.MinLocalHits
	routeCfg.LocalScoreThreshold = cfg.Route.LocalScoreThreshold
	routeCfg.ThresholdIsDistance = cfg.Route.ThresholdIsDistance
	routeCfg.CacheTTL = time.Duration(cfg.Cache.TTLMinutes) * time.Minute

	router := route.NewRouter(searcher, store, routeCfg)
	router.SetInvalidator(scheduler)
	router.SetMetrics(m)

	if cfg.Knowledge.URL != "" {
		router.SetLocalStore(knowledge.New(knowledge.Config{BaseURL: cfg.Knowledge.URL}))
		applog.Infof("✅ Local knowledge store enabled (%s)", cfg.Knowledge.URL)
	} else {
		applog.Info("ℹ️  No KNOWLEDGE_STORE_URL set, routing without local knowledge base")
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	server := api.NewServer(serverConfig, router, store, scheduler)
	server.SetMetrics(m)

	if cfg.Database.URL != "" {
		if traces := initTraceStore(cfg); traces != nil {
			router.SetTraceStore(traces)
			server.SetTraceReader(traces)
		}
	} else {
		applog.Info("ℹ️  No DATABASE_URL set, route traces disabled")
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go scheduler.Run(sweepCtx, time.Duration(cfg.Invalidation.SweepIntervalSeconds)*time.Second)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		sweepCancel()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}

// initCache 创建缓存并恢复快照
func initCache(cfg *config.AppConfig, m *metrics.Metrics) *cache.Store {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.DefaultTTL = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	cacheCfg.MaxEntries = cfg.Cache.MaxEntries
	cacheCfg.SnapshotEvery = cfg.Cache.SnapshotEvery

	store := cache.NewStore(cacheCfg)
	store.SetMetrics(m)

	switch cfg.Cache.SnapshotBackend {
	case "redis":
		opt, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			applog.Fatalf("❌ Invalid REDIS_URL: %v", err)
		}
		redisClient := goredis.NewClient(opt)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			applog.Fatalf("❌ Redis connection failed: %v", err)
		}
		store.SetSnapshot(redisdb.NewSnapshotStore(redisClient, ""))
		applog.Info("✅ Connected to Redis for cache snapshots")
	default:
		path := cfg.Cache.SnapshotPath
		if path == "" {
			path = cache.DefaultSnapshotPath()
		}
		store.SetSnapshot(cache.NewFileSnapshot(path))
		applog.Infof("✅ File cache snapshot at %s", path)
	}

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer loadCancel()
	if restored := store.LoadSnapshot(loadCtx); restored > 0 {
		applog.Infof("✅ Restored %d cache entries from snapshot", restored)
	}
	return store
}

// initScheduler 创建按类别失效调度器
func initScheduler(cfg *config.AppConfig, store *cache.Store, m *metrics.Metrics) *cache.Scheduler {
	frequencies := make(map[route.Category]time.Duration, len(cfg.Invalidation.FrequenciesMinutes))
	for category, minutes := range cfg.Invalidation.FrequenciesMinutes {
		frequencies[route.Category(category)] = time.Duration(minutes) * time.Minute
	}

	scheduler := cache.NewScheduler(store, frequencies)
	scheduler.SetMetrics(m)
	return scheduler
}

// initSearcher 按凭据注册搜索供应商并创建联邦搜索客户端
func initSearcher(cfg *config.AppConfig, m *metrics.Metrics) *websearch.Client {
	if cfg.Providers.SerpAPIKey != "" {
		provider.RegisterProvider(serpapi.New(serpapi.Config{APIKey: cfg.Providers.SerpAPIKey}))
	}
	if cfg.Providers.BingKey != "" {
		provider.RegisterProvider(bing.New(bing.Config{APIKey: cfg.Providers.BingKey}))
	}
	if !cfg.Providers.DuckDuckGoDisabled {
		provider.RegisterProvider(duckduckgo.New(duckduckgo.Config{}))
	}
	if len(cfg.Providers.RSSFeeds) > 0 {
		provider.RegisterProvider(rssfeed.New(rssfeed.Config{Feeds: cfg.Providers.RSSFeeds}))
	}

	names := provider.ProviderNames()
	if len(names) == 0 {
		applog.Warn("⚠️  No search providers configured, web search will always fail over to fallback")
	} else {
		applog.Infof("✅ Search providers registered: %v", names)
	}

	searchCfg := websearch.DefaultConfig()
	searchCfg.ProviderTimeout = time.Duration(cfg.Search.ProviderTimeoutSeconds) * time.Second
	searchCfg.MaxResultsPerProvider = cfg.Search.MaxResultsPerProvider

	client := websearch.NewClient(provider.ListProviders(), searchCfg)
	client.SetMetrics(m)
	return client
}

// initTraceStore 连接 PostgreSQL 并准备追踪表
func initTraceStore(cfg *config.AppConfig) *postgres.TraceStore {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		applog.Fatalf("❌ Failed to connect to database: %v", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSeconds) * time.Second)

	if err := db.Ping(); err != nil {
		applog.Fatalf("❌ Failed to ping database: %v", err)
	}
	applog.Info("✅ Connected to PostgreSQL")

	traces := postgres.NewTraceStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := traces.EnsureTraceTable(ctx); err != nil {
		applog.Warnf("⚠️  Failed to ensure route_traces table: %v", err)
		return nil
	}
	applog.Info("✅ Route traces table ready")
	return traces
}
