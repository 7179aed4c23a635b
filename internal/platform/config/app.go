package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel     string             `json:"log_level"`
	LogFormat    string             `json:"log_format"`
	Server       ServerConfig       `json:"server"`
	Cache        CacheConfig        `json:"cache"`
	Invalidation InvalidationConfig `json:"invalidation"`
	Route        RouteConfig        `json:"route"`
	Search       SearchConfig       `json:"search"`
	Providers    ProvidersConfig    `json:"providers"`
	Redis        RedisConfig        `json:"redis"`
	Database     DatabaseConfig     `json:"database"`
	Knowledge    KnowledgeConfig    `json:"knowledge"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

type CacheConfig struct {
	TTLMinutes      int    `json:"ttl_minutes"`
	MaxEntries      int    `json:"max_entries"`
	SnapshotEvery   int    `json:"snapshot_every"`
	SnapshotPath    string `json:"snapshot_path"`    // 空值使用 XDG 缓存目录
	SnapshotBackend string `json:"snapshot_backend"` // file | redis
}

type InvalidationConfig struct {
	// 各类别失效频率（分钟），缺省使用内置值
	FrequenciesMinutes   map[string]int `json:"frequencies_minutes"`
	SweepIntervalSeconds int            `json:"sweep_interval_seconds"`
}

type RouteConfig struct {
	LocalTopK           int     `json:"local_top_k"`
	MinLocalHits        int     `json:"min_local_hits"`
	LocalScoreThreshold float64 `json:"local_score_threshold"`
	ThresholdIsDistance bool    `json:"threshold_is_distance"`
}

type SearchConfig struct {
	ProviderTimeoutSeconds int `json:"provider_timeout_seconds"`
	MaxResultsPerProvider  int `json:"max_results_per_provider"`
}

// ProvidersConfig 搜索供应商配置。缺少密钥的供应商静默禁用。
type ProvidersConfig struct {
	SerpAPIKey         string   `json:"serpapi_key"`
	BingKey            string   `json:"bing_key"`
	DuckDuckGoDisabled bool     `json:"duckduckgo_disabled"`
	RSSFeeds           []string `json:"rss_feeds"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type DatabaseConfig struct {
	URL                    string `json:"url"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

type KnowledgeConfig struct {
	URL string `json:"url"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
		},
		Cache: CacheConfig{
			TTLMinutes:      30,
			MaxEntries:      1000,
			SnapshotEvery:   10,
			SnapshotBackend: "file",
		},
		Invalidation: InvalidationConfig{
			SweepIntervalSeconds: 60,
		},
		Route: RouteConfig{
			LocalTopK:           5,
			MinLocalHits:        3,
			LocalScoreThreshold: 0.8,
			ThresholdIsDistance: true,
		},
		Search: SearchConfig{
			ProviderTimeoutSeconds: 10,
			MaxResultsPerProvider:  10,
		},
		Database: DatabaseConfig{
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
func Load() (*AppConfig, error) {
	// .env 非必需，加载失败忽略
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)

	applyInt("CACHE_TTL_MINUTES", &c.Cache.TTLMinutes)
	applyInt("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries)
	applyInt("CACHE_SNAPSHOT_EVERY", &c.Cache.SnapshotEvery)
	applyString("CACHE_SNAPSHOT_PATH", &c.Cache.SnapshotPath)
	applyString("CACHE_SNAPSHOT_BACKEND", &c.Cache.SnapshotBackend)

	applyInt("INVALIDATION_SWEEP_INTERVAL", &c.Invalidation.SweepIntervalSeconds)
	for _, category := range []string{"news", "sport", "finance", "weather"} {
		key := "INVALIDATION_" + strings.ToUpper(category) + "_MINUTES"
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				if c.Invalidation.FrequenciesMinutes == nil {
					c.Invalidation.FrequenciesMinutes = make(map[string]int)
				}
				c.Invalidation.FrequenciesMinutes[category] = n
			}
		}
	}

	applyInt("ROUTE_LOCAL_TOP_K", &c.Route.LocalTopK)
	applyInt("ROUTE_MIN_LOCAL_HITS", &c.Route.MinLocalHits)
	applyFloat64("ROUTE_LOCAL_SCORE_THRESHOLD", &c.Route.LocalScoreThreshold)
	applyBool("ROUTE_THRESHOLD_IS_DISTANCE", &c.Route.ThresholdIsDistance)

	applyInt("SEARCH_PROVIDER_TIMEOUT", &c.Search.ProviderTimeoutSeconds)
	applyInt("SEARCH_MAX_RESULTS", &c.Search.MaxResultsPerProvider)

	applyString("SERPAPI_KEY", &c.Providers.SerpAPIKey)
	applyString("BING_SEARCH_KEY", &c.Providers.BingKey)
	applyBool("DUCKDUCKGO_DISABLED", &c.Providers.DuckDuckGoDisabled)
	if v := strings.TrimSpace(os.Getenv("RSS_FEEDS")); v != "" {
		feeds := strings.Split(v, ",")
		c.Providers.RSSFeeds = c.Providers.RSSFeeds[:0]
		for _, f := range feeds {
			if f = strings.TrimSpace(f); f != "" {
				c.Providers.RSSFeeds = append(c.Providers.RSSFeeds, f)
			}
		}
	}

	applyString("REDIS_URL", &c.Redis.URL)

	applyString("DATABASE_URL", &c.Database.URL)
	applyInt("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	applyInt("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	applyInt("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetimeSeconds)

	applyString("KNOWLEDGE_STORE_URL", &c.Knowledge.URL)
}

func (c *AppConfig) validate() error {
	switch c.Cache.SnapshotBackend {
	case "", "file", "redis":
	default:
		return fmt.Errorf("invalid CACHE_SNAPSHOT_BACKEND %q (want file or redis)", c.Cache.SnapshotBackend)
	}
	if c.Cache.SnapshotBackend == "redis" && strings.TrimSpace(c.Redis.URL) == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_SNAPSHOT_BACKEND=redis")
	}
	if c.Cache.TTLMinutes <= 0 {
		return fmt.Errorf("CACHE_TTL_MINUTES must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*target = n
		}
	}
}

func applyBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
