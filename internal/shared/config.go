package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	AppEnv      string `env:"APP_ENV, default=prod"`
	HTTPAddr    string `env:"HTTP_ADDR, default=:8080"`
	MetricsAddr string `env:"METRICS_ADDR, default=:9100"`

	Operator  OperatorConfig
	Places    PlacesConfig
	Narrative NarrativeConfig
	Cache     CacheConfig
	Search    SearchConfig
}

// OperatorConfig holds the Biblio-Globus upstream settings. Login/Password
// are not required at load time: their absence surfaces as a configuration
// error on the first authentication attempt.
type OperatorConfig struct {
	AuthURL   string `env:"BGO_AUTH_URL, default=https://login.bgoperator.ru/auth"`
	ExportURL string `env:"BGO_EXPORT_URL, default=http://export.bgoperator.ru"`
	Login     string `env:"BGO_LOGIN"`
	Password  string `env:"BGO_PASSWORD"`
}

type PlacesConfig struct {
	BaseURL string `env:"PLACES_BASE_URL, default=https://maps.googleapis.com/maps/api/place"`
	APIKey  string `env:"PLACES_API_KEY"`
	RPS     int    `env:"PLACES_RPS, default=5"`
}

type NarrativeConfig struct {
	BaseURL string `env:"NARRATIVE_BASE_URL, default=https://api.openai.com/v1"`
	APIKey  string `env:"NARRATIVE_API_KEY"`
	Model   string `env:"NARRATIVE_MODEL, default=gpt-4o-mini"`
}

// CacheConfig selects the backing store and TTLs for the three caches.
type CacheConfig struct {
	Backend      string        `env:"CACHE_BACKEND, default=memory"` // memory|redis
	RedisAddr    string        `env:"REDIS_ADDR, default=localhost:6379"`
	RedisPass    string        `env:"REDIS_PASSWORD"`
	RedisDB      int           `env:"REDIS_DB, default=0"`
	SearchTTL    time.Duration `env:"SEARCH_CACHE_TTL, default=5m"`
	EnrichTTL    time.Duration `env:"ENRICH_CACHE_TTL, default=10m"`
	ReferenceTTL time.Duration `env:"REFERENCE_CACHE_TTL, default=24h"`
	TourTTL      time.Duration `env:"TOUR_CACHE_TTL, default=30m"`
}

type SearchConfig struct {
	MaxPriceLists int    `env:"SEARCH_MAX_PRICELISTS, default=3"`
	MaxResults    int    `env:"SEARCH_MAX_RESULTS, default=25"`
	DepartureCity string `env:"SEARCH_DEPARTURE_CITY, default=Москва"`
	// AdultAgeBands are substrings matched against an offer's traveler
	// age-band field to pick the adult price entry.
	AdultAgeBands      []string `env:"SEARCH_ADULT_AGE_BANDS, default=14-99,12+"`
	EnrichWorkers      int      `env:"ENRICH_WORKERS, default=8"`
	UpstreamTimeoutSec int      `env:"UPSTREAM_TIMEOUT_SECS, default=20"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Search.MaxPriceLists <= 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("search caps must be positive")
	}
	return nil
}
