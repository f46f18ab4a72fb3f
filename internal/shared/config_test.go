package shared

import (
	"context"
	"testing"
	"time"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("METRICS_ADDR", ":9999")
	t.Setenv("SEARCH_CACHE_TTL", "90s")
	t.Setenv("BGO_LOGIN", "agency")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.MetricsAddr != ":9999" {
		t.Fatalf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default = %q", cfg.HTTPAddr)
	}
	if cfg.Cache.SearchTTL != 90*time.Second {
		t.Fatalf("SearchTTL = %v", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.ReferenceTTL != 24*time.Hour {
		t.Fatalf("ReferenceTTL default = %v", cfg.Cache.ReferenceTTL)
	}
	if cfg.Operator.Login != "agency" {
		t.Fatalf("Login = %q", cfg.Operator.Login)
	}
	if got := cfg.Search.AdultAgeBands; len(got) != 2 || got[0] != "14-99" || got[1] != "12+" {
		t.Fatalf("AdultAgeBands default = %v", got)
	}
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("expected validation error for unknown cache backend")
	}
}
