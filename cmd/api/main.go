package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"globus_tours/internal/adapters/bgoperator"
	server "globus_tours/internal/adapters/http_server"
	"globus_tours/internal/adapters/narrative"
	"globus_tours/internal/adapters/observability"
	"globus_tours/internal/adapters/places"
	"globus_tours/internal/app"
	"globus_tours/internal/cache"
	"globus_tours/internal/domain"
	"globus_tours/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg, err := shared.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr)

	// caches
	var (
		searchStore cache.Store[[]domain.Tour]
		tourStore   cache.Store[domain.Tour]
		placeStore  cache.Store[domain.PlaceInfo]
	)
	if cfg.Cache.Backend == "redis" {
		rc := cache.NewRedisClient(cfg.Cache.RedisAddr, cfg.Cache.RedisPass, cfg.Cache.RedisDB)
		searchStore = cache.NewRedis[[]domain.Tour]("search", rc, cfg.Cache.SearchTTL)
		tourStore = cache.NewRedis[domain.Tour]("tour", rc, cfg.Cache.TourTTL)
		placeStore = cache.NewRedis[domain.PlaceInfo]("place", rc, cfg.Cache.EnrichTTL)
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("using redis cache backend")
	} else {
		searchStore = cache.NewMemory[[]domain.Tour]("search", cfg.Cache.SearchTTL)
		tourStore = cache.NewMemory[domain.Tour]("tour", cfg.Cache.TourTTL)
		placeStore = cache.NewMemory[domain.PlaceInfo]("place", cfg.Cache.EnrichTTL)
	}

	// operator session + references
	auth := bgoperator.NewAuthenticator(cfg.Operator.AuthURL, cfg.Operator.Login, cfg.Operator.Password)
	gateway := app.NewOperatorGateway(auth, time.Duration(cfg.Search.UpstreamTimeoutSec)*time.Second)
	refs := bgoperator.NewReferences(gateway, cfg.Operator.ExportURL, cfg.Cache.ReferenceTTL)

	// enrichment providers
	placeClient, err := places.New(cfg.Places.BaseURL, cfg.Places.APIKey, cfg.Places.RPS)
	if err != nil {
		log.Fatal().Err(err).Msg("places client init failed")
	}
	var summarizer domain.ReviewSummarizer
	if nc, err := narrative.New(cfg.Narrative.BaseURL, cfg.Narrative.APIKey, cfg.Narrative.Model); err != nil {
		log.Warn().Err(err).Msg("narrative client disabled")
	} else {
		summarizer = nc
	}

	searchSvc := app.NewSearchService(gateway, refs, searchStore, tourStore, app.SearchConfig{
		ExportURL:     cfg.Operator.ExportURL,
		DepartureCity: cfg.Search.DepartureCity,
		MaxPriceLists: cfg.Search.MaxPriceLists,
		MaxResults:    cfg.Search.MaxResults,
		AdultAgeBands: cfg.Search.AdultAgeBands,
	})
	enricher := app.NewEnricher(placeClient, summarizer, placeStore, cfg.Search.EnrichWorkers)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Search: searchSvc, Enrich: enricher})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
