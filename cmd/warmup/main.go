// Command warmup authenticates against the tour operator, pre-fetches the
// reference tables and pre-enriches search results for the configured
// countries, so the first agent-facing requests hit warm caches.
package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/semaphore"

	"globus_tours/internal/adapters/bgoperator"
	"globus_tours/internal/adapters/narrative"
	"globus_tours/internal/adapters/observability"
	"globus_tours/internal/adapters/places"
	"globus_tours/internal/app"
	"globus_tours/internal/cache"
	"globus_tours/internal/domain"
	"globus_tours/internal/shared"
)

type warmupConfig struct {
	Countries []string `env:"WARMUP_COUNTRIES, default=Турция,Египет,Таиланд"`
	Workers   int      `env:"WARMUP_WORKERS, default=4"`
}

func main() {
	ctx := context.Background()
	cfg, err := shared.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	var wcfg warmupConfig
	if err := envconfig.Process(ctx, &wcfg); err != nil {
		log.Fatal().Err(err).Msg("warmup config load failed")
	}

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().Strs("countries", wcfg.Countries).Int("workers", wcfg.Workers).Msg("warmup starting")

	auth := bgoperator.NewAuthenticator(cfg.Operator.AuthURL, cfg.Operator.Login, cfg.Operator.Password)
	gateway := app.NewOperatorGateway(auth, time.Duration(cfg.Search.UpstreamTimeoutSec)*time.Second)
	refs := bgoperator.NewReferences(gateway, cfg.Operator.ExportURL, cfg.Cache.ReferenceTTL)

	// warm every reference kind once
	if countries, err := refs.Countries(ctx); err != nil {
		log.Fatal().Err(err).Msg("countries warmup failed")
	} else {
		log.Info().Int("count", len(countries)).Msg("countries warmed")
	}
	if cities, err := refs.Cities(ctx); err != nil {
		log.Fatal().Err(err).Msg("cities warmup failed")
	} else {
		log.Info().Int("count", len(cities)).Msg("cities warmed")
	}
	if hotels, err := refs.Hotels(ctx); err != nil {
		log.Fatal().Err(err).Msg("hotels warmup failed")
	} else {
		log.Info().Int("count", len(hotels)).Msg("hotels warmed")
	}
	if meals, err := refs.Meals(ctx); err != nil {
		log.Warn().Err(err).Msg("meal types warmup failed")
	} else {
		log.Info().Int("count", len(meals)).Msg("meal types warmed")
	}

	// warmup is one-shot, so in-process caches are enough here; the API
	// shares these entries only when CACHE_BACKEND=redis
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
	} else {
		searchStore = cache.NewMemory[[]domain.Tour]("search", cfg.Cache.SearchTTL)
		tourStore = cache.NewMemory[domain.Tour]("tour", cfg.Cache.TourTTL)
		placeStore = cache.NewMemory[domain.PlaceInfo]("place", cfg.Cache.EnrichTTL)
	}

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

	sem := semaphore.NewWeighted(int64(wcfg.Workers))
	var wg sync.WaitGroup

	for _, country := range wcfg.Countries {
		country := country

		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			result, err := searchSvc.Search(ctx, domain.SearchCriteria{Country: country})
			if err != nil {
				log.Warn().Str("country", country).Err(err).Msg("warmup search failed")
				return
			}
			enriched := enricher.Enrich(ctx, result.Tours)
			log.Info().
				Str("country", country).
				Int("tours", len(result.Tours)).
				Int("enriched", countEnriched(enriched)).
				Bool("degraded", result.Degraded).
				Msg("warmup ok")
		}()
	}

	wg.Wait()
	log.Info().Msg("warmup completed")
}

func countEnriched(ts []domain.EnrichedTour) int {
	n := 0
	for _, t := range ts {
		if t.Place != nil {
			n++
		}
	}
	return n
}
