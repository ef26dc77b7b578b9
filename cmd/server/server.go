// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api/hours"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api/reservations"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/api/userlimits"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/assets"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/capacity"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/clock"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/config"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/db"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/limits"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/schedule"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/scheduler"
	"github.com/GrainHologram/SnipeScheduler-sub001/internal/store"
)

// newServer wires the engine: database-backed stores feed the resolver, the
// resolver feeds the checker and slot finder, and the finder feeds the limit
// policy. The returned cleanup closes everything the server owns.
func newServer(cfg *config.Config) (*http.Server, func(), error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	stores := db.NewStores(database)

	tz, err := schedule.NewTimeZoneContext(cfg.Timezone.Business, cfg.Timezone.External)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	resolver, err := schedule.NewResolver(stores, tz)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	checker := schedule.NewChecker(resolver)

	finder, err := capacity.NewFinder(resolver, stores, cfg.Booking.SlotCapacity)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	policy, err := limits.NewPolicy(limits.PolicyParams{
		Defaults:            cfg.Limits.Defaults,
		GroupOverrides:      cfg.Limits.GroupOverrides,
		Groups:              stores,
		Finder:              finder,
		Clock:               clock.New(),
		SlotIntervalMinutes: cfg.Booking.SlotIntervalMinutes,
	})
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	hours.InitHandlers(hours.Deps{
		Resolver:            resolver,
		Checker:             checker,
		Finder:              finder,
		SlotIntervalMinutes: cfg.Booking.SlotIntervalMinutes,
	})
	userlimits.InitHandlers(policy)
	reservations.InitHandlers(reservations.Deps{
		Checker: checker,
		Policy:  policy,
		Store:   stores,
	})

	cleanups := []func(){func() { database.Close() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	jobs, err := setupBackgroundJobs(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if jobs != nil {
		cleanups = append(cleanups, jobs)
	}

	router := http.NewServeMux()
	registerRoutes(router)

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, cleanup, nil
}

// setupBackgroundJobs starts the inventory stats refresh when an inventory
// system is configured. Returns a stop func, or nil when nothing runs.
func setupBackgroundJobs(cfg *config.Config) (func(), error) {
	if cfg.Inventory.BaseURL == "" {
		log.Info().Msg("No inventory system configured, skipping background jobs")
		return nil, nil
	}

	var cache store.Store
	var err error
	switch cfg.Inventory.CacheBackend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cache, err = store.NewRedisStore(ctx, cfg.Inventory.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect inventory cache: %w", err)
		}
	default:
		cache = store.NewMemoryStore(clock.New())
	}

	client, err := assets.NewClient(cfg.Inventory.BaseURL, cfg.Inventory.APIToken, cache, cfg.CacheTTL())
	if err != nil {
		cache.Close()
		return nil, err
	}

	svc, err := scheduler.New()
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if err := scheduler.RegisterStatsRefreshJob(svc, client, cfg.Inventory.TrackedModelIDs); err != nil {
		cache.Close()
		return nil, err
	}
	svc.Start()

	return func() {
		if err := svc.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		cache.Close()
	}, nil
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Opening hours and availability
	mux.HandleFunc("GET /api/v1/hours", hours.HandleDayHours)
	mux.HandleFunc("GET /api/v1/availability", hours.HandleOpenCheck)
	mux.HandleFunc("GET /api/v1/availability/validate", hours.HandleValidateWindow)
	mux.HandleFunc("GET /api/v1/slots/next", hours.HandleNextSlot)

	// Reservation writes
	mux.HandleFunc("POST /api/v1/reservations", reservations.HandleCreateReservation)

	// Per-user limits
	mux.HandleFunc("GET /api/v1/limits/{user_id}", userlimits.HandleEffectiveLimits)
	mux.HandleFunc("GET /api/v1/limits/{user_id}/checkout-end", userlimits.HandleMaxCheckoutEnd)
}
