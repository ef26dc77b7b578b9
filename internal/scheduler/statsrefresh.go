package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/assets"
)

const statsRefreshTimeout = 2 * time.Minute

// RegisterStatsRefreshJob re-warms the cached per-model availability stats
// from the inventory system so slot-picker pages read warm data. The cache is
// advisory; a failed refresh only means the next read hits the API.
func RegisterStatsRefreshJob(svc *Service, client *assets.Client, modelIDs []int64) error {
	if svc == nil {
		return fmt.Errorf("stats refresh job requires a scheduler")
	}
	if client == nil {
		return fmt.Errorf("stats refresh job requires an inventory client")
	}
	if len(modelIDs) == 0 {
		log.Debug().Msg("Stats refresh job skipped: no models configured")
		return nil
	}

	jobName := "inventory_stats_refresh"
	cronExpr := "*/5 * * * *"
	jobLogger := log.With().
		Str("component", "inventory_stats_refresh_job").
		Str("job_name", jobName).
		Logger()

	_, err := svc.AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsRefreshTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		for _, modelID := range modelIDs {
			stats, err := client.RefreshStatsByModel(ctx, modelID)
			if err != nil {
				if errors.Is(err, assets.ErrNotFound) {
					jobLogger.Warn().Int64("model_id", modelID).Msg("Model missing from inventory system")
					continue
				}
				jobLogger.Error().Err(err).Int64("model_id", modelID).Msg("Failed to refresh model stats")
				continue
			}
			jobLogger.Debug().
				Int64("model_id", modelID).
				Int("total", stats.Total).
				Int("deployable", stats.Deployable).
				Msg("Model stats refreshed")
		}
	})
	return err
}
