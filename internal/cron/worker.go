package cron

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/bher20/cryptofolio/internal/metrics"
	"github.com/bher20/cryptofolio/internal/portfolio"
	"github.com/bher20/cryptofolio/internal/prices"
)

const jobName = "refresh_prices"

// Run starts the price-refresh worker: a control loop that periodically
// re-fetches prices for every currency referenced by any portfolio. The
// interval setting is either integer seconds or a standard cron
// expression. Run blocks until ctx is cancelled.
func Run(ctx context.Context, cache *prices.Cache, svc *portfolio.Service, intervalSetting string) error {
	if intervalSetting == "" {
		intervalSetting = "300"
	}

	// Control loop ticker; the actual cadence comes from intervalSetting.
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	getNextRun := func(setting string, lastRun time.Time) time.Time {
		if v, err := strconv.Atoi(setting); err == nil && v > 0 {
			return lastRun.Add(time.Duration(v) * time.Second)
		}
		if sched, err := cron.ParseStandard(setting); err == nil {
			return sched.Next(lastRun)
		}
		return lastRun.Add(5 * time.Minute)
	}

	// Run once immediately, then follow the schedule.
	nextRun := time.Now()

	log.Printf("cron worker starting, setting=%q", intervalSetting)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().Before(nextRun) {
				continue
			}

			runID := uuid.NewString()
			started := time.Now()

			err := cache.Refresh(ctx, svc.Currencies())
			metrics.UpdateJobMetrics(jobName, started, err)

			if err != nil {
				log.Printf("cron: run %s failed: %v (duration=%s)", runID, err, time.Since(started))
			} else {
				log.Printf("cron: run %s refreshed %d prices (duration=%s)", runID, cache.Len(), time.Since(started))
			}

			nextRun = getNextRun(intervalSetting, time.Now())
		}
	}
}

// ParseInterval reports whether the setting is usable, for config
// validation at startup.
func ParseInterval(setting string) bool {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return true
	}
	_, err := cron.ParseStandard(setting)
	return err == nil
}
