// Package runtime hosts the long-lived background routines the service
// starts at boot.
package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"ipwarden/internal/config"
	"ipwarden/internal/database"
	"ipwarden/internal/support"
	"ipwarden/internal/trust"
)

const (
	sweepLockKey         = "ipwarden:leader:reputation_sweep"
	sweepRefreshParallel = 4
	sweepBatchTimeout    = 5 * time.Minute
)

// StartReputationSweepRoutine periodically re-checks profiles whose last
// reputation lookup has gone stale. The leadership lock keeps a multi-node
// deployment from sweeping the same rows from every instance.
func StartReputationSweepRoutine(ctx context.Context, svc *trust.Service) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := support.GetRedisClient(); err != nil {
		log.Warn("Sweeping without a leadership lock, redis unavailable", "error", err)
		runSweepLoop(ctx, svc)
		return
	}

	err := support.RunWithLeader(ctx, sweepLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runSweepLoop(leaderCtx, svc)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Reputation sweep routine stopped", "error", err)
	}
}

func runSweepLoop(ctx context.Context, svc *trust.Service) {
	interval := config.GetConfig().SweepInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweepOnce(ctx, svc)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, svc)
			if next := config.GetConfig().SweepInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func sweepOnce(ctx context.Context, svc *trust.Service) {
	cfg := config.GetConfig()
	cutoff := time.Now().UTC().Add(-cfg.RefreshWindow())

	batchCtx, cancel := context.WithTimeout(ctx, sweepBatchTimeout)
	defer cancel()

	profiles, err := database.ListStaleProfiles(batchCtx, cutoff, cfg.Runtime.SweepBatchSize)
	if err != nil {
		log.Error("Could not list stale profiles", "error", err)
		return
	}
	if len(profiles) == 0 {
		return
	}

	log.Debug("Sweeping stale reputation profiles", "count", len(profiles))

	group, groupCtx := errgroup.WithContext(batchCtx)
	group.SetLimit(sweepRefreshParallel)
	for _, profile := range profiles {
		ip := profile.IP
		group.Go(func() error {
			if _, err := svc.RefreshNow(groupCtx, ip, false); err != nil {
				log.Error("Sweep refresh failed", "error", err)
			}
			return nil
		})
	}
	_ = group.Wait()
}
