// Package refresh gates reputation lookups behind a staleness window and
// collapses concurrent requests for the same IP into one upstream query.
package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"ipwarden/internal/database"
	"ipwarden/internal/domain"
	"ipwarden/internal/reputation"
)

// ProfileStore is the slice of the database layer the coordinator needs.
type ProfileStore interface {
	GetProfileByIP(ctx context.Context, ip string) (*domain.IPProfile, error)
	ApplyReputation(ctx context.Context, id uint64, up database.ReputationUpdate) (*domain.IPProfile, error)
	MarkCheckFailed(ctx context.Context, id uint64, summary string, checkedAt time.Time) error
}

// Querier runs one fan-out across the reputation sources.
type Querier interface {
	Query(ctx context.Context, ip string) *reputation.Report
}

type Coordinator struct {
	store  ProfileStore
	agg    Querier
	window time.Duration

	group singleflight.Group
}

func NewCoordinator(store ProfileStore, agg Querier, window time.Duration) *Coordinator {
	return &Coordinator{
		store:  store,
		agg:    agg,
		window: window,
	}
}

// Refresh brings an IP's reputation up to date. Within the staleness window
// it returns the stored profile untouched unless force is set. Concurrent
// calls for the same (ip, force) pair share one lookup. A missing profile
// returns (nil, nil); visits create profiles, refreshes never do.
func (c *Coordinator) Refresh(ctx context.Context, ip string, force bool) (*domain.IPProfile, error) {
	key := fmt.Sprintf("%s|%t", ip, force)
	result, err, _ := c.group.Do(key, func() (any, error) {
		return c.refresh(ctx, ip, force)
	})
	c.group.Forget(key)
	if err != nil {
		return nil, err
	}
	profile, _ := result.(*domain.IPProfile)
	return profile, nil
}

func (c *Coordinator) refresh(ctx context.Context, ip string, force bool) (*domain.IPProfile, error) {
	profile, err := c.store.GetProfileByIP(ctx, ip)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}

	if !force && profile.CheckedAt != nil && time.Since(*profile.CheckedAt) < c.window {
		return profile, nil
	}

	report := c.agg.Query(ctx, ip)
	now := time.Now().UTC()

	if report.SourcesResponded() == 0 {
		// Total failure still advances the timestamp so a flapping
		// upstream is not hammered on every visit.
		if err := c.store.MarkCheckFailed(ctx, profile.ID, reputation.BuildSummary(report), now); err != nil {
			return nil, err
		}
		return c.store.GetProfileByIP(ctx, ip)
	}

	flags := reputation.ExtractFlags(report)
	payload, err := json.Marshal(report)
	if err != nil {
		payload = nil
	}

	return c.store.ApplyReputation(ctx, profile.ID, database.ReputationUpdate{
		AutoStatus:   reputation.AutoStatus(report),
		IsVPN:        flags.VPN,
		IsProxy:      flags.Proxy,
		IsTor:        flags.Tor,
		IsDatacenter: flags.Datacenter,
		IsAbuser:     flags.Abuser,
		Summary:      reputation.BuildSummary(report),
		RawPayload:   payload,
		CheckedAt:    now,
	})
}
