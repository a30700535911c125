package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ipwarden/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.IPProfile{},
		&domain.IPBan{},
		&domain.UserActionBan{},
		&domain.IPActivity{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	DB = db

	t.Cleanup(func() {
		DB = nil
	})

	return db
}

func TestTouchIPProfileCreatesThenUpdates(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	first, created, err := TouchIPProfile(ctx, TouchInput{
		IP:        "203.0.113.7",
		Hash:      "abc123",
		UserAgent: "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("first touch: %v", err)
	}
	if !created {
		t.Fatal("first touch should create the profile")
	}
	if first.Status != domain.StatusUnknown {
		t.Fatalf("new profile status = %q, want unknown", first.Status)
	}

	second, created, err := TouchIPProfile(ctx, TouchInput{
		IP:        "203.0.113.7",
		Hash:      "abc123",
		UserAgent: "curl/8.0",
		IsBot:     true,
		BotReason: "scripting tool",
	})
	if err != nil {
		t.Fatalf("second touch: %v", err)
	}
	if created {
		t.Fatal("second touch should not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("second touch hit row %d, want %d", second.ID, first.ID)
	}
	if second.LastUserAgent != "curl/8.0" || !second.IsBot {
		t.Fatalf("visit fields not refreshed: %+v", second)
	}
}

func TestTouchIPProfileClaimIsFirstComeFirstServed(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, _, err := TouchIPProfile(ctx, TouchInput{IP: "203.0.113.8", Hash: "h8", UserID: 11}); err != nil {
		t.Fatalf("touch: %v", err)
	}
	profile, _, err := TouchIPProfile(ctx, TouchInput{IP: "203.0.113.8", Hash: "h8", UserID: 99})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}

	if profile.ClaimedByUserID == nil || *profile.ClaimedByUserID != 11 {
		t.Fatalf("claim = %v, want to stay with user 11", profile.ClaimedByUserID)
	}
}

func TestGetProfileMissingReturnsNil(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	profile, err := GetProfileByIP(ctx, "198.51.100.1")
	if err != nil {
		t.Fatalf("GetProfileByIP: %v", err)
	}
	if profile != nil {
		t.Fatalf("profile = %+v, want nil", profile)
	}

	profile, err = GetProfileByHash(ctx, "nope")
	if err != nil {
		t.Fatalf("GetProfileByHash: %v", err)
	}
	if profile != nil {
		t.Fatalf("profile = %+v, want nil", profile)
	}
}

func TestApplyReputationRespectsOverride(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	profile, _, err := TouchIPProfile(ctx, TouchInput{IP: "203.0.113.9", Hash: "h9"})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}

	safe := domain.OverrideSafe
	if _, err := SetOverride(ctx, "h9", &safe); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}

	updated, err := ApplyReputation(ctx, profile.ID, ReputationUpdate{
		AutoStatus: domain.StatusSuspicious,
		IsVPN:      true,
		Summary:    "Signals: VPN",
		CheckedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("ApplyReputation: %v", err)
	}

	if updated.AutoStatus != domain.StatusSuspicious {
		t.Fatalf("auto status = %q, want suspicious", updated.AutoStatus)
	}
	if updated.Status != domain.StatusSafe {
		t.Fatalf("status = %q, want the safe override to win", updated.Status)
	}
	if updated.CheckedAt == nil {
		t.Fatal("checked_at should be stamped")
	}
}

func TestSetOverrideClearFallsBackToAutoStatus(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	profile, _, err := TouchIPProfile(ctx, TouchInput{IP: "203.0.113.10", Hash: "h10"})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, err := ApplyReputation(ctx, profile.ID, ReputationUpdate{
		AutoStatus: domain.StatusSuspicious,
		IsProxy:    true,
		CheckedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("ApplyReputation: %v", err)
	}

	banned := domain.OverrideBanned
	overridden, err := SetOverride(ctx, "h10", &banned)
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if overridden.Status != domain.StatusBanned {
		t.Fatalf("status = %q, want banned", overridden.Status)
	}

	cleared, err := SetOverride(ctx, "h10", nil)
	if err != nil {
		t.Fatalf("SetOverride clear: %v", err)
	}
	if cleared.Override != nil {
		t.Fatalf("override = %v, want nil", cleared.Override)
	}
	if cleared.Status != domain.StatusSuspicious {
		t.Fatalf("status = %q, want auto status back", cleared.Status)
	}
}

func TestSetOverrideUnknownHash(t *testing.T) {
	setupTestDB(t)

	safe := domain.OverrideSafe
	profile, err := SetOverride(context.Background(), "missing", &safe)
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if profile != nil {
		t.Fatalf("profile = %+v, want nil for unknown hash", profile)
	}
}

func TestMarkCheckFailedKeepsFlags(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	profile, _, err := TouchIPProfile(ctx, TouchInput{IP: "203.0.113.11", Hash: "h11"})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, err := ApplyReputation(ctx, profile.ID, ReputationUpdate{
		AutoStatus: domain.StatusSuspicious,
		IsTor:      true,
		Summary:    "Signals: Tor exit",
		CheckedAt:  time.Now().UTC().Add(-24 * time.Hour),
	}); err != nil {
		t.Fatalf("ApplyReputation: %v", err)
	}

	stamp := time.Now().UTC()
	if err := MarkCheckFailed(ctx, profile.ID, "Reputation lookup failed: all sources down", stamp); err != nil {
		t.Fatalf("MarkCheckFailed: %v", err)
	}

	got, err := GetProfileByIP(ctx, "203.0.113.11")
	if err != nil {
		t.Fatalf("GetProfileByIP: %v", err)
	}
	if !got.IsTor || got.AutoStatus != domain.StatusSuspicious {
		t.Fatalf("failure stamp must not clear prior signals: %+v", got)
	}
	if got.Summary != "Reputation lookup failed: all sources down" {
		t.Fatalf("summary = %q", got.Summary)
	}
	if got.CheckedAt == nil || got.CheckedAt.Before(stamp.Add(-time.Second)) {
		t.Fatalf("checked_at = %v, want refreshed", got.CheckedAt)
	}
}

func TestListProfilesForReview(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	mk := func(ip, hash string, override *string, status string) {
		t.Helper()
		profile, _, err := TouchIPProfile(ctx, TouchInput{IP: ip, Hash: hash})
		if err != nil {
			t.Fatalf("touch %s: %v", ip, err)
		}
		if _, err := ApplyReputation(ctx, profile.ID, ReputationUpdate{
			AutoStatus: status,
			CheckedAt:  time.Now().UTC(),
		}); err != nil {
			t.Fatalf("reputation %s: %v", ip, err)
		}
		if override != nil {
			if _, err := SetOverride(ctx, hash, override); err != nil {
				t.Fatalf("override %s: %v", ip, err)
			}
		}
	}

	safe := domain.OverrideSafe
	mk("10.0.0.1", "r1", nil, domain.StatusSuspicious)
	mk("10.0.0.2", "r2", nil, domain.StatusSuspicious)
	mk("10.0.0.3", "r3", &safe, domain.StatusSuspicious)
	mk("10.0.0.4", "r4", nil, domain.StatusClean)

	profiles, total, err := ListProfilesForReview(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListProfilesForReview: %v", err)
	}
	if total != 2 || len(profiles) != 2 {
		t.Fatalf("got %d rows (total %d), want 2: ruled-on and clean profiles excluded", len(profiles), total)
	}
	for _, p := range profiles {
		if p.Hash == "r3" || p.Hash == "r4" {
			t.Fatalf("profile %s should not be in the review queue", p.Hash)
		}
	}
}

func TestListStaleProfiles(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	fresh, _, err := TouchIPProfile(ctx, TouchInput{IP: "10.0.1.1", Hash: "s1"})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, err := ApplyReputation(ctx, fresh.ID, ReputationUpdate{
		AutoStatus: domain.StatusClean,
		CheckedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("reputation: %v", err)
	}

	stale, _, err := TouchIPProfile(ctx, TouchInput{IP: "10.0.1.2", Hash: "s2"})
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, err := ApplyReputation(ctx, stale.ID, ReputationUpdate{
		AutoStatus: domain.StatusClean,
		CheckedAt:  time.Now().UTC().Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("reputation: %v", err)
	}

	if _, _, err := TouchIPProfile(ctx, TouchInput{IP: "10.0.1.3", Hash: "s3"}); err != nil {
		t.Fatalf("touch: %v", err)
	}

	profiles, err := ListStaleProfiles(ctx, time.Now().UTC().Add(-12*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListStaleProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d stale profiles, want the never-checked and the old one", len(profiles))
	}
	for _, p := range profiles {
		if p.Hash == "s1" {
			t.Fatal("freshly checked profile should not be listed")
		}
	}
}
