package database

import (
	"context"
	"testing"

	"ipwarden/internal/domain"
)

func TestLiftIPBan(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	ban, err := CreateIPBan(ctx, "203.0.113.20", domain.BanScopeGlobal, "", "spamming")
	if err != nil {
		t.Fatalf("CreateIPBan: %v", err)
	}

	lifted, err := LiftIPBan(ctx, ban.ID)
	if err != nil {
		t.Fatalf("LiftIPBan: %v", err)
	}
	if !lifted {
		t.Fatal("first lift should report success")
	}

	lifted, err = LiftIPBan(ctx, ban.ID)
	if err != nil {
		t.Fatalf("LiftIPBan again: %v", err)
	}
	if lifted {
		t.Fatal("second lift should be a no-op")
	}

	lifted, err = LiftIPBan(ctx, 9999)
	if err != nil {
		t.Fatalf("LiftIPBan unknown: %v", err)
	}
	if lifted {
		t.Fatal("lifting an unknown ban should report false")
	}
}

func TestActiveIPBansExcludesLifted(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	first, err := CreateIPBan(ctx, "203.0.113.21", domain.BanScopeTag, "spam", "")
	if err != nil {
		t.Fatalf("CreateIPBan: %v", err)
	}
	second, err := CreateIPBan(ctx, "203.0.113.21", domain.BanScopeGlobal, "", "")
	if err != nil {
		t.Fatalf("CreateIPBan: %v", err)
	}
	if _, err := CreateIPBan(ctx, "198.51.100.5", domain.BanScopeGlobal, "", ""); err != nil {
		t.Fatalf("CreateIPBan: %v", err)
	}

	if _, err := LiftIPBan(ctx, first.ID); err != nil {
		t.Fatalf("LiftIPBan: %v", err)
	}

	bans, err := ActiveIPBans(ctx, "203.0.113.21")
	if err != nil {
		t.Fatalf("ActiveIPBans: %v", err)
	}
	if len(bans) != 1 || bans[0].ID != second.ID {
		t.Fatalf("bans = %+v, want only the unlifted global ban", bans)
	}
}

func TestLedgerAdapterMapsRows(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, err := CreateUserActionBan(ctx, 42, domain.BanScopeAction, "comment", "abusive comments"); err != nil {
		t.Fatalf("CreateUserActionBan: %v", err)
	}

	bans, err := Ledger{}.ActiveUserBans(ctx, 42)
	if err != nil {
		t.Fatalf("ActiveUserBans: %v", err)
	}
	if len(bans) != 1 {
		t.Fatalf("got %d bans, want 1", len(bans))
	}
	ban := bans[0]
	if ban.Scope != domain.BanScopeAction || ban.Value != "comment" || ban.Reason != "abusive comments" {
		t.Fatalf("ban = %+v", ban)
	}
	if !ban.Active() {
		t.Fatal("fresh ban should be active")
	}
}
