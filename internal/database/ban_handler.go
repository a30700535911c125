package database

import (
	"context"
	"errors"
	"time"

	"ipwarden/internal/access"
	"ipwarden/internal/domain"
)

// CreateIPBan appends an active ban to the IP ledger.
func CreateIPBan(ctx context.Context, ip, scope, value, reason string) (*domain.IPBan, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	ban := domain.IPBan{
		IP:     ip,
		Scope:  scope,
		Value:  value,
		Reason: reason,
	}
	if err := DB.WithContext(ctx).Create(&ban).Error; err != nil {
		return nil, err
	}
	return &ban, nil
}

// CreateUserActionBan appends an active ban to the account ledger.
func CreateUserActionBan(ctx context.Context, userID uint64, scope, value, reason string) (*domain.UserActionBan, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	ban := domain.UserActionBan{
		UserID: userID,
		Scope:  scope,
		Value:  value,
		Reason: reason,
	}
	if err := DB.WithContext(ctx).Create(&ban).Error; err != nil {
		return nil, err
	}
	return &ban, nil
}

// LiftIPBan stamps an IP ban as lifted. Returns false when the ban does not
// exist or was already lifted; the row itself is never deleted.
func LiftIPBan(ctx context.Context, id uint64) (bool, error) {
	if DB == nil {
		return false, errors.New("database not initialised")
	}

	now := time.Now().UTC()
	res := DB.WithContext(ctx).Model(&domain.IPBan{}).
		Where("id = ? AND lifted_at IS NULL", id).
		Update("lifted_at", &now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// LiftUserActionBan stamps an account ban as lifted.
func LiftUserActionBan(ctx context.Context, id uint64) (bool, error) {
	if DB == nil {
		return false, errors.New("database not initialised")
	}

	now := time.Now().UTC()
	res := DB.WithContext(ctx).Model(&domain.UserActionBan{}).
		Where("id = ? AND lifted_at IS NULL", id).
		Update("lifted_at", &now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ActiveIPBans returns the active ledger entries for an IP, newest first.
func ActiveIPBans(ctx context.Context, ip string) ([]domain.IPBan, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var bans []domain.IPBan
	err := DB.WithContext(ctx).
		Where("ip = ? AND lifted_at IS NULL", ip).
		Order("created_at DESC, id DESC").
		Find(&bans).Error
	if err != nil {
		return nil, err
	}
	return bans, nil
}

// ActiveUserBans returns the active ledger entries for an account, newest first.
func ActiveUserBans(ctx context.Context, userID uint64) ([]domain.UserActionBan, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var bans []domain.UserActionBan
	err := DB.WithContext(ctx).
		Where("user_id = ? AND lifted_at IS NULL", userID).
		Order("created_at DESC, id DESC").
		Find(&bans).Error
	if err != nil {
		return nil, err
	}
	return bans, nil
}

// Ledger adapts the ban tables to the resolver's ledger-neutral view.
type Ledger struct{}

func (Ledger) ActiveIPBans(ctx context.Context, ip string) ([]access.Ban, error) {
	rows, err := ActiveIPBans(ctx, ip)
	if err != nil {
		return nil, err
	}
	bans := make([]access.Ban, 0, len(rows))
	for _, row := range rows {
		bans = append(bans, access.Ban{
			ID:        row.ID,
			Scope:     row.Scope,
			Value:     row.Value,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
			LiftedAt:  row.LiftedAt,
		})
	}
	return bans, nil
}

func (Ledger) ActiveUserBans(ctx context.Context, userID uint64) ([]access.Ban, error) {
	rows, err := ActiveUserBans(ctx, userID)
	if err != nil {
		return nil, err
	}
	bans := make([]access.Ban, 0, len(rows))
	for _, row := range rows {
		bans = append(bans, access.Ban{
			ID:        row.ID,
			Scope:     row.Scope,
			Value:     row.Value,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
			LiftedAt:  row.LiftedAt,
		})
	}
	return bans, nil
}
