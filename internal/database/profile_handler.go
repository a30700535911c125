package database

import (
	"context"
	"errors"
	"time"

	"ipwarden/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TouchInput carries everything a single visit contributes to a profile.
type TouchInput struct {
	IP        string
	Hash      string
	UserAgent string
	IsBot     bool
	BotReason string
	UserID    uint64
}

// TouchIPProfile records a visit: it creates the profile row on first sight
// and refreshes the visit fields on every later one. The returned bool is
// true when the row was created by this call.
func TouchIPProfile(ctx context.Context, in TouchInput) (*domain.IPProfile, bool, error) {
	if DB == nil {
		return nil, false, errors.New("database not initialised")
	}
	db := DB.WithContext(ctx)

	now := time.Now().UTC()
	row := domain.IPProfile{
		IP:            in.IP,
		Hash:          in.Hash,
		LastUserAgent: in.UserAgent,
		IsBot:         in.IsBot,
		BotReason:     in.BotReason,
		AutoStatus:    domain.StatusUnknown,
		Status:        domain.StatusUnknown,
		LastSeenAt:    now,
	}

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0

	if !created {
		updates := map[string]any{
			"last_seen_at":    now,
			"last_user_agent": in.UserAgent,
			"is_bot":          in.IsBot,
			"bot_reason":      in.BotReason,
		}
		if err := db.Model(&domain.IPProfile{}).Where("ip = ?", in.IP).Updates(updates).Error; err != nil {
			return nil, false, err
		}
	}

	// First authenticated visitor from this address claims it. Later
	// logins never steal the claim.
	if in.UserID != 0 {
		claim := map[string]any{
			"claimed_by_user_id": in.UserID,
			"claimed_at":         now,
		}
		if err := db.Model(&domain.IPProfile{}).
			Where("ip = ? AND claimed_by_user_id IS NULL", in.IP).
			Updates(claim).Error; err != nil {
			return nil, false, err
		}
	}

	profile, err := GetProfileByIP(ctx, in.IP)
	if err != nil {
		return nil, false, err
	}
	return profile, created, nil
}

// GetProfileByIP returns the profile for a raw IP, or nil when none exists.
func GetProfileByIP(ctx context.Context, ip string) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var profile domain.IPProfile
	err := DB.WithContext(ctx).Where("ip = ?", ip).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfileByHash returns the profile for an identity hash, or nil when none exists.
func GetProfileByHash(ctx context.Context, hash string) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	var profile domain.IPProfile
	err := DB.WithContext(ctx).Where("hash = ?", hash).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ReputationUpdate is the slice of a profile a reputation refresh may change.
type ReputationUpdate struct {
	AutoStatus   string
	IsVPN        bool
	IsProxy      bool
	IsTor        bool
	IsDatacenter bool
	IsAbuser     bool
	Summary      string
	RawPayload   []byte
	CheckedAt    time.Time
}

// ApplyReputation writes a refresh result and recomputes the visible status
// in the same statement so an override set meanwhile still wins.
func ApplyReputation(ctx context.Context, id uint64, up ReputationUpdate) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	db := DB.WithContext(ctx)

	var profile domain.IPProfile
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&profile).Error; err != nil {
			return err
		}

		profile.AutoStatus = up.AutoStatus
		profile.IsVPN = up.IsVPN
		profile.IsProxy = up.IsProxy
		profile.IsTor = up.IsTor
		profile.IsDatacenter = up.IsDatacenter
		profile.IsAbuser = up.IsAbuser
		profile.Summary = up.Summary
		if len(up.RawPayload) > 0 {
			profile.RawPayload = up.RawPayload
		}
		checkedAt := up.CheckedAt
		profile.CheckedAt = &checkedAt
		profile.Status = profile.EffectiveStatus()

		return tx.Model(&domain.IPProfile{}).Where("id = ?", id).Updates(map[string]any{
			"auto_status":   profile.AutoStatus,
			"is_vpn":        profile.IsVPN,
			"is_proxy":      profile.IsProxy,
			"is_tor":        profile.IsTor,
			"is_datacenter": profile.IsDatacenter,
			"is_abuser":     profile.IsAbuser,
			"summary":       profile.Summary,
			"raw_payload":   profile.RawPayload,
			"checked_at":    profile.CheckedAt,
			"status":        profile.Status,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// MarkCheckFailed stamps a refresh attempt that got nothing back from any
// source. Flags and status stay whatever they were.
func MarkCheckFailed(ctx context.Context, id uint64, summary string, checkedAt time.Time) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	return DB.WithContext(ctx).Model(&domain.IPProfile{}).Where("id = ?", id).Updates(map[string]any{
		"summary":    summary,
		"checked_at": &checkedAt,
	}).Error
}

// SetOverride records a moderator verdict (safe, banned, or nil to clear)
// and recomputes the visible status. Returns nil when the hash is unknown.
func SetOverride(ctx context.Context, hash string, override *string) (*domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	db := DB.WithContext(ctx)

	var profile domain.IPProfile
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("hash = ?", hash).First(&profile).Error; err != nil {
			return err
		}

		profile.Override = override
		profile.Status = profile.EffectiveStatus()

		return tx.Model(&domain.IPProfile{}).Where("id = ?", profile.ID).Updates(map[string]any{
			"override": profile.Override,
			"status":   profile.Status,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfilesForReview pages through suspicious profiles no moderator has
// ruled on yet, most recently seen first. Page numbering starts at 1.
func ListProfilesForReview(ctx context.Context, page, pageSize int) ([]domain.IPProfile, int64, error) {
	if DB == nil {
		return nil, 0, errors.New("database not initialised")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}
	db := DB.WithContext(ctx)

	query := db.Model(&domain.IPProfile{}).
		Where("status = ? AND override IS NULL", domain.StatusSuspicious)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []domain.IPProfile
	err := query.
		Order("last_seen_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListStaleProfiles returns profiles whose reputation has never been checked
// or whose last check predates the cutoff.
func ListStaleProfiles(ctx context.Context, before time.Time, limit int) ([]domain.IPProfile, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if limit < 1 {
		limit = 50
	}

	var profiles []domain.IPProfile
	err := DB.WithContext(ctx).
		Where("checked_at IS NULL OR checked_at < ?", before).
		Order("last_seen_at DESC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Profiles adapts the package-level profile functions to an interface the
// refresh layer can fake in tests.
type Profiles struct{}

func (Profiles) GetProfileByIP(ctx context.Context, ip string) (*domain.IPProfile, error) {
	return GetProfileByIP(ctx, ip)
}

func (Profiles) ApplyReputation(ctx context.Context, id uint64, up ReputationUpdate) (*domain.IPProfile, error) {
	return ApplyReputation(ctx, id, up)
}

func (Profiles) MarkCheckFailed(ctx context.Context, id uint64, summary string, checkedAt time.Time) error {
	return MarkCheckFailed(ctx, id, summary, checkedAt)
}

// ResetProfiles wipes every profile and activity row. Test and maintenance use.
func ResetProfiles(ctx context.Context) error {
	if DB == nil {
		return errors.New("database not initialised")
	}
	db := DB.WithContext(ctx)

	if err := db.Where("1 = 1").Delete(&domain.IPActivity{}).Error; err != nil {
		return err
	}
	return db.Where("1 = 1").Delete(&domain.IPProfile{}).Error
}
