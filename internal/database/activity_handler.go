package database

import (
	"context"
	"errors"

	"ipwarden/internal/domain"
)

// RecordActivity appends one visitor action for an IP.
func RecordActivity(ctx context.Context, ip, kind, excerpt string) error {
	if DB == nil {
		return errors.New("database not initialised")
	}

	if len(excerpt) > domain.MaxUserAgentLength {
		excerpt = excerpt[:domain.MaxUserAgentLength]
	}

	row := domain.IPActivity{
		IP:      ip,
		Kind:    kind,
		Excerpt: excerpt,
	}
	return DB.WithContext(ctx).Create(&row).Error
}

// CountActivity returns per-kind activity totals for an IP.
func CountActivity(ctx context.Context, ip string) (map[string]int64, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}

	type kindCount struct {
		Kind  string
		Count int64
	}

	var rows []kindCount
	err := DB.WithContext(ctx).
		Model(&domain.IPActivity{}).
		Select("kind, COUNT(*) AS count").
		Where("ip = ?", ip).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Count
	}
	return counts, nil
}

// RecentActivity returns the newest activity rows for an IP.
func RecentActivity(ctx context.Context, ip string, limit int) ([]domain.IPActivity, error) {
	if DB == nil {
		return nil, errors.New("database not initialised")
	}
	if limit < 1 {
		limit = 10
	}

	var rows []domain.IPActivity
	err := DB.WithContext(ctx).
		Where("ip = ?", ip).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
