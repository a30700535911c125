package domain

import "time"

const (
	ActivityView       = "view"
	ActivityLike       = "like"
	ActivityComment    = "comment"
	ActivitySubmission = "submission"
)

// IPActivity records one visitor action attributed to an IP. The moderation
// view aggregates these into per-kind counts and recent excerpts.
type IPActivity struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	IP      string `gorm:"size:45;not null;index" json:"-"`
	Kind    string `gorm:"size:16;not null" json:"kind"`
	Excerpt string `gorm:"size:512;not null;default:''" json:"excerpt"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (IPActivity) TableName() string {
	return "ip_activities"
}
