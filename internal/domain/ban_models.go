package domain

import "time"

const (
	BanScopeGlobal = "global"
	BanScopeAction = "action"
	BanScopeTag    = "tag"
)

// IPBan is an append-mostly ledger entry against a raw IP. A ban is active
// while LiftedAt is nil; lifting never deletes the row.
type IPBan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	IP    string `gorm:"size:45;not null;index" json:"-"`
	Scope string `gorm:"size:16;not null" json:"scope"`
	// Value names the action or tag for scoped bans; empty for global.
	Value  string `gorm:"size:64;not null;default:''" json:"value,omitempty"`
	Reason string `gorm:"size:255;not null;default:''" json:"reason,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	LiftedAt  *time.Time `json:"lifted_at,omitempty"`
}

func (IPBan) TableName() string {
	return "ip_bans"
}

// UserActionBan mirrors IPBan for account-scoped bans.
type UserActionBan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	UserID uint64 `gorm:"not null;index" json:"user_id"`
	Scope  string `gorm:"size:16;not null" json:"scope"`
	Value  string `gorm:"size:64;not null;default:''" json:"value,omitempty"`
	Reason string `gorm:"size:255;not null;default:''" json:"reason,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	LiftedAt  *time.Time `json:"lifted_at,omitempty"`
}

func (UserActionBan) TableName() string {
	return "user_action_bans"
}
