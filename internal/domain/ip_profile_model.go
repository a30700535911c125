package domain

import "time"

const (
	// MaxUserAgentLength bounds what we persist from the User-Agent header.
	MaxUserAgentLength = 512

	StatusUnknown    = "unknown"
	StatusClean      = "clean"
	StatusSuspicious = "suspicious"
	StatusSafe       = "safe"
	StatusBanned     = "banned"

	OverrideSafe   = "safe"
	OverrideBanned = "banned"
)

// IPProfile is one row per distinct raw IP ever seen by the wiki.
type IPProfile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// The raw IP never leaves the service over HTTP; the hash does.
	IP   string `gorm:"size:45;uniqueIndex;not null" json:"-"`
	Hash string `gorm:"size:64;uniqueIndex;not null" json:"hash"`

	LastUserAgent string `gorm:"size:512;not null;default:''" json:"last_user_agent"`
	IsBot         bool   `gorm:"not null;default:false" json:"is_bot"`
	BotReason     string `gorm:"size:255;not null;default:''" json:"bot_reason"`

	// AutoStatus is machine-computed; Override is moderator-set and wins
	// whenever present; Status is the value every consumer reads.
	AutoStatus string  `gorm:"size:16;not null;default:'unknown'" json:"auto_status"`
	Override   *string `gorm:"size:16" json:"override"`
	Status     string  `gorm:"size:16;not null;default:'unknown';index" json:"status"`

	IsVPN        bool `gorm:"not null;default:false" json:"is_vpn"`
	IsProxy      bool `gorm:"not null;default:false" json:"is_proxy"`
	IsTor        bool `gorm:"not null;default:false" json:"is_tor"`
	IsDatacenter bool `gorm:"not null;default:false" json:"is_datacenter"`
	IsAbuser     bool `gorm:"not null;default:false" json:"is_abuser"`

	Summary    string     `gorm:"type:text;not null;default:''" json:"summary"`
	RawPayload []byte     `gorm:"type:jsonb" json:"-"`
	CheckedAt  *time.Time `gorm:"index" json:"checked_at"`

	ClaimedByUserID *uint64    `gorm:"index" json:"claimed_by_user_id"`
	ClaimedAt       *time.Time `json:"claimed_at"`

	FirstSeenAt time.Time `gorm:"autoCreateTime" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"not null" json:"last_seen_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IPProfile) TableName() string {
	return "ip_profiles"
}

// EffectiveStatus resolves the visible status: override wins when set.
func (p *IPProfile) EffectiveStatus() string {
	if p.Override != nil && (*p.Override == OverrideSafe || *p.Override == OverrideBanned) {
		return *p.Override
	}
	return p.AutoStatus
}
