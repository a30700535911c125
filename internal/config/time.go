package config

import "time"

// Timer expresses an interval in the settings file without forcing operators
// to write Go duration strings.
type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

func (t Timer) IsZero() bool {
	return t.Days == 0 && t.Hours == 0 && t.Minutes == 0 && t.Seconds == 0
}

func (t Timer) Duration() time.Duration {
	ms := uint64(t.Days)*24*60*60*1000 +
		uint64(t.Hours)*60*60*1000 +
		uint64(t.Minutes)*60*1000 +
		uint64(t.Seconds)*1000
	return time.Duration(ms) * time.Millisecond
}

const (
	defaultBotTimeout    = 2 * time.Second
	minBotTimeout        = 500 * time.Millisecond
	defaultSourceTimeout = 8 * time.Second
	minSourceTimeout     = 2 * time.Second
	defaultRefreshWindow = 12 * time.Hour
	minRefreshWindow     = time.Hour
	defaultSweepInterval = time.Hour
	minSweepInterval     = 5 * time.Minute
)

// BotTimeout bounds the remote bot-classification call. Floor of 500ms so a
// misconfigured value cannot make the inline touch path hang on zero-second
// timeouts or spam the upstream with instantly-cancelled requests.
func (c Config) BotTimeout() time.Duration {
	return clampDuration(time.Duration(c.Bot.TimeoutMS)*time.Millisecond, defaultBotTimeout, minBotTimeout)
}

// SourceTimeout bounds each reputation source call independently.
func (c Config) SourceTimeout() time.Duration {
	return clampDuration(time.Duration(c.Reputation.SourceTimeoutMS)*time.Millisecond, defaultSourceTimeout, minSourceTimeout)
}

// RefreshWindow is the staleness gate: the minimum age of a profile's
// checked-at timestamp before an unforced refresh hits the upstreams again.
// Floored at one hour to protect upstream rate limits.
func (c Config) RefreshWindow() time.Duration {
	if c.Reputation.RefreshTimer.IsZero() {
		return defaultRefreshWindow
	}
	return clampDuration(c.Reputation.RefreshTimer.Duration(), defaultRefreshWindow, minRefreshWindow)
}

// SweepInterval spaces out the periodic stale-profile sweep.
func (c Config) SweepInterval() time.Duration {
	if c.Runtime.SweepTimer.IsZero() {
		return defaultSweepInterval
	}
	return clampDuration(c.Runtime.SweepTimer.Duration(), defaultSweepInterval, minSweepInterval)
}

func clampDuration(value, fallback, floor time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	if value < floor {
		return floor
	}
	return value
}
