// Package trust ties the hashing, bot detection, reputation, and ban layers
// together behind one service the HTTP handlers and jobs talk to.
package trust

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"ipwarden/internal/access"
	"ipwarden/internal/botcheck"
	"ipwarden/internal/config"
	"ipwarden/internal/database"
	"ipwarden/internal/domain"
	"ipwarden/internal/geolite"
	"ipwarden/internal/identity"
	"ipwarden/internal/refresh"
	"ipwarden/internal/reputation"
	"ipwarden/internal/support"
)

var (
	ErrInvalidIP      = errors.New("trust: not a valid IP address")
	ErrUnknownProfile = errors.New("trust: no profile for that identity")
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

type Service struct {
	hasher      *identity.Hasher
	bots        *botcheck.Classifier
	coordinator *refresh.Coordinator
	resolver    *access.Resolver
	geo         *geolite.Reader

	refreshTimeout time.Duration

	// schedule runs fire-and-forget work; tests swap it for an inline call.
	schedule func(task func())
}

// Option tweaks a Service after the default wiring, mostly for tests.
type Option func(*Service)

// WithScheduler replaces the fire-and-forget runner.
func WithScheduler(fn func(task func())) Option {
	return func(s *Service) {
		s.schedule = fn
	}
}

// WithQuerier swaps the reputation fan-out behind the refresh coordinator.
func WithQuerier(q refresh.Querier) Option {
	return func(s *Service) {
		s.coordinator = refresh.NewCoordinator(database.Profiles{}, q, config.GetConfig().RefreshWindow())
	}
}

// NewService wires the full pipeline from the current settings file.
func NewService(opts ...Option) *Service {
	cfg := config.GetConfig()

	agg := reputation.NewHTTPAggregator(
		cfg.Reputation.IPAPIEndpoint,
		cfg.Reputation.SpamEndpoint,
		cfg.Reputation.GeoEndpoint,
		cfg.SourceTimeout(),
	)

	var geoReader *geolite.Reader
	if cfg.GeoLite.CityDBPath != "" {
		geoReader = geolite.NewReader(cfg.GeoLite.CityDBPath)
		agg = agg.WithGeoFallback(geoReader)
	}

	svc := &Service{
		hasher:         identity.NewHasher(support.GetEnv("IP_HASH_SALT", "ipwarden-dev-salt")),
		bots:           botcheck.NewClassifier(cfg.Bot.ServiceURL, cfg.BotTimeout(), cfg.Bot.CacheSize),
		coordinator:    refresh.NewCoordinator(database.Profiles{}, agg, cfg.RefreshWindow()),
		resolver:       access.NewResolver(database.Ledger{}),
		geo:            geoReader,
		refreshTimeout: support.GetEnvDuration("REFRESH_TIMEOUT", 3*cfg.SourceTimeout()),
	}
	svc.schedule = func(task func()) { go task() }
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Hash exposes the identity hash for an IP without touching storage.
func (s *Service) Hash(ip string) string {
	return s.hasher.Hash(ip)
}

// Touch records a visit: hash the IP, classify the user agent, upsert the
// profile, and kick off a reputation refresh in the background. The refresh
// never blocks the visit and its failures are only logged.
func (s *Service) Touch(ctx context.Context, ip, userAgent string, userID uint64) (*domain.IPProfile, error) {
	// Callers routinely pass an absent IP (proxied requests, tests); that
	// is a no-op, not an error.
	if ip == "" {
		return nil, nil
	}
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	bot := s.bots.Classify(ctx, userAgent)

	profile, created, err := database.TouchIPProfile(ctx, database.TouchInput{
		IP:        ip,
		Hash:      s.hasher.Hash(ip),
		UserAgent: bot.UserAgent,
		IsBot:     bot.IsBot,
		BotReason: bot.Reason,
		UserID:    userID,
	})
	if err != nil {
		return nil, err
	}
	if created {
		log.Debug("New IP profile", "hash", identity.ShortLabel(profile.Hash, identity.DefaultLabelLength))
	}

	s.schedule(func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		if _, err := s.coordinator.Refresh(refreshCtx, ip, false); err != nil {
			log.Error("Background reputation refresh failed", "error", err)
		}
	})

	return profile, nil
}

// RefreshNow runs a reputation refresh inline, honouring the staleness
// window unless force is set. Accepts a raw IP or an identity hash.
func (s *Service) RefreshNow(ctx context.Context, key string, force bool) (*domain.IPProfile, error) {
	ip := key
	if hashPattern.MatchString(key) {
		profile, err := database.GetProfileByHash(ctx, key)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, nil
		}
		ip = profile.IP
	}
	return s.coordinator.Refresh(ctx, ip, force)
}

// ProfileView is a profile plus the context moderators see: activity
// aggregates and the active bans against the IP.
type ProfileView struct {
	Profile  *domain.IPProfile   `json:"profile"`
	Label    string              `json:"label"`
	Activity map[string]int64    `json:"activity"`
	Recent   []domain.IPActivity `json:"recent"`
	Bans     []access.Ban        `json:"bans"`
}

// GetProfile looks a profile up by raw IP or by identity hash.
func (s *Service) GetProfile(ctx context.Context, key string) (*ProfileView, error) {
	var (
		profile *domain.IPProfile
		err     error
	)
	if hashPattern.MatchString(key) {
		profile, err = database.GetProfileByHash(ctx, key)
	} else {
		if net.ParseIP(key) == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIP, key)
		}
		profile, err = database.GetProfileByIP(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUnknownProfile
	}
	return s.buildView(ctx, profile)
}

func (s *Service) buildView(ctx context.Context, profile *domain.IPProfile) (*ProfileView, error) {
	activity, err := database.CountActivity(ctx, profile.IP)
	if err != nil {
		return nil, err
	}
	recent, err := database.RecentActivity(ctx, profile.IP, 10)
	if err != nil {
		return nil, err
	}
	bans, err := database.Ledger{}.ActiveIPBans(ctx, profile.IP)
	if err != nil {
		return nil, err
	}
	return &ProfileView{
		Profile:  profile,
		Label:    identity.ShortLabel(profile.Hash, identity.DefaultLabelLength),
		Activity: activity,
		Recent:   recent,
		Bans:     bans,
	}, nil
}

// ReviewPage is one page of the moderation queue.
type ReviewPage struct {
	Profiles []ProfileView `json:"profiles"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListForReview pages through suspicious profiles awaiting a moderator call.
func (s *Service) ListForReview(ctx context.Context, page int) (*ReviewPage, error) {
	pageSize := config.GetConfig().Review.PageSize
	if pageSize < 1 {
		pageSize = 25
	}

	profiles, total, err := database.ListProfilesForReview(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]ProfileView, 0, len(profiles))
	for i := range profiles {
		view, err := s.buildView(ctx, &profiles[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	if page < 1 {
		page = 1
	}
	return &ReviewPage{Profiles: views, Total: total, Page: page, PageSize: pageSize}, nil
}

// MarkSafe records a moderator's safe verdict for an identity hash.
func (s *Service) MarkSafe(ctx context.Context, hash string) (*domain.IPProfile, error) {
	return s.setOverride(ctx, hash, domain.OverrideSafe)
}

// MarkBanned records a moderator's banned verdict for an identity hash.
func (s *Service) MarkBanned(ctx context.Context, hash string) (*domain.IPProfile, error) {
	return s.setOverride(ctx, hash, domain.OverrideBanned)
}

// ClearOverride removes the moderator verdict; the machine status shows again.
func (s *Service) ClearOverride(ctx context.Context, hash string) (*domain.IPProfile, error) {
	profile, err := database.SetOverride(ctx, hash, nil)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUnknownProfile
	}
	return profile, nil
}

func (s *Service) setOverride(ctx context.Context, hash, verdict string) (*domain.IPProfile, error) {
	profile, err := database.SetOverride(ctx, hash, &verdict)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUnknownProfile
	}
	log.Info("Moderator override", "hash", identity.ShortLabel(hash, identity.DefaultLabelLength), "verdict", verdict)
	return profile, nil
}

// ResolveAccess answers whether a visitor may perform an action right now.
func (s *Service) ResolveAccess(ctx context.Context, ip string, userID uint64, action string, tags []string) (access.Decision, error) {
	return s.resolver.ResolveAccess(ctx, ip, userID, action, tags)
}

// BanIP appends a ban to the IP ledger.
func (s *Service) BanIP(ctx context.Context, ip, scope, value, reason string) (*domain.IPBan, error) {
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	if err := validateScope(scope, value); err != nil {
		return nil, err
	}
	return database.CreateIPBan(ctx, ip, scope, value, reason)
}

// BanUserAction appends a ban to the account ledger.
func (s *Service) BanUserAction(ctx context.Context, userID uint64, scope, value, reason string) (*domain.UserActionBan, error) {
	if userID == 0 {
		return nil, errors.New("trust: account bans need a user id")
	}
	if err := validateScope(scope, value); err != nil {
		return nil, err
	}
	return database.CreateUserActionBan(ctx, userID, scope, value, reason)
}

// LiftIPBan marks an IP ban as lifted, keeping the ledger row.
func (s *Service) LiftIPBan(ctx context.Context, id uint64) (bool, error) {
	return database.LiftIPBan(ctx, id)
}

// LiftUserBan marks an account ban as lifted, keeping the ledger row.
func (s *Service) LiftUserBan(ctx context.Context, id uint64) (bool, error) {
	return database.LiftUserActionBan(ctx, id)
}

func validateScope(scope, value string) error {
	switch scope {
	case domain.BanScopeGlobal:
		if value != "" {
			return errors.New("trust: global bans take no value")
		}
	case domain.BanScopeAction, domain.BanScopeTag:
		if value == "" {
			return fmt.Errorf("trust: %s bans need a value", scope)
		}
	default:
		return fmt.Errorf("trust: unknown ban scope %q", scope)
	}
	return nil
}

// RecordActivity attributes one visitor action to an IP.
func (s *Service) RecordActivity(ctx context.Context, ip, kind, excerpt string) error {
	if ip == "" {
		return nil
	}
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	switch kind {
	case domain.ActivityView, domain.ActivityLike, domain.ActivityComment, domain.ActivitySubmission:
	default:
		return fmt.Errorf("trust: unknown activity kind %q", kind)
	}
	return database.RecordActivity(ctx, ip, kind, excerpt)
}

// Reset clears the in-memory bot cache and wipes profile and activity rows.
func (s *Service) Reset(ctx context.Context) error {
	s.bots.Cache().Reset()
	return database.ResetProfiles(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() {
	if s.geo != nil {
		s.geo.Close()
	}
}
