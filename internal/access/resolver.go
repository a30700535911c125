package access

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ipwarden/internal/domain"
)

// Subject names which ledger produced a deny decision.
const (
	SubjectUser = "user"
	SubjectIP   = "ip"
)

// Ban is the ledger-neutral view of one ban entry. Both the IP ledger and the
// account ledger reduce to this shape so they share resolution logic.
type Ban struct {
	ID        uint64     `json:"id"`
	Scope     string     `json:"scope"`
	Value     string     `json:"value,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LiftedAt  *time.Time `json:"lifted_at,omitempty"`
}

func (b Ban) Active() bool {
	return b.LiftedAt == nil
}

// Decision is the outcome of an access check.
type Decision struct {
	Banned  bool   `json:"banned"`
	Subject string `json:"subject,omitempty"`
	Ban     *Ban   `json:"ban,omitempty"`
}

// Match scans active bans most-recent-first and returns the first one whose
// scope applies. Precedence is recency-based, not severity-based: a newer
// scoped ban is checked before an older global one, but a non-matching scope
// just moves the scan along, so the global ban is still found. Deliberate —
// do not reorder this to a fixed severity ranking.
func Match(bans []Ban, action string, tags []string) *Ban {
	ordered := make([]Ban, len(bans))
	copy(ordered, bans)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID > ordered[j].ID
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	for i := range ordered {
		ban := &ordered[i]
		if !ban.Active() {
			continue
		}

		switch ban.Scope {
		case domain.BanScopeGlobal:
			return ban
		case domain.BanScopeAction:
			if action != "" && action == ban.Value {
				return ban
			}
		case domain.BanScopeTag:
			for _, tag := range tags {
				if tag == ban.Value {
					return ban
				}
			}
		}
	}

	return nil
}

// LedgerStore loads the active ban entries for one subject. Lifted bans may
// be omitted by the implementation; Match skips them regardless.
type LedgerStore interface {
	ActiveIPBans(ctx context.Context, ip string) ([]Ban, error)
	ActiveUserBans(ctx context.Context, userID uint64) ([]Ban, error)
}

// Resolver merges the two ban ledgers into a single allow/deny decision.
type Resolver struct {
	store LedgerStore
}

func NewResolver(store LedgerStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveAccess checks the account ledger first when a user identity is
// present; the IP ledger is only consulted if the account is not banned, so
// account-level bans take precedence over IP-level ones.
func (r *Resolver) ResolveAccess(ctx context.Context, ip string, userID uint64, action string, tags []string) (Decision, error) {
	if userID != 0 {
		bans, err := r.store.ActiveUserBans(ctx, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("load user bans: %w", err)
		}
		if ban := Match(bans, action, tags); ban != nil {
			return Decision{Banned: true, Subject: SubjectUser, Ban: ban}, nil
		}
	}

	if ip != "" {
		bans, err := r.store.ActiveIPBans(ctx, ip)
		if err != nil {
			return Decision{}, fmt.Errorf("load ip bans: %w", err)
		}
		if ban := Match(bans, action, tags); ban != nil {
			return Decision{Banned: true, Subject: SubjectIP, Ban: ban}, nil
		}
	}

	return Decision{}, nil
}
