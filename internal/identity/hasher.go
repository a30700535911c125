package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultLabelLength is how many hash characters the UI shows for a profile.
const DefaultLabelLength = 10

// Hasher derives the public pseudonymous identifier for an IP. The mapping is
// deterministic for a fixed salt so the same visitor keeps the same profile
// label across process restarts.
type Hasher struct {
	salt string
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: salt}
}

// Hash returns the hex SHA-256 digest of salt concatenated with the trimmed
// IP. An empty IP yields an empty hash: callers treat "no identity" as an
// inert value, not an error.
func (h *Hasher) Hash(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(h.salt + ip))
	return hex.EncodeToString(sum[:])
}

// ShortLabel truncates and uppercases a hash for display. Purely cosmetic.
func ShortLabel(hash string, length int) string {
	if length <= 0 {
		length = DefaultLabelLength
	}
	if len(hash) > length {
		hash = hash[:length]
	}
	return strings.ToUpper(hash)
}
