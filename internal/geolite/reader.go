package geolite

import (
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"

	"ipwarden/internal/reputation"
)

// Reader answers city-level lookups from a local GeoLite2-City database. It
// backs the aggregator's geo fallback: location data only, no risk signals.
type Reader struct {
	path string

	mu     sync.Mutex
	opened bool
	db     *geoip2.Reader
}

func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// LookupCity resolves country/region/city for an IP. Returns false when no
// database is configured, the file cannot be opened, or the IP is unknown.
func (r *Reader) LookupCity(ip string) (*reputation.GeoResult, bool) {
	db := r.database()
	if db == nil {
		return nil, false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, false
	}

	record, err := db.City(parsed)
	if err != nil {
		log.Debug("geolite lookup failed", "ip", ip, "error", err)
		return nil, false
	}

	result := &reputation.GeoResult{
		Country: record.Country.Names["en"],
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		result.Region = record.Subdivisions[0].Names["en"]
	}
	if record.Location.TimeZone != "" {
		result.Timezone = record.Location.TimeZone
	}

	if result.Country == "" && result.City == "" {
		return nil, false
	}
	return result, true
}

// database opens the mmdb lazily and caches the handle. A missing or broken
// file is logged once and the reader stays disabled.
func (r *Reader) database() *geoip2.Reader {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened {
		return r.db
	}
	r.opened = true

	if r.path == "" {
		return nil
	}

	db, err := geoip2.Open(r.path)
	if err != nil {
		log.Warn("GeoLite city database unavailable, geo fallback disabled", "path", r.path, "error", err)
		return nil
	}
	r.db = db
	return r.db
}

// Close releases the mmdb handle.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.opened = false
	return err
}
