package reputation

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// GeoFallback fills location fields locally when the geolocation HTTP source
// is down. Optional; a nil fallback simply leaves the gap.
type GeoFallback interface {
	LookupCity(ip string) (*GeoResult, bool)
}

// Report holds whatever subset of the three sources succeeded, plus the
// per-source failure strings. It is persisted verbatim as the profile's raw
// payload.
type Report struct {
	IPAPI  *IPAPIResult `json:"ipapi,omitempty"`
	Spam   *SpamResult  `json:"stopforumspam,omitempty"`
	Geo    *GeoResult   `json:"geo,omitempty"`
	Errors []string     `json:"errors,omitempty"`
}

// SourcesResponded counts upstream sources that actually answered. GeoLite
// fallback data is local and does not count.
func (r *Report) SourcesResponded() int {
	n := 0
	if r.IPAPI != nil {
		n++
	}
	if r.Spam != nil {
		n++
	}
	if r.Geo != nil && !r.Geo.Fallback {
		n++
	}
	return n
}

// Aggregator fans out to the three reputation sources concurrently. Each call
// gets its own timeout context derived from the caller's context, so one
// source timing out never cancels its siblings, and each outcome is captured
// independently.
type Aggregator struct {
	vpn      VPNClassifier
	spam     SpamRegistry
	geo      GeoLocator
	fallback GeoFallback
	timeout  time.Duration
}

func NewAggregator(vpn VPNClassifier, spam SpamRegistry, geo GeoLocator, timeout time.Duration) *Aggregator {
	return &Aggregator{vpn: vpn, spam: spam, geo: geo, timeout: timeout}
}

// NewHTTPAggregator wires the three real HTTP clients against the configured
// endpoints, sharing one transport.
func NewHTTPAggregator(ipapiEndpoint, spamEndpoint, geoEndpoint string, timeout time.Duration) *Aggregator {
	client := &http.Client{}
	return NewAggregator(
		&IPAPIClient{Endpoint: ipapiEndpoint, Client: client},
		&StopForumSpamClient{Endpoint: spamEndpoint, Client: client},
		&IPWhoisClient{Endpoint: geoEndpoint, Client: client},
		timeout,
	)
}

// WithGeoFallback attaches a local GeoLite reader used only when the
// geolocation HTTP source fails.
func (a *Aggregator) WithGeoFallback(fallback GeoFallback) *Aggregator {
	a.fallback = fallback
	return a
}

// Query issues the three lookups concurrently and returns whatever subset
// succeeded. It never returns an error: total failure yields a Report with
// three entries in Errors and nil results.
func (a *Aggregator) Query(ctx context.Context, ip string) *Report {
	report := &Report{}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	fail := func(source string, err error) {
		mu.Lock()
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", source, err))
		mu.Unlock()
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		result, err := a.vpn.Lookup(callCtx, ip)
		if err != nil {
			fail("ipapi", err)
			return
		}
		mu.Lock()
		report.IPAPI = result
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		result, err := a.spam.Lookup(callCtx, ip)
		if err != nil {
			fail("stopforumspam", err)
			return
		}
		mu.Lock()
		report.Spam = result
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		result, err := a.geo.Lookup(callCtx, ip)
		if err != nil {
			fail("geo", err)
			return
		}
		mu.Lock()
		report.Geo = result
		mu.Unlock()
	}()

	wg.Wait()

	if report.Geo == nil && a.fallback != nil {
		if local, ok := a.fallback.LookupCity(ip); ok {
			local.Fallback = true
			report.Geo = local
			log.Debug("geo source down, used local GeoLite data", "ip", ip)
		}
	}

	return report
}
