package reputation

import (
	"fmt"
	"math"
	"strings"
)

// BuildSummary renders the moderator-facing one-liner for a report: detected
// signals first, then provider, connection type, location, timezone and ASN
// from whichever source supplied them. When nothing responded it states the
// failure and lists the per-source errors instead of showing blank data.
func BuildSummary(report *Report) string {
	if report.SourcesResponded() == 0 && (report.Geo == nil || !report.Geo.Fallback) {
		if len(report.Errors) == 0 {
			return "Reputation lookup failed: no sources responded"
		}
		return "Reputation lookup failed: " + strings.Join(report.Errors, "; ")
	}

	flags := ExtractFlags(report)

	var signals []string
	if flags.VPN {
		signals = append(signals, "VPN")
	}
	if flags.Proxy {
		signals = append(signals, "Proxy")
	}
	if flags.Tor {
		signals = append(signals, "Tor")
	}
	if flags.Datacenter {
		signals = append(signals, "Datacenter")
	}
	if report.IPAPI != nil && report.IPAPI.IsAbuser {
		signals = append(signals, "Abuse risk")
	}
	if report.Spam != nil && report.Spam.Appears {
		// %.0f rounds half to even, which turns 92.5 into "92"; round up first.
		signals = append(signals, fmt.Sprintf("Spam registry hit (%.0f%% confidence)", math.Round(report.Spam.Confidence)))
	}

	var parts []string
	if len(signals) > 0 {
		parts = append(parts, "Signals: "+strings.Join(signals, ", "))
	} else {
		parts = append(parts, "No risk signals")
	}

	if provider := providerName(report); provider != "" {
		parts = append(parts, "Provider: "+provider)
	}
	if report.IPAPI != nil && report.IPAPI.ConnectionType != "" {
		parts = append(parts, "Connection: "+report.IPAPI.ConnectionType)
	}
	if location := formatLocation(report); location != "" {
		parts = append(parts, "Location: "+location)
	}
	if tz := timezone(report); tz != "" {
		parts = append(parts, "Timezone: "+tz)
	}
	if asn := formatASN(report); asn != "" {
		parts = append(parts, asn)
	}

	return strings.Join(parts, " · ")
}

func providerName(report *Report) string {
	if report.Geo != nil && report.Geo.ISP != "" {
		return report.Geo.ISP
	}
	if report.IPAPI != nil && report.IPAPI.CompanyName != "" {
		return report.IPAPI.CompanyName
	}
	if report.Geo != nil && report.Geo.Org != "" {
		return report.Geo.Org
	}
	if report.IPAPI != nil && report.IPAPI.DatacenterName != "" {
		return report.IPAPI.DatacenterName
	}
	return ""
}

// formatLocation joins city, region and country, skipping empty and
// duplicated levels ("Singapore, Singapore" collapses to one).
func formatLocation(report *Report) string {
	var city, region, country string
	switch {
	case report.Geo != nil:
		city, region, country = report.Geo.City, report.Geo.Region, report.Geo.Country
	case report.IPAPI != nil:
		city, region, country = report.IPAPI.City, report.IPAPI.Region, report.IPAPI.Country
	}

	var levels []string
	for _, level := range []string{city, region, country} {
		if level == "" {
			continue
		}
		if len(levels) > 0 && levels[len(levels)-1] == level {
			continue
		}
		levels = append(levels, level)
	}
	return strings.Join(levels, ", ")
}

func timezone(report *Report) string {
	if report.Geo != nil && report.Geo.Timezone != "" {
		return report.Geo.Timezone
	}
	if report.IPAPI != nil {
		return report.IPAPI.Timezone
	}
	return ""
}

func formatASN(report *Report) string {
	var number uint32
	var name string

	if report.Geo != nil && report.Geo.ASN != 0 {
		number = report.Geo.ASN
	}
	if report.IPAPI != nil {
		if number == 0 {
			number = report.IPAPI.ASN
		}
		name = report.IPAPI.ASNName
	}

	if number == 0 {
		return ""
	}
	if name != "" {
		return fmt.Sprintf("AS%d (%s)", number, name)
	}
	return fmt.Sprintf("AS%d", number)
}
