package reputation

import "ipwarden/internal/domain"

// Flags are the boolean risk signals distilled from a report.
type Flags struct {
	VPN        bool `json:"is_vpn"`
	Proxy      bool `json:"is_proxy"`
	Tor        bool `json:"is_tor"`
	Datacenter bool `json:"is_datacenter"`
	Abuser     bool `json:"is_abuser"`
}

func (f Flags) Any() bool {
	return f.VPN || f.Proxy || f.Tor || f.Datacenter || f.Abuser
}

// ExtractFlags computes the flag set from whatever sources responded.
// Network-type flags come from the VPN classifier alone; the abuse flag is
// the OR of the classifier's own verdict and a spam-registry appearance.
func ExtractFlags(report *Report) Flags {
	var flags Flags
	if report.IPAPI != nil {
		flags.VPN = report.IPAPI.IsVPN
		flags.Proxy = report.IPAPI.IsProxy
		flags.Tor = report.IPAPI.IsTor
		flags.Datacenter = report.IPAPI.IsDatacenter
		flags.Abuser = report.IPAPI.IsAbuser
	}
	if report.Spam != nil && report.Spam.Appears {
		flags.Abuser = true
	}
	return flags
}

// AutoStatus implements the machine classification invariant: unknown when no
// source responded at all, suspicious when any responded source raised a
// flag, clean otherwise.
func AutoStatus(report *Report) string {
	if report.SourcesResponded() == 0 {
		return domain.StatusUnknown
	}
	if ExtractFlags(report).Any() {
		return domain.StatusSuspicious
	}
	return domain.StatusClean
}
