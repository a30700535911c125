package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// VPNClassifier answers "what kind of network does this IP sit on" —
// VPN/proxy/Tor/datacenter detection plus the provider's own abuse flag.
type VPNClassifier interface {
	Lookup(ctx context.Context, ip string) (*IPAPIResult, error)
}

// SpamRegistry reports whether an IP appears in a crowd-sourced spam ledger.
type SpamRegistry interface {
	Lookup(ctx context.Context, ip string) (*SpamResult, error)
}

// GeoLocator resolves location, ISP and ASN details for an IP.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (*GeoResult, error)
}

type IPAPIResult struct {
	IsVPN        bool `json:"is_vpn"`
	IsProxy      bool `json:"is_proxy"`
	IsTor        bool `json:"is_tor"`
	IsDatacenter bool `json:"is_datacenter"`
	IsAbuser     bool `json:"is_abuser"`

	CompanyName    string `json:"company_name,omitempty"`
	ConnectionType string `json:"connection_type,omitempty"`
	DatacenterName string `json:"datacenter_name,omitempty"`

	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	ASN     uint32 `json:"asn,omitempty"`
	ASNName string `json:"asn_name,omitempty"`
}

type SpamResult struct {
	Appears    bool    `json:"appears"`
	Confidence float64 `json:"confidence,omitempty"`
	Frequency  int     `json:"frequency,omitempty"`
	LastSeen   string  `json:"last_seen,omitempty"`
}

type GeoResult struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	ISP      string `json:"isp,omitempty"`
	Org      string `json:"org,omitempty"`
	ASN      uint32 `json:"asn,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	// Fallback marks data filled from the local GeoLite database after the
	// HTTP source failed. Fallback data never counts as a responding source.
	Fallback bool `json:"fallback,omitempty"`
}

// IPAPIClient talks to an ipapi.is-style classifier: GET <endpoint>/?q=<ip>.
type IPAPIClient struct {
	Endpoint string
	Client   *http.Client
}

func (c *IPAPIClient) Lookup(ctx context.Context, ip string) (*IPAPIResult, error) {
	var parsed struct {
		IsVPN        bool `json:"is_vpn"`
		IsProxy      bool `json:"is_proxy"`
		IsTor        bool `json:"is_tor"`
		IsDatacenter bool `json:"is_datacenter"`
		IsAbuser     bool `json:"is_abuser"`
		Company      struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"company"`
		Datacenter struct {
			Datacenter string `json:"datacenter"`
		} `json:"datacenter"`
		Location struct {
			City     string `json:"city"`
			State    string `json:"state"`
			Country  string `json:"country"`
			Timezone string `json:"timezone"`
		} `json:"location"`
		ASN struct {
			ASN uint32 `json:"asn"`
			Org string `json:"org"`
		} `json:"asn"`
	}

	if err := getJSON(ctx, c.Client, c.Endpoint+"/?q="+ip, &parsed); err != nil {
		return nil, err
	}

	return &IPAPIResult{
		IsVPN:          parsed.IsVPN,
		IsProxy:        parsed.IsProxy,
		IsTor:          parsed.IsTor,
		IsDatacenter:   parsed.IsDatacenter,
		IsAbuser:       parsed.IsAbuser,
		CompanyName:    parsed.Company.Name,
		ConnectionType: parsed.Company.Type,
		DatacenterName: parsed.Datacenter.Datacenter,
		City:           parsed.Location.City,
		Region:         parsed.Location.State,
		Country:        parsed.Location.Country,
		Timezone:       parsed.Location.Timezone,
		ASN:            parsed.ASN.ASN,
		ASNName:        parsed.ASN.Org,
	}, nil
}

// StopForumSpamClient queries a StopForumSpam-style registry:
// GET <endpoint>?ip=<ip>&json=1.
type StopForumSpamClient struct {
	Endpoint string
	Client   *http.Client
}

func (c *StopForumSpamClient) Lookup(ctx context.Context, ip string) (*SpamResult, error) {
	var parsed struct {
		Success int `json:"success"`
		IP      struct {
			Appears    int     `json:"appears"`
			Confidence float64 `json:"confidence"`
			Frequency  int     `json:"frequency"`
			LastSeen   string  `json:"lastseen"`
		} `json:"ip"`
	}

	if err := getJSON(ctx, c.Client, c.Endpoint+"?ip="+ip+"&json=1", &parsed); err != nil {
		return nil, err
	}
	if parsed.Success != 1 {
		return nil, fmt.Errorf("registry reported failure")
	}

	return &SpamResult{
		Appears:    parsed.IP.Appears == 1,
		Confidence: parsed.IP.Confidence,
		Frequency:  parsed.IP.Frequency,
		LastSeen:   parsed.IP.LastSeen,
	}, nil
}

// IPWhoisClient queries an ipwho.is-style geolocation service:
// GET <endpoint>/<ip>.
type IPWhoisClient struct {
	Endpoint string
	Client   *http.Client
}

func (c *IPWhoisClient) Lookup(ctx context.Context, ip string) (*GeoResult, error) {
	var parsed struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		Country    string `json:"country"`
		Region     string `json:"region"`
		City       string `json:"city"`
		Connection struct {
			ISP string `json:"isp"`
			Org string `json:"org"`
			ASN uint32 `json:"asn"`
		} `json:"connection"`
		Timezone struct {
			ID string `json:"id"`
		} `json:"timezone"`
	}

	if err := getJSON(ctx, c.Client, strings.TrimSuffix(c.Endpoint, "/")+"/"+ip, &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success {
		if parsed.Message != "" {
			return nil, fmt.Errorf("lookup rejected: %s", parsed.Message)
		}
		return nil, fmt.Errorf("lookup rejected")
	}

	return &GeoResult{
		Country:  parsed.Country,
		Region:   parsed.Region,
		City:     parsed.City,
		ISP:      parsed.Connection.ISP,
		Org:      parsed.Connection.Org,
		ASN:      parsed.Connection.ASN,
		Timezone: parsed.Timezone.ID,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
