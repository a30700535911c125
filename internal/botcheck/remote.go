package botcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var remoteBotPattern = regexp.MustCompile(`(?i)bot|crawler|spider|scraper`)

type remoteResponse struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Producer struct {
		Name string `json:"name"`
	} `json:"producer"`
	Client struct {
		Type string `json:"type"`
	} `json:"client"`
}

// Classifier layers an external classification service over the local
// signature table. Local signatures are authoritative and free, so a local
// bot hit never goes to the network; the remote call only refines agents the
// table considers human. Remote failures fail open to the local verdict.
type Classifier struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	cache    *Cache
}

func NewClassifier(endpoint string, timeout time.Duration, cacheSize int) *Classifier {
	return &Classifier{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{},
		cache:    NewCache(cacheSize),
	}
}

// Cache exposes the bounded memo store, mainly so the owning service can
// reset it between tests.
func (c *Classifier) Cache() *Cache {
	return c.cache
}

func (c *Classifier) Classify(ctx context.Context, userAgent string) Result {
	local := Classify(userAgent)
	if local.IsBot || local.UserAgent == "" {
		return local
	}

	if cached, ok := c.cache.Get(local.UserAgent); ok {
		return cached
	}

	if c.endpoint == "" {
		return local
	}

	result, err := c.queryRemote(ctx, local.UserAgent)
	if err != nil {
		// Fail open: a transient classification error must never escalate to
		// callers, and a failed verdict is not worth memoizing.
		log.Debug("bot classification service unavailable", "error", err)
		return local
	}

	c.cache.Put(local.UserAgent, result)
	return result
}

func (c *Classifier) queryRemote(ctx context.Context, normalized string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestURL := c.endpoint + "?ua=" + url.QueryEscape(normalized)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("bot service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("bot service: unexpected status %d", resp.StatusCode)
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("bot service: decode response: %w", err)
	}

	isBot := remoteBotPattern.MatchString(parsed.Category) ||
		remoteBotPattern.MatchString(parsed.Name) ||
		remoteBotPattern.MatchString(parsed.Client.Type)

	result := Result{IsBot: isBot, UserAgent: normalized}
	if isBot {
		result.Reason = remoteReason(parsed)
	}
	return result, nil
}

// remoteReason builds a moderator-readable description from whichever fields
// the service populated.
func remoteReason(parsed remoteResponse) string {
	var parts []string
	if parsed.Name != "" {
		parts = append(parts, parsed.Name)
	}
	if parsed.Category != "" {
		parts = append(parts, parsed.Category)
	}
	if parsed.Producer.Name != "" {
		parts = append(parts, "by "+parsed.Producer.Name)
	}
	if len(parts) == 0 {
		return "flagged by classification service"
	}
	return strings.Join(parts, ", ")
}
