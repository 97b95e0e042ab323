package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"valwatch/domain/entities"

	log "github.com/sirupsen/logrus"
)

const maxErrorBodyBytes = 512

// HenrikClient talks to the unofficial Valorant API at api.henrikdev.xyz. It serves both as the
// watch cycle's MatchSource and as the registration AccountResolver.
type HenrikClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	// Requests are spaced at least minInterval apart
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration

	retryDelay time.Duration
}

// NewHenrikClient creates a client for baseURL. minInterval spaces consecutive requests.
func NewHenrikClient(baseURL, apiKey string, minInterval time.Duration) *HenrikClient {
	return &HenrikClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		minInterval: minInterval,
		retryDelay:  time.Second,
	}
}

type henrikEnvelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type henrikAccount struct {
	PUUID  string `json:"puuid"`
	Region string `json:"region"`
	Name   string `json:"name"`
	Tag    string `json:"tag"`
}

// FetchRecentMatches returns the raw match payloads of an account's recent history
func (c *HenrikClient) FetchRecentMatches(ctx context.Context, region, externalID string) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/valorant/v3/by-puuid/matches/%s/%s",
		c.baseURL, url.PathEscape(region), url.PathEscape(externalID))

	data, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var matches []json.RawMessage
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode match list: %w", err)
	}

	log.WithFields(log.Fields{
		"region":  region,
		"puuid":   externalID,
		"matches": len(matches),
	}).Debug("Fetched recent matches")
	return matches, nil
}

// ResolveAccount looks up the upstream identity of a Riot ID
func (c *HenrikClient) ResolveAccount(ctx context.Context, name, tag string) (*entities.ExternalRef, error) {
	endpoint := fmt.Sprintf("%s/valorant/v1/account/%s/%s",
		c.baseURL, url.PathEscape(name), url.PathEscape(tag))

	data, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var account henrikAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	if account.PUUID == "" || account.Region == "" {
		return nil, fmt.Errorf("account %s#%s has no puuid or region", name, tag)
	}

	return &entities.ExternalRef{
		Region: strings.ToLower(account.Region),
		PUUID:  account.PUUID,
		Name:   account.Name,
		Tag:    account.Tag,
	}, nil
}

// get performs a GET request and returns the envelope's data field
func (c *HenrikClient) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	resp, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &entities.SourceUnavailableError{Status: resp.StatusCode, Body: string(body)}
	}

	var envelope henrikEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return envelope.Data, nil
}

// doRequest performs a rate limited request and retries once on 429
func (c *HenrikClient) doRequest(ctx context.Context, endpoint string) (*http.Response, error) {
	resp, err := c.send(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		return resp, nil
	}
	resp.Body.Close()

	log.WithField("endpoint", endpoint).Warn("Match source rate limited, retrying once")
	if err := sleepContext(ctx, c.retryDelay); err != nil {
		return nil, err
	}
	return c.send(ctx, endpoint)
}

func (c *HenrikClient) send(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := c.waitTurn(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	return c.httpClient.Do(req)
}

// waitTurn blocks until minInterval has passed since the previous request
func (c *HenrikClient) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if wait := c.minInterval - time.Since(c.lastRequest); wait > 0 {
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}
	c.lastRequest = time.Now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
