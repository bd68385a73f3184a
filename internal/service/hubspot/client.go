package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cosentus/cose-chat/backend/internal/logging"
)

const defaultBaseURL = "https://api.hubapi.com"

var (
	// ErrNotConfigured means no access token was provided.
	ErrNotConfigured = errors.New("hubspot not configured")
	// ErrContactNotFound means the search matched no contact.
	ErrContactNotFound = errors.New("contact not found")
	// ErrSearchFailed covers transport failures and non-2xx API replies.
	ErrSearchFailed = errors.New("failed to search contact")
)

// Config holds CRM API access settings.
type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// Client looks up CRM contacts by email. Results only enrich lead data; every
// failure is non-blocking for the chat flow.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logging.Logger
}

// NewClient builds a contact-search client.
func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

// Configured reports whether an access token is present.
func (c *Client) Configured() bool { return c.cfg.AccessToken != "" }

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

// SearchContact finds the first contact whose email exactly matches (case
// insensitive) and returns its identifier.
func (c *Client) SearchContact(ctx context.Context, email string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{
				PropertyName: "email",
				Operator:     "EQ",
				Value:        strings.ToLower(email),
			}},
		}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	url := c.cfg.BaseURL + "/crm/v3/objects/contacts/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("hubspot search unreachable")
		return "", ErrSearchFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error().Int("status", resp.StatusCode).Msg("hubspot search error")
		return "", ErrSearchFailed
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.log.Error().Err(err).Msg("hubspot search returned malformed body")
		return "", ErrSearchFailed
	}

	if len(result.Results) == 0 {
		return "", ErrContactNotFound
	}
	return result.Results[0].ID, nil
}
