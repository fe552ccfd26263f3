package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	tokenURL     = "https://www.strava.com/oauth/token"
	authorizeURL = "https://www.strava.com/oauth/authorize"
	apiBaseURL   = "https://www.strava.com/api/v3"

	// Scopes needed to read the athlete's full activity stream.
	DefaultScopes = "read,activity:read_all"
)

var (
	ErrUnauthorized = errors.New("strava: request unauthorized")
	ErrNotFound     = errors.New("strava: resource not found")
)

// Client is a minimal Strava API client covering the OAuth token flows and
// the activity reads this application needs.
type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

// NewClient creates a Strava API client with the registered application
// credentials.
func NewClient(clientID, clientSecret, redirectURI string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// TokenResponse is the payload of both the code-exchange and refresh flows.
// ExpiresAt is a unix timestamp.
type TokenResponse struct {
	TokenType    string   `json:"token_type"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"`
	ExpiresIn    int64    `json:"expires_in"`
	Athlete      *Athlete `json:"athlete,omitempty"` // Only present on code exchange
}

// Athlete is the subset of the Strava athlete object we store.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// SummaryActivity is the subset of Strava's activity representation the
// importer consumes. Raw is the original payload, kept for archiving.
type SummaryActivity struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	SportType      string  `json:"sport_type"`
	Distance       float64 `json:"distance"`
	MovingTime     int64   `json:"moving_time"`
	ElapsedTime    int64   `json:"elapsed_time"`
	StartDate      time.Time `json:"start_date"`
	StartDateLocal time.Time `json:"start_date_local"`
	Timezone       string  `json:"timezone"` // e.g. "(GMT-08:00) America/Los_Angeles"
	Athlete        struct {
		ID int64 `json:"id"`
	} `json:"athlete"`
	Raw json.RawMessage `json:"-"`
}

// AuthorizationURL builds the user-facing OAuth consent URL.
func (c *Client) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("approval_prompt", "auto")
	q.Set("scope", DefaultScopes)
	q.Set("state", state)
	return authorizeURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	return c.postToken(ctx, form)
}

// RefreshToken trades a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("strava: token endpoint returned status %d", resp.StatusCode)
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

// ListAthleteActivities returns one page of the authenticated athlete's
// activities, most recent first.
func (c *Client) ListAthleteActivities(ctx context.Context, accessToken string, page, perPage int) ([]SummaryActivity, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 30
	}
	endpoint := fmt.Sprintf("%s/athlete/activities?page=%d&per_page=%d", apiBaseURL, page, perPage)

	body, err := c.getJSON(ctx, accessToken, endpoint)
	if err != nil {
		return nil, err
	}

	// Decode twice: once into the typed slice, once into raw messages so each
	// activity keeps its original payload for the archive.
	var activities []SummaryActivity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	for i := range activities {
		activities[i].Raw = raws[i]
	}
	return activities, nil
}

// GetActivity fetches a single activity by its Strava id.
func (c *Client) GetActivity(ctx context.Context, accessToken string, activityID int64) (*SummaryActivity, error) {
	endpoint := apiBaseURL + "/activities/" + strconv.FormatInt(activityID, 10)

	body, err := c.getJSON(ctx, accessToken, endpoint)
	if err != nil {
		return nil, err
	}

	var activity SummaryActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, err
	}
	activity.Raw = body
	return &activity, nil
}

func (c *Client) getJSON(ctx context.Context, accessToken, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("strava: %s returned status %d", endpoint, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// ParseTimezone extracts the IANA identifier from Strava's timezone format,
// e.g. "(GMT-08:00) America/Los_Angeles" -> "America/Los_Angeles". Returns
// the input unchanged when it already looks like a bare identifier, and ""
// for empty input.
func ParseTimezone(stravaTimezone string) string {
	tz := strings.TrimSpace(stravaTimezone)
	if tz == "" {
		return ""
	}
	if idx := strings.LastIndex(tz, " "); idx >= 0 {
		tz = tz[idx+1:]
	}
	return tz
}
