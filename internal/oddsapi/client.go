package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.the-odds-api.com/v4"

// dateLayout is the ISO-8601 format the historical endpoints expect,
// with a trailing "Z".
const dateLayout = "2006-01-02T15:04:05Z"

// Client is a stateless wrapper around The Odds API. All requests carry the
// API key as a query parameter; the key is redacted from logs. Non-2xx
// responses surface as *RequestError with no retry, retries are the
// caller's responsibility.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Logger
}

// RequestError is a non-2xx response from the odds provider.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("odds API error: %d - %s", e.StatusCode, e.Body)
}

// EventOptions are optional filters for the events endpoints.
type EventOptions struct {
	DateFormat       string
	EventIDs         []string
	CommenceTimeFrom string
	CommenceTimeTo   string
}

// OddsOptions are optional filters for the odds endpoints.
type OddsOptions struct {
	Markets          []string
	DateFormat       string
	OddsFormat       string
	EventIDs         []string
	Bookmakers       []string
	CommenceTimeFrom string
	CommenceTimeTo   string
	IncludeLinks     bool
	IncludeSids      bool
	IncludeBetLimits bool
}

func NewClient(baseURL, apiKey string, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// GetSports fetches the list of sports. With all set, inactive sports are
// included too.
func (c *Client) GetSports(ctx context.Context, all bool) (json.RawMessage, error) {
	params := url.Values{}
	if all {
		// The API expects 'true' as a string, not a boolean
		params.Set("all", "true")
	}
	return c.get(ctx, "/sports", params)
}

// GetEvents fetches upcoming events for a sport.
func (c *Client) GetEvents(ctx context.Context, sport string, opts EventOptions) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/sports/%s/events", sport), opts.values())
}

// GetHistoricalEvents fetches the event list as it was at the given date.
func (c *Client) GetHistoricalEvents(ctx context.Context, sport string, date time.Time, opts EventOptions) (json.RawMessage, error) {
	params := opts.values()
	params.Set("date", date.UTC().Format(dateLayout))
	return c.get(ctx, fmt.Sprintf("/historical/sports/%s/events", sport), params)
}

// GetOdds fetches current odds for a sport over the given regions.
func (c *Client) GetOdds(ctx context.Context, sport string, regions []string, opts OddsOptions) (json.RawMessage, error) {
	params := opts.values()
	params.Set("regions", strings.Join(regions, ","))
	return c.get(ctx, fmt.Sprintf("/sports/%s/odds", sport), params)
}

// GetHistoricalOdds fetches the odds snapshot closest to the given date.
// The response is a snapshot envelope, not a bare event list.
func (c *Client) GetHistoricalOdds(ctx context.Context, sport string, regions []string, date time.Time, opts OddsOptions) (json.RawMessage, error) {
	params := opts.values()
	params.Set("regions", strings.Join(regions, ","))
	params.Set("date", date.UTC().Format(dateLayout))
	return c.get(ctx, fmt.Sprintf("/historical/sports/%s/odds", sport), params)
}

func (o EventOptions) values() url.Values {
	params := url.Values{}
	if o.DateFormat != "" {
		params.Set("dateFormat", o.DateFormat)
	}
	if len(o.EventIDs) > 0 {
		params.Set("eventIds", strings.Join(o.EventIDs, ","))
	}
	if o.CommenceTimeFrom != "" {
		params.Set("commenceTimeFrom", o.CommenceTimeFrom)
	}
	if o.CommenceTimeTo != "" {
		params.Set("commenceTimeTo", o.CommenceTimeTo)
	}
	return params
}

func (o OddsOptions) values() url.Values {
	params := url.Values{}
	if len(o.Markets) > 0 {
		params.Set("markets", strings.Join(o.Markets, ","))
	}
	if o.DateFormat != "" {
		params.Set("dateFormat", o.DateFormat)
	}
	if o.OddsFormat != "" {
		params.Set("oddsFormat", o.OddsFormat)
	}
	if len(o.EventIDs) > 0 {
		params.Set("eventIds", strings.Join(o.EventIDs, ","))
	}
	if len(o.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(o.Bookmakers, ","))
	}
	if o.CommenceTimeFrom != "" {
		params.Set("commenceTimeFrom", o.CommenceTimeFrom)
	}
	if o.CommenceTimeTo != "" {
		params.Set("commenceTimeTo", o.CommenceTimeTo)
	}
	if o.IncludeLinks {
		params.Set("includeLinks", "true")
	}
	if o.IncludeSids {
		params.Set("includeSids", "true")
	}
	if o.IncludeBetLimits {
		params.Set("includeBetLimits", "true")
	}
	return params
}

// get issues a GET request with the API key attached and returns the raw
// response body. Callers own validation and decoding.
func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	c.logger.WithFields(logrus.Fields{
		"path":   path,
		"params": redactParams(params),
	}).Debug("Requesting odds API")

	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.RawMessage(body), nil
}

// redactParams drops the API key from a parameter set for logging
func redactParams(params url.Values) url.Values {
	redacted := url.Values{}
	for k, vs := range params {
		if k == "apiKey" {
			continue
		}
		redacted[k] = vs
	}
	return redacted
}
