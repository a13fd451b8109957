// Package nominatim implements reverse geocoding against an OpenStreetMap Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent satisfies the Nominatim usage policy.
	DefaultUserAgent = "floodwatch/1.0 (+https://floodwatch.in)"
)

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the public server).
	BaseURL string

	// Language is sent as accept-language (optional, defaults to "en").
	Language string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim reverse-geocoding client.
type Client struct {
	baseURL    string
	language   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	language := cfg.Language
	if language == "" {
		language = "en"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.UserAgent = DefaultUserAgent
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// ReverseGeocode maps a coordinate to a region.
func (c *Client) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (*geo.Region, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', 6, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("accept-language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.Unavailable("reverse geocode", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fault.Malformed("decoding response", err)
	}
	if body.Error != "" {
		return nil, fault.Malformed("reverse geocode", fmt.Errorf("provider error: %s", body.Error))
	}

	region := toRegion(&body)
	c.logger.Debug().
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Str("state", region.State).
		Str("district", region.District).
		Msg("reverse geocoded")

	return region, nil
}

type reverseResponse struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	State         string `json:"state"`
	Region        string `json:"region"`
	StateDistrict string `json:"state_district"`
	County        string `json:"county"`
	District      string `json:"district"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Country       string `json:"country"`
}

// toRegion maps Nominatim address fields onto a region. The result is not
// normalized; an empty state is left for the resolver to reject.
func toRegion(r *reverseResponse) *geo.Region {
	a := r.Address
	return &geo.Region{
		State:            firstNonEmpty(a.State, a.Region),
		District:         firstNonEmpty(a.StateDistrict, a.County, a.District, a.City),
		City:             firstNonEmpty(a.City, a.Town, a.Village),
		Country:          firstNonEmpty(a.Country, geo.DefaultCountry),
		FormattedAddress: r.DisplayName,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
