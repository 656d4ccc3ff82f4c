package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Provider resolves an address against an external geocoder. Implementations
// return ErrNoMatch when the address is unknown and ErrUpstream for
// everything else that went wrong.
type Provider interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// GoogleClient wraps the Google Maps Geocoding API.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleClient returns nil when apiKey is empty so callers can degrade to
// a CONFIG error instead of failing at startup.
func NewGoogleClient(apiKey string, timeout time.Duration) *GoogleClient {
	if apiKey == "" {
		return nil
	}
	return &GoogleClient{
		apiKey:     apiKey,
		baseURL:    DefaultGoogleBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at another endpoint (tests, proxies).
func (c *GoogleClient) WithBaseURL(u string) *GoogleClient {
	c.baseURL = u
	return c
}

type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
}

type geocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Geometry         geometry `json:"geometry"`
}

type geometry struct {
	Location latLng `json:"location"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c *GoogleClient) Geocode(ctx context.Context, address string) (*Result, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)
	u := c.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrUpstream, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: geocoding request: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geocoding API returned HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var geoResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}

	switch geoResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNoMatch
	default:
		if geoResp.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: status=%s: %s", ErrUpstream, geoResp.Status, geoResp.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: status=%s", ErrUpstream, geoResp.Status)
	}
	if len(geoResp.Results) == 0 {
		return nil, ErrNoMatch
	}

	result := geoResp.Results[0]
	return &Result{
		Lat:              result.Geometry.Location.Lat,
		Lng:              result.Geometry.Location.Lng,
		FormattedAddress: result.FormattedAddress,
	}, nil
}
