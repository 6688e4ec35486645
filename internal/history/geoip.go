package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bambooreports/securedelivery/internal/models"
)

// DefaultGeoEndpoint is the free ipapi.co service root.
const DefaultGeoEndpoint = "https://ipapi.co"

// GeoClient resolves an IP address to coarse location facts. Lookups are
// best-effort: every failure degrades to a nil result so they can never
// block a listing or download.
type GeoClient struct {
	httpClient *http.Client
	endpoint   string
}

func NewGeoClient(endpoint string) *GeoClient {
	if endpoint == "" {
		endpoint = DefaultGeoEndpoint
	}
	return &GeoClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		endpoint:   endpoint,
	}
}

// Lookup returns the geo facts for the given IP address, or nil when the
// service is unreachable, slow, or returns garbage. An empty ip resolves
// the requesting host itself.
func (c *GeoClient) Lookup(ctx context.Context, ip string) *models.GeoInfo {
	url := c.endpoint + "/json/"
	if ip != "" {
		url = c.endpoint + "/" + ip + "/json/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Debug("Geo lookup skipped.", "error", err)
		return nil
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("Geo lookup failed.", "error", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Debug("Geo lookup failed.", "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		IP          string `json:"ip"`
		City        string `json:"city"`
		Region      string `json:"region"`
		CountryName string `json:"country_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		slog.Debug("Geo lookup returned malformed payload.", "error", err)
		return nil
	}
	return &models.GeoInfo{
		IP:      payload.IP,
		City:    payload.City,
		Region:  payload.Region,
		Country: payload.CountryName,
	}
}

// FormatLocation joins the present location parts for display.
func FormatLocation(city, region, country string) string {
	var parts []string
	if city != "" {
		parts = append(parts, city)
	}
	if region != "" && region != city {
		parts = append(parts, region)
	}
	if country != "" {
		parts = append(parts, country)
	}
	if len(parts) == 0 {
		return "Unknown Location"
	}
	return strings.Join(parts, ", ")
}
