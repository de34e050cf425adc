package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// hotspotPath is the router RCI endpoint listing known hosts.
const hotspotPath = "/rci/show/ip/hotspot"

// HTTPSourceOptions configures an HTTPSource.
type HTTPSourceOptions struct {
	// BaseURL is the router admin interface, e.g. "http://192.168.1.1".
	BaseURL string

	// Username and Password are sent as HTTP basic auth when set.
	Username string
	Password string

	// Timeout bounds each snapshot request. Defaults to 5s.
	Timeout time.Duration
}

// HTTPSource reads host snapshots from the router's HTTP admin interface.
type HTTPSource struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewHTTPSource creates a router-backed presence source.
func NewHTTPSource(opts HTTPSourceOptions) (*HTTPSource, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrRouterUnavailable)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPSource{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		password: opts.Password,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// routerHost is the router's wire representation of a known host.
type routerHost struct {
	IP     string `json:"ip"`
	MAC    string `json:"mac"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Uptime int64  `json:"uptime"`
}

type hotspotResponse struct {
	Host []routerHost `json:"host"`
}

// Snapshot returns the router's current host list.
// Returns ErrRouterUnavailable when the router cannot be reached and
// ErrBadSnapshot when the response cannot be decoded.
func (s *HTTPSource) Snapshot(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+hotspotPath, nil)
	if err != nil {
		return nil, fmt.Errorf("building snapshot request: %w", err)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRouterUnavailable, resp.StatusCode)
	}

	var payload hotspotResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	entries := make([]Entry, 0, len(payload.Host))
	for _, h := range payload.Host {
		entries = append(entries, Entry{
			Address:  h.IP,
			MAC:      h.MAC,
			Hostname: h.Name,
			Online:   h.Active,
			Uptime:   h.Uptime,
		})
	}
	return entries, nil
}
