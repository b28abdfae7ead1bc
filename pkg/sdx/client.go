package sdx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sdx-fabric/sdxctl/pkg/auth"
	"github.com/sdx-fabric/sdxctl/pkg/util"
)

// DefaultTimeout bounds each request to the controller.
const DefaultTimeout = 6 * time.Second

// BaseURLEnvVar is probed when no base URL is configured explicitly.
const BaseURLEnvVar = "SDX_BASE_URL"

// ambiguityCandidateLimit caps how many candidate port URNs an
// ambiguous match surfaces for disambiguation.
const ambiguityCandidateLimit = 8

// Client is a stateful client for the SDX controller. It owns the
// bearer credential and the per-session endpoint selection. Operations
// are synchronous and return a Result envelope; the mutex only protects
// the mutable session state, it does not serialize whole operations.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration

	tokenSource auth.Source

	mu      sync.Mutex
	token   string
	authErr string

	first  *Endpoint
	second *Endpoint

	firstRows  []Row
	secondRows []Row
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken sets the bearer token explicitly, bypassing acquisition.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithTokenSource overrides where the bearer token is acquired from
// when none is set explicitly.
func WithTokenSource(src auth.Source) Option {
	return func(c *Client) {
		c.tokenSource = src
	}
}

// New creates a client for the controller at baseURL. An empty baseURL
// falls back to the SDX_BASE_URL environment variable; a client cannot
// be constructed without one.
//
// Token acquisition failure is not fatal: the failure is recorded and
// every operation that needs authorization refuses until SetToken is
// called.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(BaseURLEnvVar))
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required: set %s or configure base_url", BaseURLEnvVar)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{}
	}

	if c.token == "" {
		src := c.tokenSource
		if src == nil {
			src = auth.Default("")
		}
		token, err := src.Token()
		if err != nil {
			c.authErr = err.Error()
		} else {
			c.token = token
		}
	}

	return c, nil
}

// BaseURL returns the controller base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthError returns the recorded token-acquisition failure, or "" when
// a bearer token is in place.
func (c *Client) AuthError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authErr
}

// SetToken injects or replaces the bearer token at runtime. Takes
// effect for subsequent requests only.
func (c *Client) SetToken(token string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return failure("empty token")
	}
	c.mu.Lock()
	c.token = token
	c.authErr = ""
	c.mu.Unlock()
	return success(true)
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// requireAuth returns a failure Result when no bearer credential is in
// place, carrying the recorded acquisition error if there is one.
func (c *Client) requireAuth() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authErr != "" {
		res := failure("auth not ready: " + c.authErr)
		return &res
	}
	if c.token == "" {
		res := failure("auth not ready: no bearer token")
		return &res
	}
	return nil
}

// BeginSelection resets the endpoint selection and listing caches to
// empty. Idempotent.
func (c *Client) BeginSelection() Result {
	c.mu.Lock()
	c.first = nil
	c.second = nil
	c.firstRows = nil
	c.secondRows = nil
	c.mu.Unlock()
	return success(true)
}

// ClearSelection is an alias for BeginSelection.
func (c *Client) ClearSelection() Result {
	return c.BeginSelection()
}

// SelectedEndpoints reports the current selection. Unset slots are null.
func (c *Client) SelectedEndpoints() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return success(map[string]any{"first": c.first, "second": c.second})
}

// SessionState is a snapshot of the per-session selection and listing
// caches. The client itself never persists it; callers whose workflow
// spans processes can save a snapshot and restore it into a fresh
// client.
type SessionState struct {
	First      *Endpoint
	Second     *Endpoint
	FirstRows  []Row
	SecondRows []Row
}

// SessionState snapshots the selection and listing caches.
func (c *Client) SessionState() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := SessionState{
		FirstRows:  c.firstRows,
		SecondRows: c.secondRows,
	}
	if c.first != nil {
		first := *c.first
		s.First = &first
	}
	if c.second != nil {
		second := *c.second
		s.Second = &second
	}
	return s
}

// RestoreSession replaces the selection and listing caches with a
// previously captured snapshot.
func (c *Client) RestoreSession(s SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.first, c.second = nil, nil
	if s.First != nil {
		first := *s.First
		c.first = &first
	}
	if s.Second != nil {
		second := *s.Second
		c.second = &second
	}
	c.firstRows = s.FirstRows
	c.secondRows = s.SecondRows
}

// SetEndpointRequest names one endpoint slot and how to resolve it.
// PortID selects the direct path; otherwise Filter or Search selects
// the discovery path (Filter wins when both are given). VLAN, when set,
// overrides the resolver's choice.
type SetEndpointRequest struct {
	Position       string // "first" or "second"
	Filter         string
	Search         string
	PortID         string
	VLAN           string
	PreferUntagged bool
}

// SetEndpoint resolves one endpoint and stores it in the named slot.
// Re-setting an already-set slot replaces it. Any failure aborts the
// operation without touching the stored selection.
func (c *Client) SetEndpoint(ctx context.Context, req SetEndpointRequest) Result {
	position := strings.ToLower(strings.TrimSpace(req.Position))
	if position != "first" && position != "second" {
		return failure(`endpoint position must be "first" or "second"`)
	}

	if res := c.requireAuth(); res != nil {
		return *res
	}

	// Direct path: the caller already knows the port URN.
	if portID := strings.TrimSpace(req.PortID); portID != "" {
		return c.resolveAndStore(ctx, position, portID, req.VLAN, req.PreferUntagged)
	}

	// Discovery path: filter wins over search.
	query := req.Filter
	useFilter := query != ""
	if !useFilter {
		query = req.Search
	}
	if strings.TrimSpace(query) == "" {
		return failure("either port_id or filter/search is required")
	}

	listing := c.listPortsJSON(ctx, query, useFilter)
	if !listing.OK() {
		msg := listing.Error
		if msg == "" {
			msg = "unable to list endpoints"
		}
		return failure(msg)
	}

	rows := extractRows(listing.Data)
	matches := matchRows(rows, query)
	util.WithOperation("endpoint.discovery").Debugf("query %q matched %d of %d rows", query, len(matches), len(rows))

	if len(matches) == 0 {
		return failure("no matching " + position + " endpoint")
	}
	if len(matches) > 1 {
		candidates := make([]string, 0, ambiguityCandidateLimit)
		for _, row := range matches {
			if len(candidates) == ambiguityCandidateLimit {
				break
			}
			candidates = append(candidates, row.PortID())
		}
		return failureWithData(
			map[string]any{"candidates": candidates},
			fmt.Sprintf("ambiguous filter/search matched %d ports; refine or use exact port_id", len(matches)),
		)
	}

	portID := matches[0].PortID()
	if portID == "" {
		return failure("matched row is missing a port URN")
	}
	return c.resolveAndStore(ctx, position, portID, req.VLAN, req.PreferUntagged)
}

// resolveAndStore fetches device info for a known port URN, picks a
// VLAN, and commits the endpoint to the slot. Shared tail of both
// SetEndpoint paths.
func (c *Client) resolveAndStore(ctx context.Context, position, portID, vlan string, preferUntagged bool) Result {
	info := c.fetchDeviceInfo(ctx, portID)
	if !info.OK() {
		return info
	}

	if vlan == "" {
		vlan = chooseVLAN(info.Data, preferUntagged)
	}
	if vlan == "" {
		return failure("no usable VLAN found")
	}

	endpoint := Endpoint{PortID: portID, VLAN: vlan}
	c.storeEndpoint(position, endpoint)
	return success(endpoint)
}

func (c *Client) storeEndpoint(position string, endpoint Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if position == "first" {
		c.first = &endpoint
	} else {
		c.second = &endpoint
	}
}

// PreviewL2VPN assembles the creation payload from the current
// selection without submitting it. Built fresh on every call.
func (c *Client) PreviewL2VPN(name, notifications string) Result {
	c.mu.Lock()
	first, second := c.first, c.second
	c.mu.Unlock()

	if first == nil || second == nil {
		return failure("missing selection: first and/or second endpoint")
	}
	return success(buildL2VPNPayload(name, notifications, *first, *second))
}

// CreateL2VPN submits the previewed payload. The remote envelope is
// returned verbatim, and the selection survives a failed creation so
// the caller can retry.
func (c *Client) CreateL2VPN(ctx context.Context, name, notifications string) Result {
	preview := c.PreviewL2VPN(name, notifications)
	if !preview.OK() {
		return preview
	}
	if res := c.requireAuth(); res != nil {
		return *res
	}
	return c.request(ctx, http.MethodPost, "/l2vpn", requestOptions{
		jsonBody:   preview.Data,
		accept:     "application/json",
		expectJSON: true,
	})
}

// ListPortsOptions shapes a passthrough port listing request.
type ListPortsOptions struct {
	Search string
	Filter string // wins over Search
	Limit  int
	Fields string
	Format string // "html" (default) or "json"
}

// GetAvailablePorts fetches the port listing in the requested format.
// The html body is passed through as text; json is decoded.
func (c *Client) GetAvailablePorts(ctx context.Context, opts ListPortsOptions) Result {
	if res := c.requireAuth(); res != nil {
		return *res
	}

	format := opts.Format
	if format == "" {
		format = "html"
	}

	q := url.Values{}
	q.Set("format", format)
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Filter != "" {
		q.Set("filter", opts.Filter)
	} else if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Fields != "" {
		q.Set("fields", opts.Fields)
	}

	accept, expectJSON := "application/json", true
	if format == "html" {
		accept, expectJSON = "text/html", false
	}
	return c.request(ctx, http.MethodGet, "/available_ports", requestOptions{
		query:      q,
		accept:     accept,
		expectJSON: expectJSON,
	})
}

// ListL2VPNs mirrors GET /l2vpns. The format query parameter defaults
// to json.
func (c *Client) ListL2VPNs(ctx context.Context, query url.Values) Result {
	if res := c.requireAuth(); res != nil {
		return *res
	}
	q := url.Values{}
	for key, values := range query {
		q[key] = values
	}
	if q.Get("format") == "" {
		q.Set("format", "json")
	}
	return c.request(ctx, http.MethodGet, "/l2vpns", requestOptions{
		query:      q,
		accept:     "application/json",
		expectJSON: true,
	})
}

// GetL2VPN mirrors GET /l2vpn/{id}.
func (c *Client) GetL2VPN(ctx context.Context, serviceID string) Result {
	if serviceID = strings.TrimSpace(serviceID); serviceID == "" {
		return failure("service id is required")
	}
	if res := c.requireAuth(); res != nil {
		return *res
	}
	return c.request(ctx, http.MethodGet, "/l2vpn/"+url.PathEscape(serviceID), requestOptions{
		accept:     "application/json",
		expectJSON: true,
	})
}

// UpdateL2VPN mirrors PATCH /l2vpn/{id} with the given fields.
func (c *Client) UpdateL2VPN(ctx context.Context, serviceID string, fields map[string]any) Result {
	if serviceID = strings.TrimSpace(serviceID); serviceID == "" {
		return failure("service id is required")
	}
	if res := c.requireAuth(); res != nil {
		return *res
	}
	var body any
	if len(fields) > 0 {
		body = fields
	}
	return c.request(ctx, http.MethodPatch, "/l2vpn/"+url.PathEscape(serviceID), requestOptions{
		jsonBody:   body,
		accept:     "application/json",
		expectJSON: true,
	})
}

// DeleteL2VPN mirrors DELETE /l2vpn/{id}.
func (c *Client) DeleteL2VPN(ctx context.Context, serviceID string) Result {
	if serviceID = strings.TrimSpace(serviceID); serviceID == "" {
		return failure("service id is required")
	}
	if res := c.requireAuth(); res != nil {
		return *res
	}
	return c.request(ctx, http.MethodDelete, "/l2vpn/"+url.PathEscape(serviceID), requestOptions{
		accept:     "application/json",
		expectJSON: true,
	})
}

// fetchDeviceInfo retrieves the VLAN-capability payload for one port.
func (c *Client) fetchDeviceInfo(ctx context.Context, portID string) Result {
	q := url.Values{}
	q.Set("port_id", portID)
	q.Set("format", "json")
	return c.request(ctx, http.MethodGet, "/device_info", requestOptions{
		query:      q,
		accept:     "application/json",
		expectJSON: true,
	})
}

// listPortsJSON fetches the listing in json form for the discovery path.
func (c *Client) listPortsJSON(ctx context.Context, query string, useFilter bool) Result {
	q := url.Values{}
	q.Set("format", "json")
	if useFilter {
		q.Set("filter", query)
	} else {
		q.Set("search", query)
	}
	return c.request(ctx, http.MethodGet, "/available_ports", requestOptions{
		query:      q,
		accept:     "application/json",
		expectJSON: true,
	})
}
