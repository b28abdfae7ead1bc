package sdx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Fixed column sets requested for guided listings. The second-endpoint
// view adds in-use VLANs so an operator can avoid collisions.
const (
	firstEndpointFields  = "Domain,Device,Port,Status,Port ID,Entities"
	secondEndpointFields = firstEndpointFields + ",VLANs in Use"
)

// GetFirstEndpoints lists candidate first endpoints and caches the json
// rows for a subsequent SetFirstEndpoint call.
func (c *Client) GetFirstEndpoints(ctx context.Context, search string, limit int, format string) Result {
	return c.listEndpoints(ctx, "first", search, limit, format, firstEndpointFields)
}

// GetSecondEndpoints lists candidate second endpoints (including VLANs
// in use) and caches the json rows for SetSecondEndpoint.
func (c *Client) GetSecondEndpoints(ctx context.Context, search string, limit int, format string) Result {
	return c.listEndpoints(ctx, "second", search, limit, format, secondEndpointFields)
}

// SetFirstEndpoint picks the first cached row matching filter (or the
// first row outright on an empty filter) and stores it as the first
// endpoint. Requires a prior GetFirstEndpoints call.
func (c *Client) SetFirstEndpoint(ctx context.Context, filter string, preferUntagged bool) Result {
	return c.setFromCache(ctx, "first", filter, preferUntagged)
}

// SetSecondEndpoint is the second-slot counterpart of SetFirstEndpoint.
func (c *Client) SetSecondEndpoint(ctx context.Context, filter string, preferUntagged bool) Result {
	return c.setFromCache(ctx, "second", filter, preferUntagged)
}

func (c *Client) listEndpoints(ctx context.Context, position, search string, limit int, format, fields string) Result {
	if res := c.requireAuth(); res != nil {
		return *res
	}

	if format == "" {
		format = "html"
	}

	q := url.Values{}
	q.Set("format", format)
	q.Set("fields", fields)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if search != "" {
		q.Set("search", search)
	}

	accept, expectJSON := "application/json", true
	if format == "html" {
		accept, expectJSON = "text/html", false
	}

	res := c.request(ctx, http.MethodGet, "/available_ports", requestOptions{
		query:      q,
		accept:     accept,
		expectJSON: expectJSON,
	})

	if format != "html" {
		if res.OK() {
			c.setCachedRows(position, extractRows(res.Data))
		}
		return res
	}

	// The html view is for humans; refetch json quietly so the set
	// calls have rows to work from.
	qj := url.Values{}
	for key, values := range q {
		qj[key] = values
	}
	qj.Set("format", "json")
	jsonRes := c.request(ctx, http.MethodGet, "/available_ports", requestOptions{
		query:      qj,
		accept:     "application/json",
		expectJSON: true,
	})
	if jsonRes.OK() {
		c.setCachedRows(position, extractRows(jsonRes.Data))
	} else {
		c.setCachedRows(position, nil)
	}

	return res
}

func (c *Client) setFromCache(ctx context.Context, position, filter string, preferUntagged bool) Result {
	if res := c.requireAuth(); res != nil {
		return *res
	}

	rows := c.cachedRows(position)
	if len(rows) == 0 {
		return failure("no " + position + " endpoints listed; list " + position + " endpoints first")
	}

	chosen := pickRow(rows, filter)
	if chosen == nil {
		return failure("no matching " + position + " endpoint")
	}

	portID := chosen.PortID()
	if portID == "" {
		return failure("row missing Port ID")
	}

	info := c.fetchDeviceInfo(ctx, portID)
	if !info.OK() {
		return info
	}

	vlan := chooseVLAN(info.Data, preferUntagged)
	if vlan == "" {
		return failure("no usable VLAN found for " + position + " endpoint")
	}

	endpoint := Endpoint{PortID: portID, VLAN: vlan}
	c.storeEndpoint(position, endpoint)
	return success(endpoint)
}

func (c *Client) setCachedRows(position string, rows []Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if position == "first" {
		c.firstRows = rows
	} else {
		c.secondRows = rows
	}
}

func (c *Client) cachedRows(position string) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	if position == "first" {
		return c.firstRows
	}
	return c.secondRows
}
