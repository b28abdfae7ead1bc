// Package testutil provides a fake SDX controller for tests that
// exercise the full client flow against real HTTP.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Controller is an in-memory stand-in for the SDX provisioning API.
// It serves the available_ports listing, per-port device info, and a
// mutable l2vpn store.
type Controller struct {
	mu         sync.Mutex
	ports      []map[string]any
	deviceInfo map[string]any
	services   map[string]map[string]any
	nextID     int
	requests   []string
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{
		deviceInfo: map[string]any{},
		services:   map[string]map[string]any{},
		nextID:     1,
	}
}

// AddPort registers a listing row and, when info is non-nil, the
// device info served for its port_id key.
func (c *Controller) AddPort(row map[string]any, info any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ports = append(c.ports, row)
	if info == nil {
		return
	}
	for _, key := range []string{"id", "Port ID", "port_id"} {
		if id, ok := row[key].(string); ok && id != "" {
			c.deviceInfo[id] = info
			return
		}
	}
}

// Services returns a snapshot of the stored l2vpn services by id.
func (c *Controller) Services() map[string]map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]map[string]any, len(c.services))
	for id, svc := range c.services {
		out[id] = svc
	}
	return out
}

// Requests returns the "METHOD path" log of everything served so far.
func (c *Controller) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requests...)
}

// Serve starts an httptest server for the controller, closed when the
// test finishes.
func (c *Controller) Serve(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(c)
	t.Cleanup(server.Close)
	return server
}

func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.requests = append(c.requests, r.Method+" "+r.URL.Path)
	c.mu.Unlock()

	switch {
	case r.URL.Path == "/available_ports":
		c.serveListing(w, r)
	case r.URL.Path == "/device_info":
		c.serveDeviceInfo(w, r)
	case r.URL.Path == "/l2vpn" && r.Method == http.MethodPost:
		c.serveCreate(w, r)
	case r.URL.Path == "/l2vpns":
		c.serveList(w)
	case strings.HasPrefix(r.URL.Path, "/l2vpn/"):
		c.serveService(w, r, strings.TrimPrefix(r.URL.Path, "/l2vpn/"))
	default:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode("no such route")
	}
}

func (c *Controller) serveListing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>available ports</body></html>")
		return
	}
	c.mu.Lock()
	rows := make([]any, len(c.ports))
	for i, p := range c.ports {
		rows[i] = p
	}
	c.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]any{"data": rows})
}

func (c *Controller) serveDeviceInfo(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	info, ok := c.deviceInfo[r.URL.Query().Get("port_id")]
	c.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode("port not found")
		return
	}
	json.NewEncoder(w).Encode(info)
}

func (c *Controller) serveCreate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode("malformed payload")
		return
	}

	c.mu.Lock()
	id := fmt.Sprintf("svc-%d", c.nextID)
	c.nextID++
	c.services[id] = payload
	c.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"service_id": id})
}

func (c *Controller) serveList(w http.ResponseWriter) {
	c.mu.Lock()
	out := make(map[string]any, len(c.services))
	for id, svc := range c.services {
		out[id] = svc
	}
	c.mu.Unlock()
	json.NewEncoder(w).Encode(out)
}

func (c *Controller) serveService(w http.ResponseWriter, r *http.Request, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	svc, ok := c.services[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode("service not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(svc)
	case http.MethodPatch:
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode("malformed payload")
			return
		}
		for key, value := range fields {
			svc[key] = value
		}
		json.NewEncoder(w).Encode(svc)
	case http.MethodDelete:
		delete(c.services, id)
		json.NewEncoder(w).Encode(map[string]any{"deleted": id})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode("method not allowed")
	}
}
