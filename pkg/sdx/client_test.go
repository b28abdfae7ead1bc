package sdx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// failingSource is a token source that never yields a credential.
type failingSource struct{}

func (failingSource) Token() (string, error) {
	return "", errors.New("unable to load token")
}

// fakeController serves the controller routes the client consumes.
// deviceInfo maps port URN to the /device_info payload for it.
type fakeController struct {
	ports      []map[string]any
	deviceInfo map[string]any
	created    []map[string]any
}

func (f *fakeController) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/available_ports", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "html" {
			w.Write([]byte("<html>ports</html>"))
			return
		}
		rows := make([]any, len(f.ports))
		for i, p := range f.ports {
			rows[i] = p
		}
		json.NewEncoder(w).Encode(map[string]any{"data": rows})
	})
	mux.HandleFunc("/device_info", func(w http.ResponseWriter, r *http.Request) {
		info, ok := f.deviceInfo[r.URL.Query().Get("port_id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode("port not found")
			return
		}
		json.NewEncoder(w).Encode(info)
	})
	mux.HandleFunc("/l2vpn", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"service_id": "svc-1"})
	})
	return mux
}

func newSelectionClient(t *testing.T, f *fakeController) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	client, err := New(server.URL, WithToken("test-token"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Setenv(BaseURLEnvVar, "")
	if _, err := New(""); err == nil {
		t.Error("New() without a base URL expected error")
	}

	t.Setenv(BaseURLEnvVar, "https://sdx.example.net/")
	client, err := New("", WithToken("tok"))
	if err != nil {
		t.Fatalf("New() with env base URL error = %v", err)
	}
	if client.BaseURL() != "https://sdx.example.net" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", client.BaseURL())
	}
}

func TestNew_RecordsTokenAcquisitionFailure(t *testing.T) {
	client, err := New("https://sdx.example.net", WithTokenSource(failingSource{}))
	if err != nil {
		t.Fatalf("New() error = %v (construction must survive auth failure)", err)
	}
	if client.AuthError() == "" {
		t.Fatal("AuthError() empty, want recorded failure")
	}

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:A"})
	if res.StatusCode != 0 || !strings.Contains(res.Error, "auth not ready") {
		t.Errorf("SetEndpoint() without token = %+v, want auth not ready failure", res)
	}

	if res := client.SetToken("late-token"); !res.OK() {
		t.Fatalf("SetToken() = %+v", res)
	}
	if client.AuthError() != "" {
		t.Error("AuthError() should clear after SetToken")
	}
}

func TestSetToken_Empty(t *testing.T) {
	client, err := New("https://sdx.example.net", WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}
	res := client.SetToken("  ")
	if res.StatusCode != 0 || res.Error != "empty token" {
		t.Errorf("SetToken(blank) = %+v, want empty token failure", res)
	}
}

func TestSetEndpoint_InvalidPosition(t *testing.T) {
	client, err := New("https://sdx.example.net", WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}

	for _, position := range []string{"", "third", "FIRSTLY"} {
		res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: position, PortID: "urn:port:A"})
		if res.StatusCode != 0 || !strings.Contains(res.Error, `"first" or "second"`) {
			t.Errorf("SetEndpoint(position=%q) = %+v, want position validation failure", position, res)
		}
	}
}

func TestSetEndpoint_RequiresSomeSelector(t *testing.T) {
	client, err := New("https://sdx.example.net", WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}
	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first"})
	if res.StatusCode != 0 || !strings.Contains(res.Error, "port_id or filter/search") {
		t.Errorf("SetEndpoint(no selector) = %+v", res)
	}
}

func TestSetEndpoint_DirectPathExplicitVLAN(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"available_vlans": []any{"200"}},
	}}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{
		Position: "first",
		PortID:   "urn:port:A",
		VLAN:     "100",
	})
	if !res.OK() {
		t.Fatalf("SetEndpoint() = %+v", res)
	}
	endpoint, ok := res.Data.(Endpoint)
	if !ok {
		t.Fatalf("Data = %T, want Endpoint", res.Data)
	}
	if endpoint.PortID != "urn:port:A" || endpoint.VLAN != "100" {
		t.Errorf("endpoint = %+v, want explicit VLAN 100 to win over device info", endpoint)
	}
}

func TestSetEndpoint_DirectPathResolvedVLAN(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:B": map[string]any{"available_vlans": []any{"untagged", "300"}},
	}}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{
		Position:       "second",
		PortID:         "urn:port:B",
		PreferUntagged: true,
	})
	if !res.OK() {
		t.Fatalf("SetEndpoint() = %+v", res)
	}
	if endpoint := res.Data.(Endpoint); endpoint.VLAN != "untagged" {
		t.Errorf("VLAN = %q, want untagged", endpoint.VLAN)
	}
}

func TestSetEndpoint_NoUsableVLAN(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"note": "no vlan keys"},
	}}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:A"})
	if res.StatusCode != 0 || res.Error != "no usable VLAN found" {
		t.Errorf("SetEndpoint() = %+v, want no usable VLAN failure", res)
	}

	// The failed attempt must not leave partial selection behind.
	selected := client.SelectedEndpoints()
	state := selected.Data.(map[string]any)
	if state["first"] != (*Endpoint)(nil) {
		t.Errorf("first slot = %v, want unset after failure", state["first"])
	}
}

func TestSetEndpoint_DeviceInfoFailurePassthrough(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{}}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:gone"})
	if res.StatusCode != 404 {
		t.Errorf("StatusCode = %d, want remote 404 surfaced verbatim", res.StatusCode)
	}
	if res.Error != "port not found" {
		t.Errorf("Error = %q, want remote error string", res.Error)
	}
}

func TestSetEndpoint_DiscoverySingleMatch(t *testing.T) {
	f := &fakeController{
		ports: []map[string]any{
			{"id": "urn:port:A", "Domain": "ampath.net", "Device": "sw01"},
			{"id": "urn:port:B", "Domain": "sax.br", "Device": "sw02"},
		},
		deviceInfo: map[string]any{
			"urn:port:B": map[string]any{"vlan": float64(42)},
		},
	}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "second", Search: "sw02"})
	if !res.OK() {
		t.Fatalf("SetEndpoint() = %+v", res)
	}
	endpoint := res.Data.(Endpoint)
	if endpoint.PortID != "urn:port:B" || endpoint.VLAN != "42" {
		t.Errorf("endpoint = %+v, want urn:port:B vlan 42", endpoint)
	}
}

func TestSetEndpoint_DiscoveryNoMatch(t *testing.T) {
	f := &fakeController{ports: []map[string]any{
		{"id": "urn:port:A", "Device": "sw01"},
	}}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", Search: "sw99"})
	if res.StatusCode != 0 || res.Error != "no matching first endpoint" {
		t.Errorf("SetEndpoint() = %+v, want no-match failure", res)
	}
}

func TestSetEndpoint_DiscoveryAmbiguous(t *testing.T) {
	var ports []map[string]any
	for i := 0; i < 12; i++ {
		ports = append(ports, map[string]any{
			"id":     fmt.Sprintf("urn:port:%d", i),
			"Domain": "ampath.net",
		})
	}
	f := &fakeController{ports: ports}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", Filter: "ampath"})
	if res.StatusCode != 0 {
		t.Fatalf("StatusCode = %d, want 0", res.StatusCode)
	}
	if !strings.Contains(res.Error, "ambiguous") || !strings.Contains(res.Error, "12 ports") {
		t.Errorf("Error = %q, want ambiguity message naming the match count", res.Error)
	}

	data := res.Data.(map[string]any)
	candidates := data["candidates"].([]string)
	if len(candidates) != 8 {
		t.Errorf("candidates = %d entries, want capped at 8", len(candidates))
	}
	if candidates[0] != "urn:port:0" {
		t.Errorf("candidates[0] = %q, want input order preserved", candidates[0])
	}
}

func TestSetEndpoint_FilterWinsOverSearch(t *testing.T) {
	f := &fakeController{
		ports: []map[string]any{
			{"id": "urn:port:A", "Device": "sw01"},
			{"id": "urn:port:B", "Device": "sw02"},
		},
		deviceInfo: map[string]any{
			"urn:port:A": map[string]any{"vlan": "5"},
		},
	}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{
		Position: "first",
		Filter:   "sw01",
		Search:   "sw02",
	})
	if !res.OK() {
		t.Fatalf("SetEndpoint() = %+v", res)
	}
	if endpoint := res.Data.(Endpoint); endpoint.PortID != "urn:port:A" {
		t.Errorf("PortID = %q, want the filter term to win", endpoint.PortID)
	}
}

func TestSetEndpoint_ReplacesSlot(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"vlan": "1"},
		"urn:port:B": map[string]any{"vlan": "2"},
	}}
	client := newSelectionClient(t, f)

	for _, portID := range []string{"urn:port:A", "urn:port:B"} {
		res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: portID})
		if !res.OK() {
			t.Fatalf("SetEndpoint(%s) = %+v", portID, res)
		}
	}

	state := client.SelectedEndpoints().Data.(map[string]any)
	first := state["first"].(*Endpoint)
	if first.PortID != "urn:port:B" {
		t.Errorf("first = %+v, want the second call to replace the slot", first)
	}
}

func TestBeginSelection_Idempotent(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"vlan": "1"},
	}}
	client := newSelectionClient(t, f)

	if res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:A"}); !res.OK() {
		t.Fatal(res)
	}

	once := client.BeginSelection()
	twice := client.BeginSelection()
	if !once.OK() || !twice.OK() {
		t.Fatalf("BeginSelection() = %+v / %+v", once, twice)
	}

	state := client.SelectedEndpoints().Data.(map[string]any)
	if state["first"] != (*Endpoint)(nil) || state["second"] != (*Endpoint)(nil) {
		t.Errorf("selection after reset = %v, want both slots unset", state)
	}
}

func TestSessionState_RestoreIntoFreshClient(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"vlan": "100"},
		"urn:port:B": map[string]any{"vlan": "200"},
	}}
	client := newSelectionClient(t, f)

	for _, position := range []string{"first", "second"} {
		portID := "urn:port:A"
		if position == "second" {
			portID = "urn:port:B"
		}
		if res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: position, PortID: portID}); !res.OK() {
			t.Fatalf("SetEndpoint(%s) = %+v", position, res)
		}
	}

	fresh, err := New("https://sdx.example.net", WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}
	fresh.RestoreSession(client.SessionState())

	preview := fresh.PreviewL2VPN("svc1", "a@b.com")
	if !preview.OK() {
		t.Fatalf("PreviewL2VPN() on restored client = %+v", preview)
	}
	payload := preview.Data.(L2VPNPayload)
	if payload.Endpoints[0].PortID != "urn:port:A" || payload.Endpoints[1].PortID != "urn:port:B" {
		t.Errorf("restored endpoints = %+v", payload.Endpoints)
	}
}

func TestSessionState_SnapshotIsIsolated(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"vlan": "100"},
	}}
	client := newSelectionClient(t, f)

	if res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:A"}); !res.OK() {
		t.Fatal(res)
	}

	snapshot := client.SessionState()
	client.BeginSelection()

	if snapshot.First == nil || snapshot.First.PortID != "urn:port:A" {
		t.Errorf("snapshot = %+v, want selection unaffected by later reset", snapshot.First)
	}
	if state := client.SelectedEndpoints().Data.(map[string]any); state["first"] != (*Endpoint)(nil) {
		t.Errorf("client selection = %v, want cleared", state["first"])
	}
}

func TestRestoreSession_EmptyClearsSelection(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"vlan": "100"},
	}}
	client := newSelectionClient(t, f)

	if res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:A"}); !res.OK() {
		t.Fatal(res)
	}

	client.RestoreSession(SessionState{})
	state := client.SelectedEndpoints().Data.(map[string]any)
	if state["first"] != (*Endpoint)(nil) || state["second"] != (*Endpoint)(nil) {
		t.Errorf("selection after empty restore = %v, want both unset", state)
	}
}

func TestRestoreSession_ListingCacheSurvives(t *testing.T) {
	f := &fakeController{
		ports: []map[string]any{
			{"Port ID": "urn:port:A", "Device": "sw01"},
		},
		deviceInfo: map[string]any{
			"urn:port:A": map[string]any{"vlan": "100"},
		},
	}
	client := newSelectionClient(t, f)

	if res := client.GetFirstEndpoints(context.Background(), "", 0, "json"); !res.OK() {
		t.Fatalf("GetFirstEndpoints() = %+v", res)
	}

	fresh := newSelectionClient(t, f)
	fresh.RestoreSession(client.SessionState())

	res := fresh.SetFirstEndpoint(context.Background(), "", false)
	if !res.OK() {
		t.Fatalf("SetFirstEndpoint() from restored cache = %+v", res)
	}
	if endpoint := res.Data.(Endpoint); endpoint.PortID != "urn:port:A" {
		t.Errorf("PortID = %q, want the cached row", endpoint.PortID)
	}
}

func TestPreviewL2VPN_MissingSelection(t *testing.T) {
	f := &fakeController{deviceInfo: map[string]any{
		"urn:port:A": map[string]any{"vlan": "1"},
	}}
	client := newSelectionClient(t, f)

	res := client.PreviewL2VPN("svc1", "a@b.com")
	if res.StatusCode != 0 || !strings.Contains(res.Error, "missing selection") {
		t.Errorf("PreviewL2VPN(empty) = %+v", res)
	}

	// Still missing with only one slot set.
	if res := client.SetEndpoint(context.Background(), SetEndpointRequest{Position: "first", PortID: "urn:port:A"}); !res.OK() {
		t.Fatal(res)
	}
	res = client.PreviewL2VPN("svc1", "a@b.com")
	if res.StatusCode != 0 || !strings.Contains(res.Error, "missing selection") {
		t.Errorf("PreviewL2VPN(one slot) = %+v", res)
	}
}

func TestSelectionToCreate_EndToEnd(t *testing.T) {
	f := &fakeController{
		deviceInfo: map[string]any{
			"urn:port:A": map[string]any{"available_vlans": []any{"100"}},
			"urn:port:B": map[string]any{"available_vlans": []any{"untagged", "100"}},
		},
	}
	client := newSelectionClient(t, f)

	res := client.SetEndpoint(context.Background(), SetEndpointRequest{
		Position: "first", PortID: "urn:port:A", VLAN: "100",
	})
	if !res.OK() {
		t.Fatalf("set first = %+v", res)
	}
	res = client.SetEndpoint(context.Background(), SetEndpointRequest{
		Position: "second", PortID: "urn:port:B", PreferUntagged: true,
	})
	if !res.OK() {
		t.Fatalf("set second = %+v", res)
	}

	preview := client.PreviewL2VPN("svc1", "a@b.com")
	if !preview.OK() {
		t.Fatalf("PreviewL2VPN() = %+v", preview)
	}
	payload := preview.Data.(L2VPNPayload)
	want := L2VPNPayload{
		Name: "svc1",
		Endpoints: []Endpoint{
			{PortID: "urn:port:A", VLAN: "100"},
			{PortID: "urn:port:B", VLAN: "untagged"},
		},
		Notifications: "a@b.com",
	}
	if payload.Name != want.Name || payload.Notifications != want.Notifications ||
		len(payload.Endpoints) != 2 ||
		payload.Endpoints[0] != want.Endpoints[0] || payload.Endpoints[1] != want.Endpoints[1] {
		t.Errorf("payload = %+v, want %+v", payload, want)
	}

	create := client.CreateL2VPN(context.Background(), "svc1", "a@b.com")
	if create.StatusCode != 201 {
		t.Fatalf("CreateL2VPN() = %+v", create)
	}
	if len(f.created) != 1 {
		t.Fatalf("controller saw %d creation bodies, want 1", len(f.created))
	}
	if f.created[0]["Notifications"] != "a@b.com" {
		t.Errorf("wire body = %v, want capitalized Notifications key", f.created[0])
	}

	// A create never clears the selection; a retry still previews.
	if res := client.PreviewL2VPN("svc1", "a@b.com"); !res.OK() {
		t.Errorf("PreviewL2VPN() after create = %+v, want selection intact", res)
	}
}

func TestCreateL2VPN_MissingSelectionSkipsSubmit(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	t.Cleanup(server.Close)

	client, err := New(server.URL, WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}

	res := client.CreateL2VPN(context.Background(), "svc1", "a@b.com")
	if res.StatusCode != 0 || !strings.Contains(res.Error, "missing selection") {
		t.Errorf("CreateL2VPN() = %+v", res)
	}
	if requests != 0 {
		t.Errorf("controller saw %d requests, want none before selection is complete", requests)
	}
}

func TestL2VPNMirrors_ServiceIDValidation(t *testing.T) {
	client, err := New("https://sdx.example.net", WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for name, res := range map[string]Result{
		"get":    client.GetL2VPN(ctx, " "),
		"update": client.UpdateL2VPN(ctx, "", map[string]any{"name": "x"}),
		"delete": client.DeleteL2VPN(ctx, ""),
	} {
		if res.StatusCode != 0 || res.Error != "service id is required" {
			t.Errorf("%s with blank id = %+v, want validation failure", name, res)
		}
	}
}

func TestGetAvailablePorts_Passthrough(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Query().Get("format") == "html" {
			w.Write([]byte("<html>ports</html>"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	t.Cleanup(server.Close)

	client, err := New(server.URL, WithToken("tok"))
	if err != nil {
		t.Fatal(err)
	}

	res := client.GetAvailablePorts(context.Background(), ListPortsOptions{})
	if !res.OK() {
		t.Fatalf("GetAvailablePorts() = %+v", res)
	}
	if res.Data != "<html>ports</html>" {
		t.Errorf("Data = %v, want raw html by default", res.Data)
	}

	res = client.GetAvailablePorts(context.Background(), ListPortsOptions{
		Format: "json",
		Filter: "ampath",
		Search: "ignored",
		Limit:  10,
		Fields: "Domain,Device",
	})
	if !res.OK() {
		t.Fatalf("GetAvailablePorts(json) = %+v", res)
	}
	if !strings.Contains(gotQuery, "filter=ampath") || strings.Contains(gotQuery, "search=") {
		t.Errorf("query = %q, want filter to win over search", gotQuery)
	}
	if !strings.Contains(gotQuery, "limit=10") {
		t.Errorf("query = %q, want limit included", gotQuery)
	}
}
