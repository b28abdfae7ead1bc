package sdx

// Endpoint is a resolved (port, VLAN) pair, one side of an L2VPN.
type Endpoint struct {
	PortID string `json:"port_id"`
	VLAN   string `json:"vlan"`
}

// L2VPNPayload is the wire body for L2VPN creation. Endpoint order is
// semantically meaningful to the controller and is preserved as given.
// The capitalized Notifications key matches the controller's schema.
type L2VPNPayload struct {
	Name          string     `json:"name"`
	Endpoints     []Endpoint `json:"endpoints"`
	Notifications string     `json:"Notifications"`
}

// buildL2VPNPayload assembles the creation body from the two selected
// endpoints in first/second order. Content validation of name and
// notifications is the controller's job; this never fails.
func buildL2VPNPayload(name, notifications string, first, second Endpoint) L2VPNPayload {
	return L2VPNPayload{
		Name:          name,
		Endpoints:     []Endpoint{first, second},
		Notifications: notifications,
	}
}
