// Package sdx implements a stateful client for an SDX network-exchange
// provisioning API: port discovery, guided endpoint selection, and
// two-endpoint L2VPN creation.
package sdx

// Result is the uniform outcome envelope returned by every client
// operation. No errors cross the public boundary any other way.
//
// StatusCode 0 is reserved for client-side failures (validation,
// ambiguity, transport failure) and never collides with an HTTP status:
// a nonzero non-2xx code always originates from the remote service.
type Result struct {
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data"`
	Error      string `json:"error,omitempty"`
}

// OK reports whether the result carries a successful HTTP-range status.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// success wraps data in a client-side 200 envelope.
func success(data any) Result {
	return Result{StatusCode: 200, Data: data}
}

// failure builds a client-side failure envelope (status 0).
func failure(msg string) Result {
	return Result{StatusCode: 0, Error: msg}
}

// failureWithData builds a client-side failure that carries partial
// context, such as candidate identifiers for an ambiguous match.
func failureWithData(data any, msg string) Result {
	return Result{StatusCode: 0, Data: data, Error: msg}
}
