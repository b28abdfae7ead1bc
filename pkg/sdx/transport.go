package sdx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/sdx-fabric/sdxctl/pkg/util"
)

// requestOptions shapes one HTTP exchange with the SDX controller.
type requestOptions struct {
	query      url.Values
	jsonBody   any
	accept     string
	expectJSON bool
}

// errorBodyLimit caps how much of a non-JSON error body is surfaced.
const errorBodyLimit = 200

// request performs one HTTP exchange and normalizes the outcome into a
// Result. Transport-level failures map to status 0 ("timeout" or
// "network error: ..."); everything else carries the remote HTTP status.
func (c *Client) request(ctx context.Context, method, path string, opts requestOptions) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(opts.query) > 0 {
		target += "?" + opts.query.Encode()
	}

	var body io.Reader
	if opts.jsonBody != nil {
		encoded, err := json.Marshal(opts.jsonBody)
		if err != nil {
			return failure("encoding request body: " + err.Error())
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return failure("network error: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.accept != "" {
		req.Header.Set("Accept", opts.accept)
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure("timeout")
		}
		return failure("network error: " + err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure("network error: " + err.Error())
	}

	util.Debugf("sdx: %s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(raw))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if !opts.expectJSON {
		res := Result{StatusCode: resp.StatusCode, Data: string(raw)}
		if !ok {
			res.Error = http.StatusText(resp.StatusCode)
		}
		return res
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		msg := http.StatusText(resp.StatusCode)
		if len(raw) > 0 {
			msg = string(raw)
			if len(msg) > errorBodyLimit {
				msg = msg[:errorBodyLimit]
			}
		}
		return Result{StatusCode: resp.StatusCode, Error: msg}
	}

	res := Result{StatusCode: resp.StatusCode, Data: payload}
	if !ok {
		// A JSON string body on an error status is the error message.
		if s, isStr := payload.(string); isStr {
			res.Error = s
		} else {
			res.Error = http.StatusText(resp.StatusCode)
		}
	}
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
