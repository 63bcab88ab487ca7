// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package bridge

import (
	"encoding/json"
	"net/url"
	"strings"
)

// endpointKeys are probed in order when an endpoint payload is a JSON object.
var endpointKeys = []string{"endpoint", "url", "path"}

// decodeEndpoint extracts the RPC target reference from an endpoint event
// payload. Servers announce it as a bare JSON string, as an object keyed by
// endpoint, url, or path, or as raw unencoded text. Returns "" when the
// payload yields nothing usable.
func decodeEndpoint(data string) string {
	raw := strings.TrimSpace(data)
	if raw == "" {
		return ""
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// Not JSON at all: the payload is the reference itself.
		return raw
	}

	switch parsed := v.(type) {
	case string:
		return parsed
	case map[string]any:
		for _, key := range endpointKeys {
			if s, ok := parsed[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// resolveEndpoint resolves ref against the SSE connection URL, so relative
// references land on the same host the stream came from.
func resolveEndpoint(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
