package middleware

import (
	"net"
	"net/http"
	"strings"
)

// Masked replacements for credential headers.
const (
	maskedValue  = "***"
	maskedBearer = "Bearer ***"
)

// ClientIP extracts the caller address, checking X-Forwarded-For first
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// first hop is the client
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MaskHeaders converts headers to a document for the audit record with
// lower-cased names. Credential-bearing headers are masked.
func MaskHeaders(h http.Header) map[string]any {
	doc := make(map[string]any, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		switch key {
		case "x-api-token", "cookie", "proxy-authorization":
			doc[key] = maskedValue
			continue
		case "authorization":
			doc[key] = maskAuthorization(strings.Join(values, ", "))
			continue
		}
		switch len(values) {
		case 0:
		case 1:
			doc[key] = values[0]
		default:
			items := make([]any, len(values))
			for i, v := range values {
				items[i] = v
			}
			doc[key] = items
		}
	}
	return doc
}

func maskAuthorization(v string) string {
	if bearerToken(v) != "" {
		return maskedBearer
	}
	return maskedValue
}
