package log

import (
	"net/url"
	"strings"
)

var sensitiveKeywords = []string{
	"password", "passwd",
	"api_key", "apikey", "api-key", "appid",
	"token", "secret", "authorization",
	"credential", "private_key",
}

// queryKeys lists query parameters that carry credentials inside logged URLs.
var queryKeys = []string{"appid", "api_key", "apikey", "token", "key"}

// SanitizeField masks value when key names a credential. Values under URL-ish
// keys have credential query parameters masked instead.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return maskSecret(value)
		}
	}

	if lowerKey == "url" || lowerKey == "endpoint" || strings.HasSuffix(lowerKey, "_url") {
		return sanitizeURL(value)
	}

	return value
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return value[:1] + strings.Repeat("*", len(value)-2) + value[len(value)-1:]
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func sanitizeURL(value string) string {
	u, err := url.Parse(value)
	if err != nil || u.RawQuery == "" {
		return value
	}

	q := u.Query()
	changed := false
	for _, k := range queryKeys {
		if v := q.Get(k); v != "" {
			q.Set(k, maskSecret(v))
			changed = true
		}
	}
	if !changed {
		return value
	}
	u.RawQuery = q.Encode()
	return u.String()
}
