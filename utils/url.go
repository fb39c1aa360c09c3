package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errMissingHost = errors.New("missing host")

// NormalizeURL makes sure a user supplied project URL carries a scheme.
// Empty input stays empty.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: %w", raw, errMissingHost)
	}
	return u.String(), nil
}
