package billing

import (
	"net/url"
	"strings"
)

// RedirectPolicy keeps checkout and portal redirects on hosts we own, so a
// session cannot be used as an open redirect.
type RedirectPolicy struct {
	baseURL      string
	allowedHosts map[string]bool
}

// NewRedirectPolicy allows baseURL's host plus allowedHosts (host[:port]).
func NewRedirectPolicy(baseURL string, allowedHosts []string) *RedirectPolicy {
	baseURL = strings.TrimRight(baseURL, "/")
	hosts := make(map[string]bool, len(allowedHosts)+1)
	for _, h := range allowedHosts {
		hosts[strings.ToLower(strings.TrimSpace(h))] = true
	}
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		hosts[strings.ToLower(u.Host)] = true
	}
	return &RedirectPolicy{baseURL: baseURL, allowedHosts: hosts}
}

// Default builds an absolute URL under the frontend base.
func (p *RedirectPolicy) Default(path string) string {
	return p.baseURL + path
}

// Sanitize returns raw when it is an http(s) URL on an allowed host without
// userinfo, and fallback otherwise.
func (p *RedirectPolicy) Sanitize(raw, fallback string) string {
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fallback
	}

	// https://attacker@legitimate.com style phishing
	if parsed.User != nil {
		return fallback
	}

	if !p.allowedHosts[strings.ToLower(parsed.Host)] {
		return fallback
	}

	return raw
}
