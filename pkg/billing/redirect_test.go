package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedirectPolicy_Sanitize(t *testing.T) {
	p := NewRedirectPolicy("https://app.restoplan.io/", []string{"localhost:3000", " Staging.RestoPlan.io "})
	fallback := p.Default("/dashboard/billing")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty uses fallback", "", fallback},
		{"frontend host", "https://app.restoplan.io/settings", "https://app.restoplan.io/settings"},
		{"frontend host with query", "https://app.restoplan.io/dashboard?tab=billing", "https://app.restoplan.io/dashboard?tab=billing"},
		{"allowed dev host", "http://localhost:3000/billing", "http://localhost:3000/billing"},
		{"allowed host is case insensitive", "https://staging.restoplan.io/x", "https://staging.restoplan.io/x"},
		{"foreign host", "https://evil.com/steal", fallback},
		{"lookalike subdomain", "https://app.restoplan.io.evil.com/", fallback},
		{"wrong port", "http://localhost:4000/billing", fallback},
		{"javascript scheme", "javascript:alert(1)", fallback},
		{"data scheme", "data:text/html,<script>alert(1)</script>", fallback},
		{"protocol relative", "//evil.com/path", fallback},
		{"relative path", "/dashboard", fallback},
		{"userinfo phishing", "https://attacker@app.restoplan.io/", fallback},
		{"unparseable", "https://app.restoplan.io/%zz", fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Sanitize(tt.raw, fallback))
		})
	}
}

func TestRedirectPolicy_Default(t *testing.T) {
	p := NewRedirectPolicy("https://app.restoplan.io/", nil)
	assert.Equal(t, "https://app.restoplan.io/pricing?checkout=canceled", p.Default("/pricing?checkout=canceled"))
}
