package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds the response headers applied to every API reply.
type HeadersConfig struct {
	CSP                   string
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	XFrameOptions         string
	ReferrerPolicy        string
	CrossOriginResource   string
}

// DefaultHeadersConfig returns defaults for a JSON-only API.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "cross-origin",
	}
}

type HeadersMiddleware struct {
	config HeadersConfig
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	hsts := ""
	if config.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}
	return &HeadersMiddleware{config: config, hsts: hsts}
}

func (hm *HeadersMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		if hm.config.CSP != "" {
			h.Set("Content-Security-Policy", hm.config.CSP)
		}
		if hm.config.XFrameOptions != "" {
			h.Set("X-Frame-Options", hm.config.XFrameOptions)
		}
		if hm.config.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", hm.config.ReferrerPolicy)
		}
		if hm.config.CrossOriginResource != "" {
			h.Set("Cross-Origin-Resource-Policy", hm.config.CrossOriginResource)
		}
		// HSTS only means something over TLS or behind a terminating proxy
		if hm.hsts != "" && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
			h.Set("Strict-Transport-Security", hm.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
