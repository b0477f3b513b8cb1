// This file provides SecurityHeaders. The widget is embedded in a host
// portfolio page, so framing is controlled through CSP frame-ancestors
// instead of a blanket X-Frame-Options: DENY.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures HTTP security headers emitted by SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // set true only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // defaults to 180 days when <= 0
	NoStore      bool          // add Cache-Control: no-store
	EnablePolicy bool          // include Permissions-Policy, etc.

	// FrameAncestors lists the origins allowed to embed responses in a frame
	// (CSP source expressions such as "'self'" or "https://me.dev").
	// Empty denies framing.
	FrameAncestors []string
}

// SecurityHeaders returns a Gin middleware that adds conservative security
// headers to each response:
//
//   - always: X-Content-Type-Options: nosniff, Referrer-Policy: no-referrer,
//     Content-Security-Policy: frame-ancestors <list or 'none'>
//   - X-Frame-Options: DENY when no frame ancestors are configured
//   - EnablePolicy: Permissions-Policy (microphone limited to self for voice
//     input) and X-Permitted-Cross-Domain-Policies: none
//   - NoStore: Cache-Control: no-store, Pragma: no-cache, Expires: 0
//   - EnableHSTS on HTTPS requests: Strict-Transport-Security
//
// X-Request-ID is added to Access-Control-Expose-Headers when present.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	ancestors := "'none'"
	if len(opt.FrameAncestors) > 0 {
		ancestors = strings.Join(opt.FrameAncestors, " ")
	}
	csp := "frame-ancestors " + ancestors

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", csp)
		if len(opt.FrameAncestors) == 0 {
			h.Set("X-Frame-Options", "DENY")
		}

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(self), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get(requestIDHeader); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, requestIDHeader)
			} else if !strings.Contains(cur, requestIDHeader) {
				h.Set(hdr, cur+", "+requestIDHeader)
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request used HTTPS directly or via a proxy
// that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
