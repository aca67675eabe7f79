// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits on the tracking route directly behind the disable gate,
so requests for disabled sites are never parsed.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Takes the client IP from `r.RemoteAddr`.  Forwarding headers are
     only read when the peer is a trusted proxy, and X-Forwarded-For is
     walked right to left past trusted hops, so clients cannot pick the
     address (and country) recorded for them.
  3. Performs a GeoLite2 lookup.
  4. Stores a `*RequestInfo` value in `request.Context` under an
     unexported key, so the event recorder can read UA, Geo, URL, and
     timestamp attributes without reparsing.

Instrumentation
---------------
At debug level each invocation logs one line containing:

  • client IP, country ISO, city
  • browser family, device class, bot flag
  • request path and raw query string

Notes
-----
  • All look-ups are read-only and pool-based, so the middleware is safe
    under heavy concurrency.
  • Geo lookups are skipped when no GeoLite2 file is configured.
*/
package requestinfo

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		info := &RequestInfo{
			UA:        parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(ip),
			URL:       r.URL, // pointer copy; safe for read-only access
			Timestamp: time.Now().UTC(),
		}

		zap.S().Debugw("request info",
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"city", info.Geo.City,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
			"path", r.URL.Path,
			"raw_query", r.URL.RawQuery,
		)

		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// trustedProxies is set once at boot; nil means forwarding headers are
// ignored.
var trustedProxies []*net.IPNet

// SetTrustedProxies installs the CIDRs whose forwarding headers are believed.
func SetTrustedProxies(cidrs []string) error {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(strings.TrimSpace(c))
		if err != nil {
			return fmt.Errorf("trusted proxy %q: %w", c, err)
		}
		nets = append(nets, n)
	}
	trustedProxies = nets
	return nil
}

func trusted(ip net.IP) bool {
	for _, n := range trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address unless the peer is a trusted proxy.
// Behind trusted proxies it returns the right-most X-Forwarded-For entry
// that is not itself trusted, then X-Real-IP.
func clientIP(r *http.Request) net.IP {
	var peer net.IP
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = net.ParseIP(host)
	}
	if peer == nil || !trusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		last := peer
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !trusted(ip) {
				return ip
			}
			last = ip
		}
		return last
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	return peer
}
