package gate

import (
	"net/http"
	"strings"
)

// DefaultParam is the request parameter carrying the site identifier.
const DefaultParam = "idsite"

// Request is the part of an inbound tracking request the gate looks at.
// Transports build one; the gate never sees *http.Request.
type Request struct {
	SiteToken string // raw identifier, possibly obfuscated; empty when absent
}

// HasSite reports whether the request names a site at all.
func (r Request) HasSite() bool { return r.SiteToken != "" }

// FromHTTP reads param from the query string or a urlencoded POST body.
func FromHTTP(r *http.Request, param string) Request {
	if param == "" {
		param = DefaultParam
	}
	return Request{SiteToken: strings.TrimSpace(r.FormValue(param))}
}
