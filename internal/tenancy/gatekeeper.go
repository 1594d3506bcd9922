package tenancy

import (
	"net/url"
	"strings"
)

// Disposition is what the router does with a request
type Disposition int

const (
	PassThrough Disposition = iota
	Rewrite
	Redirect
)

func (d Disposition) String() string {
	switch d {
	case Rewrite:
		return "rewrite"
	case Redirect:
		return "redirect"
	default:
		return "pass"
	}
}

// CallbackParam is the query parameter carrying the page to return to after login.
const CallbackParam = "callbackUrl"

// Decision is the outcome of Gatekeeper.Decide. Path and RawQuery describe the
// rewrite target or the redirect location. RawPath is the encoded rewrite
// target, set only when the request path carried one.
type Decision struct {
	Disposition Disposition
	Path        string
	RawPath     string
	RawQuery    string
}

// Location renders the decision target as a relative URL
func (d Decision) Location() string {
	if d.RawQuery == "" {
		return d.Path
	}
	return d.Path + "?" + d.RawQuery
}

// Gatekeeper decides rewrites and login redirects. It holds only
// configuration and is safe for concurrent use.
type Gatekeeper struct {
	protectedPrefix string
	loginPath       string
	excluded        []string
}

// DefaultExcludedPrefixes are never evaluated by the gatekeeper.
var DefaultExcludedPrefixes = []string{
	"/api/",
	"/static/",
	"/images/",
	"/favicon.ico",
	"/healthz",
	"/readyz",
	"/metrics",
}

// NewGatekeeper creates a gatekeeper protecting protectedPrefix
func NewGatekeeper(protectedPrefix, loginPath string, excluded []string) *Gatekeeper {
	if protectedPrefix == "" {
		protectedPrefix = "/dashboard"
	}
	if loginPath == "" {
		loginPath = "/login"
	}
	if excluded == nil {
		excluded = DefaultExcludedPrefixes
	}
	return &Gatekeeper{
		protectedPrefix: strings.TrimSuffix(protectedPrefix, "/"),
		loginPath:       loginPath,
		excluded:        excluded,
	}
}

// Excluded reports whether path bypasses the gatekeeper entirely. Entries
// ending in "/" match the whole subtree; others match exactly or as a parent.
func (g *Gatekeeper) Excluded(path string) bool {
	for _, prefix := range g.excluded {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/") {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Decide picks the disposition for a request, in priority order: tenant
// rewrite, login redirect for protected paths, pass through.
func (g *Gatekeeper) Decide(subdomain string, u *url.URL, authenticated bool) Decision {
	path := u.Path
	if path == "" {
		path = "/"
	}

	if subdomain != "" && !IsReserved(subdomain) {
		d := Decision{
			Disposition: Rewrite,
			Path:        "/" + subdomain + path,
			RawQuery:    u.RawQuery,
		}
		if u.RawPath != "" {
			d.RawPath = "/" + subdomain + u.EscapedPath()
		}
		return d
	}

	if g.Protected(path) && !authenticated {
		q := url.Values{}
		q.Set(CallbackParam, path)
		return Decision{
			Disposition: Redirect,
			Path:        g.loginPath,
			RawQuery:    q.Encode(),
		}
	}

	return Decision{Disposition: PassThrough, Path: path, RawQuery: u.RawQuery}
}

// Protected reports whether path lies under the protected prefix
func (g *Gatekeeper) Protected(path string) bool {
	return path == g.protectedPrefix || strings.HasPrefix(path, g.protectedPrefix+"/")
}
