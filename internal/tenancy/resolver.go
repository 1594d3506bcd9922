// Package tenancy maps inbound requests to tenant subdomains and decides
// whether a request is rewritten to a tenant page, redirected to login or
// served unchanged.
package tenancy

import (
	"net"
	"strings"
)

// ReservedSubdomains can never be claimed by a server and never route to one.
var ReservedSubdomains = map[string]struct{}{
	"www":       {},
	"api":       {},
	"app":       {},
	"admin":     {},
	"dashboard": {},
	"login":     {},
	"logout":    {},
	"register":  {},
	"static":    {},
	"images":    {},
	"assets":    {},
	"favicon":   {},
	"healthz":   {},
	"readyz":    {},
	"metrics":   {},
}

// IsReserved reports whether label is reserved for the apex site
func IsReserved(label string) bool {
	_, ok := ReservedSubdomains[strings.ToLower(label)]
	return ok
}

// HostResolver extracts the tenant subdomain from a Host header
type HostResolver struct {
	disabled   bool
	localHosts map[string]struct{}
}

// NewHostResolver creates a resolver. disabled turns subdomain splitting off
// for every host; localHosts lists extra hostnames treated as development hosts.
func NewHostResolver(disabled bool, localHosts []string) *HostResolver {
	hosts := make(map[string]struct{}, len(localHosts))
	for _, h := range localHosts {
		hosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return &HostResolver{disabled: disabled, localHosts: hosts}
}

// Resolve returns the subdomain token for host and true, or "" and false when
// the request targets the apex site.
//
// A host with more than two labels yields its first label. This cannot tell
// a multi-label apex such as example.co.uk from a subdomain; that is accepted.
func (r *HostResolver) Resolve(host string) (string, bool) {
	if r.IsLocal(host) {
		return "", false
	}

	name := strings.ToLower(stripPort(host))
	name = strings.TrimSuffix(name, ".")
	if name == "" || net.ParseIP(name) != nil {
		return "", false
	}

	labels := strings.Split(name, ".")
	if len(labels) <= 2 {
		return "", false
	}

	sub := labels[0]
	if sub == "" || sub == "www" {
		return "", false
	}
	return sub, true
}

// IsLocal reports whether host is a local development host, in which case
// subdomain routing is bypassed.
func (r *HostResolver) IsLocal(host string) bool {
	if r.disabled {
		return true
	}
	name := strings.ToLower(stripPort(host))
	if name == "localhost" || strings.HasSuffix(name, ".localhost") {
		return true
	}
	if _, ok := r.localHosts[name]; ok {
		return true
	}
	if ip := net.ParseIP(name); ip != nil && ip.IsLoopback() {
		return true
	}
	return false
}

func stripPort(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	// Bracketed IPv6 without a port.
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}
