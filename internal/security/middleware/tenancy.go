package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/serverhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
)

// Tenancy applies the gatekeeper to every non-excluded request. Rewrites
// change only the internal path; the client sees the URL it asked for.
// It must run after Session so authentication is known.
func Tenancy(resolver *tenancy.HostResolver, gate *tenancy.Gatekeeper, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			sub, _ := resolver.Resolve(r.Host)
			authenticated := GetClaimsFromContext(r.Context()) != nil
			d := gate.Decide(sub, r.URL, authenticated)
			metrics.ObserveRouterDecision(d.Disposition.String())

			switch d.Disposition {
			case tenancy.Rewrite:
				r2 := r.WithContext(context.WithValue(r.Context(), SubdomainContextKey{}, sub))
				u := *r.URL
				u.Path = d.Path
				u.RawPath = d.RawPath
				r2.URL = &u
				next.ServeHTTP(w, r2)
			case tenancy.Redirect:
				log.Debug("redirecting to login",
					slog.String("path", r.URL.Path),
					slog.String("location", d.Location()),
				)
				http.Redirect(w, r, d.Location(), http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
