package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/serverhub/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/serverhub/internal/render"
)

// Page is a published server ready to be written out
type Page struct {
	Server *domain.Server
	Tenant render.Tenant
	Blocks []render.Block
}

// PageService builds public pages. Directory lookups go through a circuit
// breaker so a failing database turns into fast 503s.
type PageService struct {
	servers  domain.ServerRepository
	registry *render.Registry
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewPageService creates a page service. A nil breaker gets a default of
// five failures to open and a thirty second cool-down.
func NewPageService(
	servers domain.ServerRepository,
	registry *render.Registry,
	breaker *circuitbreaker.CircuitBreaker,
	logger *slog.Logger,
) *PageService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = render.NewDefaultRegistry(logger)
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	}
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("tenant directory breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &PageService{servers: servers, registry: registry, breaker: breaker, logger: logger}
}

// Published returns the rendered page of the server published at subdomain.
// Unknown and unpublished subdomains both yield domain.ErrNotFound.
func (s *PageService) Published(ctx context.Context, subdomain string) (*Page, error) {
	subdomain = strings.ToLower(subdomain)
	if !subdomainPattern.MatchString(subdomain) {
		metrics.ObservePageRender("not_found")
		return nil, fmt.Errorf("subdomain %q: %w", subdomain, domain.ErrNotFound)
	}

	var (
		server   *domain.Server
		sections []*domain.Section
	)
	err := s.breaker.Execute(func() error {
		var err error
		server, sections, err = s.servers.FindPublishedBySubdomain(ctx, subdomain)
		return err
	}, isExpectedLookupError)

	switch {
	case err == nil:
	case errors.Is(err, circuitbreaker.ErrOpen):
		metrics.ObservePageRender("unavailable")
		return nil, fmt.Errorf("tenant directory: %w", domain.ErrUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		metrics.ObservePageRender("not_found")
		return nil, err
	default:
		metrics.ObservePageRender("error")
		s.logger.Error("failed to load page",
			slog.String("subdomain", subdomain),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("load page: %w", err)
	}

	// repositories already filter, but a page must never show a draft
	if !server.Published {
		metrics.ObservePageRender("not_found")
		return nil, fmt.Errorf("subdomain %q: %w", subdomain, domain.ErrNotFound)
	}

	visible := make([]*domain.Section, 0, len(sections))
	for _, sec := range sections {
		if sec != nil && sec.Visible {
			visible = append(visible, sec)
		}
	}
	slices.SortStableFunc(visible, compareSections)

	tenant := render.TenantFromServer(server)
	metrics.ObservePageRender("ok")
	return &Page{Server: server, Tenant: tenant, Blocks: s.registry.Render(tenant, visible)}, nil
}

// BreakerState exposes the directory breaker state for readiness checks
func (s *PageService) BreakerState() circuitbreaker.State {
	return s.breaker.GetState()
}

func isExpectedLookupError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled)
}

func compareSections(a, b *domain.Section) int {
	if a.Order != b.Order {
		return a.Order - b.Order
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
