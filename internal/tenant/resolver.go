package tenant

import (
	"context"
	"errors"
	"net"
	"strings"

	"pharmacy/internal/model"

	"github.com/google/uuid"
)

var (
	// ErrNotResolved means no identification method produced a tenant (400).
	ErrNotResolved = errors.New("tenant: not resolved")
	// ErrNotFound means an id was supplied but no such tenant exists (404).
	ErrNotFound = errors.New("tenant: not found")
	// ErrInactive means the tenant exists but is suspended (403).
	ErrInactive = errors.New("tenant: inactive")
)

// Store is the lookup surface the resolver needs. Implementations map their
// storage's not-found condition to ErrNotFound.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
}

// Request carries the tenant identification material extracted from an
// inbound request.
type Request struct {
	ClaimTenantID  string // tenant_id claim from the verified token
	Host           string // request host, possibly with port
	HeaderTenantID string // X-Tenant-ID header
	QueryTenantID  string // tenant_id query parameter
}

// First subdomain labels that never identify a tenant.
var reservedLabels = map[string]bool{
	"www": true,
	"api": true,
	"app": true,
}

// Resolver determines the active tenant for a request. Identification methods
// are tried in a fixed priority order, first match wins: token claim, then
// hostname subdomain, then explicit header, then query parameter. The query
// parameter is only honored when allowQueryParam is set (non-production).
type Resolver struct {
	store           Store
	allowQueryParam bool
}

func NewResolver(store Store, allowQueryParam bool) *Resolver {
	return &Resolver{store: store, allowQueryParam: allowQueryParam}
}

// Resolve returns the validated tenant for the request. The tenant must exist
// and be active; the distinct errors map to 400/404/403 at the HTTP layer.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*model.Tenant, error) {
	if id, err := uuid.Parse(req.ClaimTenantID); err == nil {
		return r.validate(ctx, id)
	}

	if sub := Subdomain(req.Host); sub != "" {
		t, err := r.store.FindBySubdomain(ctx, sub)
		switch {
		case err == nil:
			return r.checkActive(t)
		case errors.Is(err, ErrNotFound):
			// Unknown subdomain is not a match; fall through to the
			// explicit identification methods.
		default:
			return nil, err
		}
	}

	if id, err := uuid.Parse(req.HeaderTenantID); err == nil {
		return r.validate(ctx, id)
	}

	if r.allowQueryParam {
		if id, err := uuid.Parse(req.QueryTenantID); err == nil {
			return r.validate(ctx, id)
		}
	}

	return nil, ErrNotResolved
}

func (r *Resolver) validate(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	t, err := r.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.checkActive(t)
}

func (r *Resolver) checkActive(t *model.Tenant) (*model.Tenant, error) {
	if !t.IsActive() {
		return nil, ErrInactive
	}
	return t, nil
}

// Subdomain extracts the first hostname label when the host has enough labels
// to carry one (e.g. "acme.pharmacy.example" -> "acme"). Reserved labels and
// bare or two-label hosts yield "".
func Subdomain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	labels := strings.Split(strings.ToLower(host), ".")
	if len(labels) < 3 {
		return ""
	}
	first := labels[0]
	if first == "" || reservedLabels[first] {
		return ""
	}
	return first
}
