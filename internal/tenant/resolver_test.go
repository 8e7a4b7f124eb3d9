package tenant

import (
	"context"
	"testing"

	"pharmacy/internal/model"

	"github.com/google/uuid"
)

type fakeStore struct {
	byID  map[uuid.UUID]*model.Tenant
	bySub map[string]*model.Tenant
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) FindBySubdomain(_ context.Context, sub string) (*model.Tenant, error) {
	if t, ok := f.bySub[sub]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func newFakeStore(tenants ...*model.Tenant) *fakeStore {
	f := &fakeStore{byID: map[uuid.UUID]*model.Tenant{}, bySub: map[string]*model.Tenant{}}
	for _, t := range tenants {
		f.byID[t.ID] = t
		if t.Subdomain != "" {
			f.bySub[t.Subdomain] = t
		}
	}
	return f
}

func activeTenant(sub string) *model.Tenant {
	return &model.Tenant{ID: uuid.New(), Name: sub, Subdomain: sub, Status: model.TenantStatusActive}
}

func TestClaimBeatsHeader(t *testing.T) {
	t1 := activeTenant("alpha")
	t2 := activeTenant("beta")
	r := NewResolver(newFakeStore(t1, t2), false)

	got, err := r.Resolve(context.Background(), Request{
		ClaimTenantID:  t1.ID.String(),
		HeaderTenantID: t2.ID.String(),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != t1.ID {
		t.Fatalf("resolved %s, want claim tenant %s", got.ID, t1.ID)
	}
}

func TestSubdomainResolution(t *testing.T) {
	t1 := activeTenant("acme")
	r := NewResolver(newFakeStore(t1), false)

	got, err := r.Resolve(context.Background(), Request{Host: "acme.pharmacy.example:8080"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != t1.ID {
		t.Fatalf("resolved %s, want %s", got.ID, t1.ID)
	}
}

func TestReservedSubdomainFallsThroughToHeader(t *testing.T) {
	t1 := activeTenant("acme")
	r := NewResolver(newFakeStore(t1), false)

	got, err := r.Resolve(context.Background(), Request{
		Host:           "www.pharmacy.example",
		HeaderTenantID: t1.ID.String(),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != t1.ID {
		t.Fatalf("resolved %s, want header tenant %s", got.ID, t1.ID)
	}
}

func TestUnknownSubdomainFallsThrough(t *testing.T) {
	t1 := activeTenant("acme")
	r := NewResolver(newFakeStore(t1), false)

	got, err := r.Resolve(context.Background(), Request{
		Host:           "ghost.pharmacy.example",
		HeaderTenantID: t1.ID.String(),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != t1.ID {
		t.Fatalf("resolved %s, want header tenant %s", got.ID, t1.ID)
	}
}

func TestQueryParamGatedByEnvironment(t *testing.T) {
	t1 := activeTenant("acme")
	req := Request{QueryTenantID: t1.ID.String()}

	prod := NewResolver(newFakeStore(t1), false)
	if _, err := prod.Resolve(context.Background(), req); err != ErrNotResolved {
		t.Fatalf("production resolver err = %v, want ErrNotResolved", err)
	}

	dev := NewResolver(newFakeStore(t1), true)
	got, err := dev.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("dev resolver: %v", err)
	}
	if got.ID != t1.ID {
		t.Fatalf("resolved %s, want %s", got.ID, t1.ID)
	}
}

func TestUnknownTenantID(t *testing.T) {
	r := NewResolver(newFakeStore(), false)
	_, err := r.Resolve(context.Background(), Request{HeaderTenantID: uuid.NewString()})
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestInactiveTenantRejected(t *testing.T) {
	t1 := activeTenant("closed")
	t1.Status = model.TenantStatusSuspended
	r := NewResolver(newFakeStore(t1), false)

	_, err := r.Resolve(context.Background(), Request{ClaimTenantID: t1.ID.String()})
	if err != ErrInactive {
		t.Fatalf("err = %v, want ErrInactive", err)
	}
}

func TestNothingResolves(t *testing.T) {
	r := NewResolver(newFakeStore(), false)
	_, err := r.Resolve(context.Background(), Request{Host: "localhost:8080"})
	if err != ErrNotResolved {
		t.Fatalf("err = %v, want ErrNotResolved", err)
	}
}

func TestSubdomainExtraction(t *testing.T) {
	cases := map[string]string{
		"acme.pharmacy.example":      "acme",
		"acme.pharmacy.example:443":  "acme",
		"www.pharmacy.example":       "",
		"api.pharmacy.example":       "",
		"pharmacy.example":           "",
		"localhost":                  "",
		"localhost:8080":             "",
		"ACME.pharmacy.example":      "acme",
	}
	for host, want := range cases {
		if got := Subdomain(host); got != want {
			t.Errorf("Subdomain(%q) = %q, want %q", host, got, want)
		}
	}
}
