package tenant

import (
	"context"
	"strconv"
	"testing"

	"github.com/zooarc/menagerie/errors"
)

func openResolver(t *testing.T) (*Directory, *Resolver) {
	t.Helper()
	dir := openDirectory(t)
	return dir, NewResolver(dir, nil)
}

func TestResolveByClaim(t *testing.T) {
	dir, res := openResolver(t)
	tn := mustCreate(t, dir, &Tenant{Name: "okapi", Domain: "okapi.example"})

	got, err := res.Resolve(context.Background(), Signals{TenantClaim: tn.ID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != tn.ID {
		t.Fatalf("expected tenant %d, got %d", tn.ID, got.ID)
	}
}

func TestResolveClaimWinsOverEmail(t *testing.T) {
	dir, res := openResolver(t)
	claimed := mustCreate(t, dir, &Tenant{Name: "okapi"})
	mustCreate(t, dir, &Tenant{Name: "aviary", Domain: "aviary.example"})

	got, err := res.Resolve(context.Background(), Signals{
		TenantClaim: claimed.ID,
		Email:       "keeper@aviary.example",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != claimed.ID {
		t.Fatalf("expected claim to win, got tenant %d", got.ID)
	}
}

func TestResolveByEmailDomain(t *testing.T) {
	dir, res := openResolver(t)
	tn := mustCreate(t, dir, &Tenant{Name: "okapi", Domain: "okapi.example"})

	got, err := res.Resolve(context.Background(), Signals{Email: "Keeper@OKAPI.example"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != tn.ID {
		t.Fatalf("expected tenant %d, got %d", tn.ID, got.ID)
	}
}

func TestResolveByHostSubdomain(t *testing.T) {
	dir, res := openResolver(t)
	tn := mustCreate(t, dir, &Tenant{Name: "okapi"})

	got, err := res.Resolve(context.Background(), Signals{Host: "okapi.zoo.example:8443"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != tn.ID {
		t.Fatalf("expected tenant %d, got %d", tn.ID, got.ID)
	}

	// A numeric subdomain resolves as a tenant id.
	host := strconv.FormatInt(tn.ID, 10) + ".zoo.example"
	got, err = res.Resolve(context.Background(), Signals{Host: host})
	if err != nil {
		t.Fatalf("numeric subdomain: %v", err)
	}
	if got.ID != tn.ID {
		t.Fatalf("expected tenant %d, got %d", tn.ID, got.ID)
	}
}

func TestResolveNoSignalsFailsClosed(t *testing.T) {
	dir, res := openResolver(t)
	mustCreate(t, dir, &Tenant{Name: "okapi", Domain: "okapi.example"})

	cases := []Signals{
		{},
		{Email: "keeper@unknown.example"},
		{Host: "zoo.example"},             // no subdomain
		{Host: "www.zoo.example"},         // www is not a tenant label
		{Host: "10.0.0.5:8080"},           // ip hosts never resolve
		{TenantClaim: 424242},             // unknown claim
		{Email: "not-an-email"},           // malformed email
	}
	for _, sig := range cases {
		if _, err := res.Resolve(context.Background(), sig); !errors.Is(err, errors.ErrTenantRequired) {
			t.Errorf("Resolve(%+v): expected tenant required, got %v", sig, err)
		}
	}
}

func TestResolveSuspendedTenantDistinctSignal(t *testing.T) {
	dir, res := openResolver(t)
	tn := mustCreate(t, dir, &Tenant{Name: "okapi", Domain: "okapi.example"})
	if err := dir.Suspend(context.Background(), tn.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	_, err := res.Resolve(context.Background(), Signals{TenantClaim: tn.ID})
	if !errors.Is(err, errors.ErrTenantSuspended) {
		t.Fatalf("expected tenant suspended, got %v", err)
	}

	// A suspended claim does not block a later signal that resolves.
	other := mustCreate(t, dir, &Tenant{Name: "aviary", Domain: "aviary.example"})
	got, err := res.Resolve(context.Background(), Signals{
		TenantClaim: tn.ID,
		Email:       "keeper@aviary.example",
	})
	if err != nil {
		t.Fatalf("resolve with fallback: %v", err)
	}
	if got.ID != other.ID {
		t.Fatalf("expected fallback tenant %d, got %d", other.ID, got.ID)
	}
}

func TestSkipsResolution(t *testing.T) {
	for _, path := range []string{"/healthz", "/livez", "/readyz", "/metrics", "/.well-known/ai-plugin.json"} {
		if !SkipsResolution(path) {
			t.Errorf("expected %s to skip resolution", path)
		}
	}
	for _, path := range []string{"/", "/api/v1/specimens", "/health"} {
		if SkipsResolution(path) {
			t.Errorf("expected %s to require resolution", path)
		}
	}
}
