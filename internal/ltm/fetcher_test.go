package ltm

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

func testPoolConfig() pool.Config {
	return pool.Config{
		Name: "llama", Partition: "prod", EngineKind: enginemap.VLLM,
		Algorithm: pool.Algorithm{Name: pool.S1, Weights: pool.Weights{WA: 0.5, WB: 0.5}},
	}
}

func TestFetchOneReconcilesOnSuccess(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/authn/login"):
			json.NewEncoder(w).Encode(loginResponse{Token: "tok", ExpiresIn: 3600})
		case strings.Contains(r.URL.Path, "/pool/"):
			json.NewEncoder(w).Encode(membersResponse{Members: []MemberDTO{
				{IP: "10.0.0.1", Port: 8000},
				{IP: "10.0.0.2", Port: 8000},
			}})
		}
	})
	defer srv.Close()

	store := pool.NewStore()
	p := store.AddOrUpdatePool(testPoolConfig())

	f := NewFetcher(c, store)
	f.fetchOne(context.Background(), p)

	if got := p.MemberCount(); got != 2 {
		t.Fatalf("expected 2 members after fetch, got %d", got)
	}
}

func TestFetchOnePreservesMembershipOnFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/authn/login"):
			json.NewEncoder(w).Encode(loginResponse{Token: "tok", ExpiresIn: 3600})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	defer srv.Close()

	store := pool.NewStore()
	p := store.AddOrUpdatePool(testPoolConfig())
	p.Reconcile([]pool.Member{{IP: "10.0.0.9", Port: 8000}})

	f := NewFetcher(c, store)
	f.fetchOne(context.Background(), p)

	if got := p.MemberCount(); got != 1 {
		t.Fatalf("expected membership unchanged (1 member) after failed fetch, got %d", got)
	}
	if _, ok := p.Get(pool.Member{IP: "10.0.0.9", Port: 8000}); !ok {
		t.Fatal("expected the pre-existing member to survive a failed fetch")
	}
}

func TestRunSkipsOverlappingTicksForSamePool(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/authn/login"):
			json.NewEncoder(w).Encode(loginResponse{Token: "tok", ExpiresIn: 3600})
		case strings.Contains(r.URL.Path, "/pool/"):
			started <- struct{}{}
			<-release
			json.NewEncoder(w).Encode(membersResponse{Members: []MemberDTO{{IP: "10.0.0.1", Port: 8000}}})
		}
	})
	defer srv.Close()

	store := pool.NewStore()
	store.AddOrUpdatePool(testPoolConfig())

	f := NewFetcher(c, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx, func() time.Duration { return 10 * time.Millisecond })

	<-started
	select {
	case <-started:
		t.Fatal("expected a second in-flight fetch to be skipped, not started")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
}
