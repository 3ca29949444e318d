package keepa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guarzo/resellgap/internal/cache"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/fetch"
)

func newTestClient(url string, opts ...Option) *Client {
	cfg := config.Default().Keepa
	cfg.BaseURL = url
	opts = append(opts, WithFetcher(fetch.NewClient(5*time.Second, fetch.WithRetries(2, time.Millisecond))))
	return NewClient(cfg, opts...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestLookup_ByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/product" || r.URL.Query().Get("code") != "3700123456789" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.URL.Query().Get("domain") != "4" || r.URL.Query().Get("key") != "k" {
			t.Errorf("missing key or domain in %s", r.URL)
		}
		writeJSON(w, map[string]any{"products": []map[string]any{{
			"asin":  "B0TEST",
			"title": "Gel douche",
			"csv":   [][]int{{6000000, 1899, 6001440, 1999}},
			"stats": map[string]any{"current": []int{1999, 1899}},
		}}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, out := c.Lookup(context.Background(), Request{APIKey: "k", Domain: 4, Identifier: "3700123456789"})
	if !out.Ok() {
		t.Fatalf("Expected success, got %v", out)
	}
	if res.Price != 19.99 || res.Method != MethodCurrent || res.Matched != "code" {
		t.Errorf("Unexpected result %+v", res)
	}
	if len(res.History) != 2 {
		t.Errorf("Expected 2 history points, got %d", len(res.History))
	}
}

func TestLookup_FallsBackToSearchAndRefetch(t *testing.T) {
	var detailCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/product" && q.Get("code") != "":
			writeJSON(w, map[string]any{"products": []any{}})
		case r.URL.Path == "/search":
			if q.Get("term") != "Sanex Gel douche" {
				t.Errorf("unexpected term %q", q.Get("term"))
			}
			writeJSON(w, map[string]any{"asinList": []string{"B0FIRST", "B0SECOND"}})
		case r.URL.Path == "/product" && q.Get("asin") == "B0FIRST":
			atomic.AddInt32(&detailCalls, 1)
			writeJSON(w, map[string]any{"products": []map[string]any{{
				"asin":  "B0FIRST",
				"stats": map[string]any{"current": []int{-1, -1}, "avg30": []int{1250}},
			}}})
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, out := c.Lookup(context.Background(), Request{
		APIKey: "k", Domain: 4, Identifier: "000", Name: "Gel douche", Brand: "Sanex",
	})
	if !out.Ok() {
		t.Fatalf("Expected success, got %v", out)
	}
	if res.ASIN != "B0FIRST" || res.Price != 12.50 || res.Method != MethodAvg30 || res.Matched != "search" {
		t.Errorf("Unexpected result %+v", res)
	}
	if atomic.LoadInt32(&detailCalls) != 1 {
		t.Errorf("Expected one detail refetch, got %d", detailCalls)
	}
}

func TestLookup_NoCredentials(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, out := c.Lookup(context.Background(), Request{Identifier: "123"})
	if out.Kind != fetch.NotFound {
		t.Errorf("Expected not-found without key, got %v", out)
	}
}

func TestLookup_ProviderFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, out := c.Lookup(context.Background(), Request{APIKey: "k", Identifier: "123", Name: "x"})
	if out.Kind != fetch.Transient {
		t.Errorf("Expected transient, got %v", out)
	}
}

func TestLookup_APIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"error": map[string]string{"type": "invalidKey", "message": "bad"}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, out := c.Lookup(context.Background(), Request{APIKey: "k", Identifier: "123"})
	if out.Kind != fetch.Transient {
		t.Errorf("Expected transient for API error, got %v", out)
	}
}

func TestLookup_UsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, map[string]any{"products": []map[string]any{{
			"asin": "B0C", "stats": map[string]any{"current": []int{1000}},
		}}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithCache(cache.NewMemory(10), time.Hour))
	req := Request{APIKey: "k", Domain: 4, Identifier: "123"}
	for i := 0; i < 3; i++ {
		if _, out := c.Lookup(context.Background(), req); !out.Ok() {
			t.Fatalf("lookup %d: %v", i, out)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 upstream call, got %d", got)
	}
}
