package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSplitMount(t *testing.T) {
	cases := []struct{ in, mount, rel string }{
		{"secret/trackgate/db", "secret", "trackgate/db"},
		{"/kv/app/", "kv", "app"},
		{"kv", "kv", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		m, r := splitMount(tc.in)
		if m != tc.mount || r != tc.rel {
			t.Errorf("splitMount(%q) = (%q, %q), want (%q, %q)", tc.in, m, r, tc.mount, tc.rel)
		}
	}
}

const kvResponse = `{
  "request_id": "1",
  "lease_id": "",
  "renewable": false,
  "lease_duration": 0,
  "data": {
    "data": {"password": "hunter2", "port": 5432},
    "metadata": {
      "created_time": "2025-06-05T12:00:00Z",
      "custom_metadata": null,
      "deletion_time": "",
      "destroyed": false,
      "version": 3
    }
  }
}`

func newTestClient(t *testing.T) (*Client, *int32) {
	t.Helper()
	var reads int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/secret/data/trackgate/db" {
			atomic.AddInt32(&reads, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(kvResponse))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("VAULT_ADDR", srv.URL)
	t.Setenv("VAULT_TOKEN", "test-token")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &reads
}

func TestGetKV_ReadsAndCaches(t *testing.T) {
	c, reads := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.GetKV(ctx, "secret/trackgate/db", "password", time.Minute)
		if err != nil {
			t.Fatalf("GetKV: %v", err)
		}
		if got != "hunter2" {
			t.Fatalf("GetKV = %q, want hunter2", got)
		}
	}
	if n := atomic.LoadInt32(reads); n != 1 {
		t.Fatalf("backend reads = %d, want 1", n)
	}
}

func TestGetKV_Errors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := c.GetKV(ctx, "secret/trackgate/db", "missing", 0); err == nil {
		t.Error("missing key: expected error")
	}
	if _, err := c.GetKV(ctx, "secret/trackgate/db", "port", 0); err == nil {
		t.Error("non-string value: expected error")
	}
	if _, err := c.GetKV(ctx, "secret", "password", 0); err == nil {
		t.Error("mount only: expected error")
	}
	if _, err := c.GetKV(ctx, "", "password", 0); err == nil {
		t.Error("empty path: expected error")
	}
}
