package requestinfo

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	if err := SetTrustedProxies([]string{"10.0.0.0/8", "192.0.2.0/24"}); err != nil {
		t.Fatalf("SetTrustedProxies: %v", err)
	}
	t.Cleanup(func() { trustedProxies = nil })

	cases := []struct {
		name   string
		xff    string
		xrip   string
		remote string
		want   string
	}{
		{"untrusted peer ignores xff", "203.0.113.7", "", "198.51.100.9:5555", "198.51.100.9"},
		{"untrusted peer ignores x-real-ip", "", "203.0.113.7", "198.51.100.9:5555", "198.51.100.9"},
		{"right-most untrusted hop", "1.2.3.4, 203.0.113.7, 10.0.0.1", "", "192.0.2.1:5555", "203.0.113.7"},
		{"spoofed left entry ignored", "6.6.6.6, 203.0.113.7", "", "10.1.1.1:80", "203.0.113.7"},
		{"garbage stops the walk", "203.0.113.7, garbage, 10.0.0.2", "", "192.0.2.1:5555", "10.0.0.2"},
		{"x-real-ip behind proxy", "", "198.51.100.4", "192.0.2.1:5555", "198.51.100.4"},
		{"remote addr", "", "", "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/track", nil)
		r.RemoteAddr = tc.remote
		if tc.xff != "" {
			r.Header.Set("X-Forwarded-For", tc.xff)
		}
		if tc.xrip != "" {
			r.Header.Set("X-Real-Ip", tc.xrip)
		}
		if got := clientIP(r); !got.Equal(net.ParseIP(tc.want)) {
			t.Errorf("%s: clientIP = %v, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClientIP_NoTrustedProxies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/track", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := clientIP(r); !got.Equal(net.ParseIP("192.0.2.1")) {
		t.Errorf("clientIP = %v, want peer address", got)
	}
}

func TestSetTrustedProxies_Invalid(t *testing.T) {
	t.Cleanup(func() { trustedProxies = nil })
	if err := SetTrustedProxies([]string{"10.0.0.1"}); err == nil {
		t.Fatal("bare address accepted as CIDR")
	}
}

func TestPrimaryLang(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"en-US,en;q=0.9":            "en-us",
		"fr;q=0.8, en":              "fr",
		" DE-ch ; q=1.0 , en;q=0.5": "de-ch",
	}
	for in, want := range cases {
		if got := primaryLang(in); got != want {
			t.Errorf("primaryLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnrich_AttachesInfo(t *testing.T) {
	var got *RequestInfo
	h := Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/track?idsite=1", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	r.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got == nil {
		t.Fatal("RequestInfo not attached")
	}
	if got.UA.PrimaryLang != "en-gb" {
		t.Errorf("PrimaryLang = %q", got.UA.PrimaryLang)
	}
	if got.UA.Raw == "" || got.URL.Path != "/track" || got.Timestamp.IsZero() {
		t.Errorf("unexpected info: %+v", got)
	}
}

func TestFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if FromContext(r.Context()) != nil {
		t.Fatal("expected nil without Enrich")
	}
}
