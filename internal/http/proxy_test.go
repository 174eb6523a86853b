package http

import (
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
)

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name      string
		noProxy   string
		target    string
		wantProxy bool
	}{
		{"empty list always proxies", "", "https://payroll.example.com/api/process-document", true},
		{"wildcard domain bypasses subdomain", "*.example.com", "https://payroll.example.com/health", false},
		{"bare domain bypasses itself", "example.com", "https://example.com/health", false},
		{"bare domain bypasses subdomain", "example.com", "https://api.example.com/health", false},
		{"cidr bypasses address in range", "10.0.0.0/8", "http://10.1.2.3:8000/health", false},
		{"non-matching host is proxied", "internal.corp", "https://payroll.example.com/health", true},
		{"multiple patterns", "internal.corp, 192.168.0.0/16", "http://192.168.1.10:8000/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := proxyFuncWithBypass(proxyURL, tt.noProxy)
			req, _ := nethttp.NewRequest(nethttp.MethodGet, tt.target, nil)
			got, err := fn(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantProxy && (got == nil || got.Host != "proxy.corp:8080") {
				t.Errorf("expected proxy.corp:8080, got %v", got)
			}
			if !tt.wantProxy && got != nil {
				t.Errorf("expected direct connection, got %v", got)
			}
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		wantHost string
		wantUser bool
	}{
		{"default port", &config.Config{ProxyHost: "proxy.corp"}, "proxy.corp:8080", false},
		{"explicit port", &config.Config{ProxyHost: "proxy.corp", ProxyPort: 3128}, "proxy.corp:3128", false},
		{"user without password", &config.Config{ProxyHost: "proxy.corp", ProxyUser: "alice"}, "proxy.corp:8080", false},
		{"full credentials", &config.Config{ProxyHost: "proxy.corp", ProxyUser: "alice", ProxyPassword: "pw"}, "proxy.corp:8080", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := buildProxyURL(tt.cfg)
			if u.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", u.Host, tt.wantHost)
			}
			if (u.User != nil) != tt.wantUser {
				t.Errorf("User = %v, wantUser %v", u.User, tt.wantUser)
			}
		})
	}
}

func TestApplyProxy(t *testing.T) {
	t.Run("no-proxy leaves transport direct", func(t *testing.T) {
		tr := newTransport()
		rt, err := applyProxy(tr, &config.Config{ProxyMode: "no-proxy"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rt != tr || tr.Proxy != nil {
			t.Error("expected bare transport without proxy")
		}
	})

	t.Run("ntlm wraps transport", func(t *testing.T) {
		rt, err := applyProxy(newTransport(), &config.Config{ProxyMode: "ntlm", ProxyHost: "proxy.corp"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := rt.(ntlmssp.Negotiator); !ok {
			t.Errorf("expected ntlmssp.Negotiator, got %T", rt)
		}
	})

	t.Run("basic without host falls back to direct", func(t *testing.T) {
		tr := newTransport()
		if _, err := applyProxy(tr, &config.Config{ProxyMode: "basic"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Proxy != nil {
			t.Error("expected direct connection")
		}
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		if _, err := applyProxy(newTransport(), &config.Config{ProxyMode: "socks"}); err == nil {
			t.Error("expected error for unsupported mode")
		}
	})
}

func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		cfg  config.Config
		want bool
	}{
		{config.Config{ProxyMode: "no-proxy", ProxyUser: "alice"}, false},
		{config.Config{ProxyMode: "system", ProxyUser: "alice"}, false},
		{config.Config{ProxyMode: "basic", ProxyUser: "alice"}, true},
		{config.Config{ProxyMode: "NTLM", ProxyUser: "alice"}, true},
		{config.Config{ProxyMode: "basic", ProxyUser: "alice", ProxyPassword: "pw"}, false},
		{config.Config{ProxyMode: "basic"}, false},
	}

	for _, tt := range tests {
		if got := NeedsProxyPassword(&tt.cfg); got != tt.want {
			t.Errorf("NeedsProxyPassword(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

// proxyConfig points a basic-auth proxy config at the given test server.
func proxyConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	u, _ := url.Parse(srv.URL)
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("bad server address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	cfg := config.Default()
	cfg.APIBaseURL = "http://payroll.internal:8000"
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = host
	cfg.ProxyPort = port
	cfg.ProxyUser = "alice"
	cfg.ProxyPassword = "pw"
	cfg.ProxyWarmup = true
	return cfg
}

func TestNewClient_WarmupThroughProxy(t *testing.T) {
	var gotAuth, gotURL string
	proxy := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
		gotURL = r.URL.String()
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer proxy.Close()

	client, err := NewClient(proxyConfig(t, proxy))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client == nil {
		t.Fatal("expected client")
	}
	if gotAuth == "" {
		t.Error("expected Proxy-Authorization header on warmup request")
	}
	if gotURL != "http://payroll.internal:8000/health" {
		t.Errorf("warmup URL = %q, want health endpoint", gotURL)
	}
}

func TestNewClient_WarmupRejected(t *testing.T) {
	proxy := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusProxyAuthRequired)
	}))
	defer proxy.Close()

	if _, err := NewClient(proxyConfig(t, proxy)); err == nil {
		t.Error("expected warmup error when proxy rejects credentials")
	}
}

func TestNewClient_HTTP2Toggles(t *testing.T) {
	t.Run("direct connection keeps http2", func(t *testing.T) {
		tr := newTransport()
		configureHTTP2(tr, config.Default())
		if !tr.ForceAttemptHTTP2 {
			t.Error("expected HTTP/2 to be attempted")
		}
	})

	t.Run("disable flag forces http1", func(t *testing.T) {
		cfg := config.Default()
		cfg.DisableHTTP2 = true
		tr := newTransport()
		configureHTTP2(tr, cfg)
		if tr.ForceAttemptHTTP2 || tr.TLSNextProto == nil {
			t.Error("expected HTTP/1.1 only transport")
		}
	})

	t.Run("proxy disables http2 unless forced", func(t *testing.T) {
		cfg := &config.Config{ProxyMode: "basic", ProxyHost: "proxy.corp"}
		tr := newTransport()
		configureHTTP2(tr, cfg)
		if tr.ForceAttemptHTTP2 {
			t.Error("expected HTTP/2 off behind proxy")
		}

		cfg.ForceHTTP2 = true
		tr = newTransport()
		configureHTTP2(tr, cfg)
		if !tr.ForceAttemptHTTP2 {
			t.Error("expected HTTP/2 when forced")
		}
	})
}

func TestNewClient_RequestTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.RequestTimeout = 42
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.Timeout != 42 {
		t.Errorf("Timeout = %v, want 42ns", client.Timeout)
	}
}
