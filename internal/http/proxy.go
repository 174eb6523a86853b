package http

import (
	"context"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http/httpproxy"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
)

const (
	defaultProxyPort = 8080
	warmupTimeout    = 15 * time.Second
)

func dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   constants.HTTPDialTimeout,
		KeepAlive: constants.HTTPDialKeepAlive,
	}
}

// applyProxy sets the proxy function on tr and returns the round tripper
// the client should use. NTLM mode wraps tr in a negotiator.
func applyProxy(tr *nethttp.Transport, cfg *config.Config) (nethttp.RoundTripper, error) {
	mode := strings.ToLower(cfg.ProxyMode)
	switch mode {
	case "no-proxy", "":
		tr.Proxy = nil
		return tr, nil

	case "system":
		tr.Proxy = nethttp.ProxyFromEnvironment
		return tr, nil

	case "basic", "ntlm":
		if cfg.ProxyHost == "" {
			// Incomplete saved settings should not keep the app from starting
			log.Warn().Str("mode", mode).Msg("proxy host missing, connecting directly")
			tr.Proxy = nil
			return tr, nil
		}
		if cfg.ProxyUser != "" && cfg.ProxyPassword == "" {
			log.Warn().Msg("proxy user configured without password, proxy auth disabled until a password is set")
		}
		tr.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy)
		if mode == "ntlm" {
			return ntlmssp.Negotiator{RoundTripper: tr}, nil
		}
		return tr, nil

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}
}

// buildProxyURL constructs a proxy URL from config
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = defaultProxyPort
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(cfg.ProxyHost, fmt.Sprint(port)),
	}

	// Only embed credentials when both parts are present
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyURL
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// With an empty list it behaves like nethttp.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	pc := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := pc.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			log.Debug().Str("host", req.URL.Host).Msg("proxy bypass")
		}
		return result, err
	}
}

// warmupProxy performs a health request so proxy authentication happens
// before the first upload.
func warmupProxy(client *nethttp.Client, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, strings.TrimRight(cfg.APIBaseURL, "/")+constants.HealthPath, nil)
	if err != nil {
		return fmt.Errorf("proxy warmup failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("proxy warmup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusProxyAuthRequired {
		return fmt.Errorf("proxy warmup failed: proxy rejected credentials")
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("proxy warmup failed: server error %d", resp.StatusCode)
	}
	return nil
}

// NeedsProxyPassword returns true if the proxy configuration requires a password
// but one has not been provided. Used by the CLI to decide on an interactive prompt.
func NeedsProxyPassword(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
}
