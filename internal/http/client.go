// Package http builds the *http.Client shared by the upload transport, the
// service API client and the object storage sinks.
package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
)

// NewClient returns a client tuned for single large uploads that honours the
// configured proxy. A nil cfg yields a direct client with default settings.
//
// The overall client timeout is cfg.RequestTimeout. Callers that need a
// tighter bound pass a context deadline.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	tr := newTransport()
	rt, err := applyProxy(tr, cfg)
	if err != nil {
		return nil, err
	}

	configureHTTP2(tr, cfg)

	client := &nethttp.Client{
		Transport: rt,
		Timeout:   cfg.RequestTimeout,
	}

	if cfg.ProxyWarmup && proxyActive(cfg) && !NeedsProxyPassword(cfg) {
		if err := warmupProxy(client, cfg); err != nil {
			return nil, err
		}
	}

	return client, nil
}

// configureHTTP2 enables HTTP/2 unless disabled or a proxy is in the path.
// Proxies often break HTTP/2 multiplexing mid-upload.
func configureHTTP2(tr *nethttp.Transport, cfg *config.Config) {
	if cfg.DisableHTTP2 || (proxyActive(cfg) && !cfg.ForceHTTP2) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
		return
	}
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)
}

// proxyActive reports whether requests will go through a proxy.
func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return cfg.ProxyHost != ""
	}
}

func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext:           dialer().DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		// PDFs and spreadsheets are already compressed
		DisableCompression: true,
	}
}
