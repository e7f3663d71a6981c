package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/logging"
)

// NewStorageClient returns the HTTP client handed to the S3 and Azure SDKs.
// It shares proxy settings with the API client but drops the overall request
// timeout; object-store calls are bounded by their context instead.
//
// HTTP/2 is enabled unless a proxy is in use or DISABLE_HTTP2=true is set,
// since many proxies break HTTP/2 multiplexing.
func NewStorageClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	client, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.Timeout = 0

	// NTLM mode wraps the transport in a negotiator; leave it alone.
	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		return client, nil
	}

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || proxyActive(cfg) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return client, nil
}

// proxyActive trusts the configured mode first and only consults the
// environment in system mode.
func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return true
	}
}
