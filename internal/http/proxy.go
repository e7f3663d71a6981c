// Package http builds the HTTP clients used to talk to the workspace-management
// API and the object stores, honouring the configured proxy mode.
package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	nethttp "net/http"
	"net/url"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/rescale/rescale-staging/internal/config"
	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/logging"
)

// ConfigureHTTPClient configures an HTTP client with proxy settings
func ConfigureHTTPClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	transport := newTransport()

	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		transport.Proxy = nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "ntlm", "basic":
		// An incomplete saved config falls back to a direct connection so the
		// user can still reach the API and fix it.
		if cfg.ProxyHost == "" {
			logger.Warn().Str("mode", cfg.ProxyMode).Msg("proxy host is missing, falling back to no-proxy mode")
			transport.Proxy = nil
			return newClient(transport), nil
		}
		if cfg.ProxyUser != "" && cfg.ProxyPassword == "" {
			logger.Warn().Str("user", cfg.ProxyUser).Msg("proxy user configured but password missing, proxy auth disabled")
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(cfg), cfg.NoProxy, logger)

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	client := newClient(transport)
	if strings.EqualFold(cfg.ProxyMode, "ntlm") {
		client.Transport = ntlmssp.Negotiator{RoundTripper: transport}
	}

	if shouldWarmup(cfg) {
		if err := warmupProxy(client, cfg); err != nil {
			return nil, fmt.Errorf("proxy warmup failed: %w", err)
		}
	}

	return client, nil
}

func newTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}

func newClient(rt nethttp.RoundTripper) *nethttp.Client {
	return &nethttp.Client{
		Transport: rt,
		Timeout:   constants.HTTPClientTimeout,
	}
}

// shouldWarmup only warms up authenticated proxies when credentials are complete;
// otherwise the caller is expected to prompt for the password first.
func shouldWarmup(cfg *config.Config) bool {
	if !cfg.ProxyWarmup {
		return false
	}
	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		return false
	case "basic", "ntlm":
		return cfg.ProxyUser != "" && cfg.ProxyPassword != ""
	default:
		return true
	}
}

// buildProxyURL constructs a proxy URL from config
func buildProxyURL(cfg *config.Config) *url.URL {
	port := cfg.ProxyPort
	if port == 0 {
		port = 8080 // Default proxy port
	}

	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, port),
	}

	// Empty password in URL can cause auth failures with some proxies
	if cfg.ProxyUser != "" && cfg.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyURL
}

// warmupProxy performs a warmup request to establish the proxy connection.
func warmupProxy(client *nethttp.Client, cfg *config.Config) error {
	warmupURL := cfg.APIBaseURL
	if warmupURL == "" {
		warmupURL = constants.DefaultAPIBaseURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ProxyWarmupTimeout)
	defer cancel()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, strings.TrimRight(warmupURL, "/")+"/v2/storage", nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("warmup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("warmup request returned server error: %d", resp.StatusCode)
	}

	return nil
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// If noProxy is empty, behaves identically to nethttp.ProxyURL.
// When noProxy is set, uses golang.org/x/net/http/httpproxy to match hosts/CIDRs.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string, logger *logging.Logger) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			logger.Debug().Str("host", req.URL.Host).Msg("proxy bypass, direct connection")
		} else {
			logger.Debug().Str("host", req.URL.Host).Str("proxy", result.Host).Msg("proxied")
		}
		return result, err
	}
}

// NeedsProxyPassword returns true if the proxy configuration requires a password
// but one has not been provided. Used by CLI to determine if interactive prompt is needed.
func NeedsProxyPassword(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
}
