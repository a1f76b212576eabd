package http

import (
	"fmt"
	nethttp "net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"golang.org/x/net/http/httpproxy"

	"github.com/folio-media/folio/internal/config"
	"github.com/folio-media/folio/internal/logging"
)

const defaultProxyPort = 8080

// proxyRoute is the proxy decision for one client.
type proxyRoute struct {
	mode    string
	target  *url.URL // nil for direct and system modes
	noProxy string
}

// resolveProxy reads the proxy section of cfg. A basic or ntlm config without
// a host degrades to a direct connection so `folio config` still works.
func resolveProxy(cfg *config.Config, logger *logging.Logger) (proxyRoute, error) {
	mode := strings.ToLower(cfg.ProxyMode)
	switch mode {
	case "", "no-proxy":
		return proxyRoute{mode: "no-proxy"}, nil
	case "system":
		return proxyRoute{mode: mode}, nil
	case "basic", "ntlm":
	default:
		return proxyRoute{}, fmt.Errorf("unsupported proxy mode: %s", cfg.ProxyMode)
	}

	if cfg.ProxyHost == "" {
		logger.Warn().Str("mode", mode).Msg("Proxy host is missing, connecting directly")
		return proxyRoute{mode: "no-proxy"}, nil
	}

	port := cfg.ProxyPort
	if port == 0 {
		port = defaultProxyPort
	}
	target := &url.URL{Scheme: "http", Host: cfg.ProxyHost + ":" + strconv.Itoa(port)}
	switch {
	case cfg.ProxyUser == "":
	case cfg.ProxyPassword == "":
		// some proxies reject user info with an empty password
		logger.Warn().Str("user", cfg.ProxyUser).Msg("Proxy password missing, proxy auth disabled")
	default:
		target.User = url.UserPassword(cfg.ProxyUser, cfg.ProxyPassword)
	}

	return proxyRoute{mode: mode, target: target, noProxy: cfg.NoProxy}, nil
}

// active reports whether requests leave through a proxy. In system mode
// that depends on the environment.
func (r proxyRoute) active() bool {
	switch r.mode {
	case "no-proxy":
		return false
	case "system":
		for _, k := range []string{"HTTP_PROXY", "HTTPS_PROXY", "http_proxy", "https_proxy"} {
			if os.Getenv(k) != "" {
				return true
			}
		}
		return false
	}
	return r.target != nil
}

// install sets the proxy function on tr and returns the round tripper the
// client should use.
func (r proxyRoute) install(tr *nethttp.Transport, logger *logging.Logger) nethttp.RoundTripper {
	switch {
	case r.mode == "system":
		tr.Proxy = nethttp.ProxyFromEnvironment
	case r.target == nil:
		tr.Proxy = nil
	default:
		tr.Proxy = bypassProxy(r.target, r.noProxy, logger)
	}
	if r.mode == "ntlm" && r.target != nil {
		return ntlmssp.Negotiator{RoundTripper: tr}
	}
	return tr
}

// bypassProxy sends requests through target unless their host matches
// noProxy, which uses the NO_PROXY syntax understood by x/net/http/httpproxy.
func bypassProxy(target *url.URL, noProxy string, logger *logging.Logger) func(*nethttp.Request) (*url.URL, error) {
	if strings.TrimSpace(noProxy) == "" {
		return nethttp.ProxyURL(target)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	match := (&httpproxy.Config{
		HTTPProxy:  target.String(),
		HTTPSProxy: target.String(),
		NoProxy:    noProxy,
	}).ProxyFunc()

	return func(req *nethttp.Request) (*url.URL, error) {
		u, err := match(req.URL)
		if u == nil && err == nil {
			logger.Debug().Str("host", req.URL.Host).Msg("Bypassing proxy")
		}
		return u, err
	}
}

// NeedsProxyPassword reports whether an authenticating proxy has a user but
// no password, in which case the CLI prompts for one.
func NeedsProxyPassword(cfg *config.Config) bool {
	switch strings.ToLower(cfg.ProxyMode) {
	case "basic", "ntlm":
		return cfg.ProxyUser != "" && cfg.ProxyPassword == ""
	}
	return false
}
