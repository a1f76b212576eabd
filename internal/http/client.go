// Package http builds the HTTP transport shared by the catalog API client and
// the thumbnail sources, and provides retry helpers for them.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/folio-media/folio/internal/config"
	"github.com/folio-media/folio/internal/constants"
	"github.com/folio-media/folio/internal/logging"
)

// NewClient creates an HTTP client with proxy support for catalog and thumbnail traffic.
//
// HTTP/2 is attempted for direct connections and disabled when a proxy is in
// use, since many corporate proxies mishandle multiplexed streams.
// DISABLE_HTTP2=true forces HTTP/1.1; FORCE_HTTP2=true keeps HTTP/2 behind a proxy.
//
// A nil cfg reads proxy settings from the environment.
func NewClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg == nil {
		cfg = config.NewConfig()
		cfg.ProxyMode = "system"
	}

	tr := &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout: constants.HTTPDialTimeout,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: constants.HTTPMaxIdleConnsPerHost,
		IdleConnTimeout:     constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: constants.HTTPTLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		logger.Debug().Err(err).Msg("HTTP/2 transport setup failed, using HTTP/1.1")
	}

	route, err := resolveProxy(cfg, logger)
	if err != nil {
		return nil, err
	}
	if os.Getenv("DISABLE_HTTP2") == "true" || (route.active() && os.Getenv("FORCE_HTTP2") != "true") {
		disableHTTP2(tr)
	}

	return &nethttp.Client{
		Transport: route.install(tr, logger),
		Timeout:   constants.HTTPRequestTimeout,
	}, nil
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}
