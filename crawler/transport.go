package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection; nil when
// utls cannot build it.
var chromeH1Spec *tls.ClientHelloSpec

func init() {
	spec, err := chromeHTTP1Spec()
	if err != nil {
		slog.Warn("chrome tls fingerprint unavailable, using default client hello", "error", err)
		return
	}
	chromeH1Spec = spec
}

func chromeHTTP1Spec() (*tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return nil, fmt.Errorf("transport: chrome hello spec: %w", err)
	}
	// net/http cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			return &spec, nil
		}
	}
	return nil, fmt.Errorf("transport: chrome hello spec has no ALPN extension")
}

// uClient wraps conn in a TLS client using spec, or the stock Go hello
// limited to http/1.1 when spec is nil.
func uClient(conn net.Conn, host string, spec *tls.ClientHelloSpec) (*tls.UConn, error) {
	if spec == nil {
		cfg := &tls.Config{ServerName: host, NextProtos: []string{"http/1.1"}}
		return tls.UClient(conn, cfg, tls.HelloGolang), nil
	}
	u := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := u.ApplyPreset(spec); err != nil {
		return nil, fmt.Errorf("transport: apply tls spec: %w", err)
	}
	return u, nil
}

// dialFunc opens a plain TCP connection.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// newTransport builds the fetch transport. With a non-empty proxyAddr every
// connection is tunnelled through that SOCKS5 proxy and host names are
// resolved on the proxy side.
func newTransport(proxyAddr string, timeout time.Duration) (*http.Transport, error) {
	base := &net.Dialer{Timeout: 10 * time.Second}
	dial := dialFunc(base.DialContext)

	if proxyAddr != "" {
		d, err := proxy.SOCKS5("tcp", proxyAddr, nil, base)
		if err != nil {
			return nil, fmt.Errorf("transport: socks5 dialer: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("transport: socks5 dialer does not support contexts")
		}
		dial = cd.DialContext
	}

	return &http.Transport{
		DialContext: dial,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn, err := uClient(conn, host, chromeH1Spec)
			if err != nil {
				conn.Close()
				return nil, err
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2:     false,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   2,
	}, nil
}

func proxyAddress(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
