// Package proxy builds the HTTP client used for transcription API calls,
// optionally tunnelled through a SOCKS5 proxy.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds one API request including the audio upload.
const DefaultTimeout = 60 * time.Second

// NewClient returns an HTTP client with the given request timeout. When
// socksAddr is set ("host:port" or "user:pass@host:port") every connection
// is dialed through that SOCKS5 proxy.
func NewClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if socksAddr == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	addr, auth := splitAuth(socksAddr)
	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 %s: %w", addr, err)
	}
	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 %s: dialer does not support contexts", addr)
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, target string) (net.Conn, error) {
				return cd.DialContext(ctx, network, target)
			},
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: timeout,
	}, nil
}

func splitAuth(socksAddr string) (string, *proxy.Auth) {
	creds, addr, ok := strings.Cut(socksAddr, "@")
	if !ok {
		return socksAddr, nil
	}
	user, pass, _ := strings.Cut(creds, ":")
	return addr, &proxy.Auth{User: user, Password: pass}
}
