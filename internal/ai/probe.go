package ai

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Reachability checks local network reachability before a call.
type Reachability interface {
	Check(ctx context.Context) error
}

// ReachabilityFunc adapts a function to Reachability.
type ReachabilityFunc func(ctx context.Context) error

func (f ReachabilityFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// DialProbe opens and closes a TCP connection to the API host.
type DialProbe struct {
	Addr    string // host:port
	Timeout time.Duration
}

// NewDialProbe derives the dial address from an endpoint URL.
func NewDialProbe(endpoint string, timeout time.Duration) (*DialProbe, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DialProbe{Addr: net.JoinHostPort(u.Hostname(), port), Timeout: timeout}, nil
}

func (p *DialProbe) Check(ctx context.Context) error {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrOffline, p.Addr, err)
	}
	return conn.Close()
}
