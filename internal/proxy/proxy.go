// Package proxy picks the proxy handed to the extractor for each call.
package proxy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"time"

	"vidgrab/internal/config"
	"vidgrab/internal/errs"
)

const (
	defaultSOCKSPort = "1080"
	defaultHTTPPort  = "8080"
)

var supportedSchemes = map[string]string{
	"socks5":  defaultSOCKSPort,
	"socks5h": defaultSOCKSPort,
	"http":    defaultHTTPPort,
	"https":   defaultHTTPPort,
}

// Manager handles proxy selection and health checking.
type Manager struct {
	proxies       []*url.URL
	healthCheck   bool
	healthTimeout time.Duration
	dial          func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New validates the configured proxies. An empty list yields a Manager that never returns a proxy.
func New(cfg config.Proxy) (*Manager, error) {
	m := &Manager{
		proxies:       make([]*url.URL, 0, len(cfg.Proxies)),
		healthCheck:   cfg.HealthCheck,
		healthTimeout: cfg.HealthTimeout,
		dial:          (&net.Dialer{}).DialContext,
	}

	for _, raw := range cfg.Proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
		}

		if _, ok := supportedSchemes[u.Scheme]; !ok || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q: unsupported scheme or missing host", u.Redacted())
		}

		m.proxies = append(m.proxies, u)
	}

	return m, nil
}

// Get returns a random proxy URL, or "" when none are configured. With health
// checks enabled only a proxy accepting TCP connections is returned.
func (m *Manager) Get(ctx context.Context) (string, error) {
	if len(m.proxies) == 0 {
		return "", nil
	}

	if !m.healthCheck {
		return m.proxies[rand.IntN(len(m.proxies))].String(), nil
	}

	for _, idx := range rand.Perm(len(m.proxies)) {
		if m.healthy(ctx, m.proxies[idx]) {
			return m.proxies[idx].String(), nil
		}
	}

	return "", errs.ErrNoProxiesAvailable
}

// healthy reports whether the proxy accepts a TCP connection within the health timeout.
func (m *Manager) healthy(ctx context.Context, u *url.URL) bool {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), supportedSchemes[u.Scheme])
	}

	if m.healthTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.healthTimeout)
		defer cancel()
	}

	conn, err := m.dial(ctx, "tcp", host)
	if err != nil {
		return false
	}

	conn.Close()

	return true
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	return len(m.proxies)
}

// Redact hides credentials of a proxy URL for logging.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}

	return u.Redacted()
}
