// Package proxy handles outbound proxy selection and health checking for
// origin downloads.
package proxy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	defaultSOCKSPort = "1080"
	defaultHTTPPort  = "8080"
)

// Manager hands out healthy proxies from a configured pool.
type Manager struct {
	proxies       []string
	healthCheck   bool
	healthTimeout time.Duration
}

// New creates a proxy manager from a comma-separated URL list. An empty list
// yields a manager that hands out nothing.
func New(proxyURLs string, healthCheck bool, healthTimeout time.Duration) (*Manager, error) {
	mgr := &Manager{
		healthCheck:   healthCheck,
		healthTimeout: healthTimeout,
	}

	if proxyURLs == "" {
		return mgr, nil
	}

	for _, raw := range strings.Split(proxyURLs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
		}

		mgr.proxies = append(mgr.proxies, raw)
	}

	return mgr, nil
}

// Get returns a random healthy proxy URL, or an empty string when no proxies
// are configured.
func (m *Manager) Get(ctx context.Context) (string, error) {
	if len(m.proxies) == 0 {
		return "", nil
	}

	if !m.healthCheck {
		return m.proxies[rand.IntN(len(m.proxies))], nil
	}

	// Shuffle and take the first proxy that accepts a TCP connection.
	for _, idx := range rand.Perm(len(m.proxies)) {
		if m.checkHealth(ctx, m.proxies[idx]) {
			return m.proxies[idx], nil
		}
	}

	return "", fmt.Errorf("no healthy proxies available")
}

// Count returns the number of configured proxies.
func (m *Manager) Count() int {
	return len(m.proxies)
}

func (m *Manager) checkHealth(ctx context.Context, proxyURL string) bool {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return false
	}

	host := u.Host
	if !strings.Contains(host, ":") {
		switch u.Scheme {
		case "socks5", "socks5h":
			host += ":" + defaultSOCKSPort
		case "http", "https":
			host += ":" + defaultHTTPPort
		default:
			return false
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.healthTimeout)
	defer cancel()

	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(checkCtx, "tcp", host)
	if err != nil {
		return false
	}

	conn.Close()

	return true
}
