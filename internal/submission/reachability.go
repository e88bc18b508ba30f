package submission

import (
	"context"
	"net"
	"net/url"
	"time"
)

// ProbeReachability answers online/offline by attempting a TCP connection
// to the backend host. A refused connection still counts as online, the
// network path exists even if the service is unhappy.
type ProbeReachability struct {
	baseURL string
	timeout time.Duration
}

// NewProbeReachability creates a reachability checker for the given
// backend base URL.
func NewProbeReachability(baseURL string) *ProbeReachability {
	return &ProbeReachability{baseURL: baseURL, timeout: 5 * time.Second}
}

// Online reports whether the backend host is reachable right now.
func (p *ProbeReachability) Online(ctx context.Context) bool {
	u, err := url.Parse(p.baseURL)
	if err != nil || u.Host == "" {
		logger.Warn("Cannot parse base URL for reachability probe", "base_url", p.baseURL)
		return false
	}

	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "http":
			host = net.JoinHostPort(u.Hostname(), "80")
		default:
			host = net.JoinHostPort(u.Hostname(), "443")
		}
	}

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		logger.Debug("Reachability probe failed", "host", host, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}
