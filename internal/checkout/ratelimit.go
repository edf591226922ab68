package checkout

import (
	"net"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	windowStart time.Time
	count       int
}

// RateLimiter is a fixed-window counter keyed by a coarsened client id. It is
// process-local and best-effort: a restart resets all windows. It deters
// light abuse of session creation, it is not a security boundary.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		max:     max,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Admit records an attempt for key and reports whether it is allowed plus how
// many attempts remain in the current window. Windows reset lazily on the
// first attempt after expiry.
func (l *RateLimiter) Admit(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= l.window {
		b = &bucket{windowStart: now}
		l.buckets[key] = b
	}

	if b.count >= l.max {
		return false, 0
	}

	b.count++
	return true, l.max - b.count
}

// MaskClientKey coarsens a client address so nearby addresses share a rate
// limit bucket: the last octet of IPv4 is zeroed, IPv6 is truncated to /64.
func MaskClientKey(remoteAddr string) string {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return strings.TrimSpace(host)
	}

	if v4 := ip.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}

	return ip.Mask(net.CIDRMask(64, 128)).String()
}
