// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiters hands out one token bucket per client IP.
type limiters struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	lastSeen map[string]time.Time
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// newLimiters allows requestsPerMinute per client with the given burst. A
// non-positive rate disables limiting.
func newLimiters(requestsPerMinute, burst int) *limiters {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &limiters{
		buckets:  make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *limiters) allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = b
	}
	now := l.now()
	l.lastSeen[key] = now
	return b.AllowN(now, 1)
}

// evict drops buckets idle for longer than age.
func (l *limiters) evict(age time.Duration) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-age)
	n := 0
	for key, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastSeen, key)
			n++
		}
	}
	return n
}

// proxies is the set of peers whose forwarding headers are believed.
type proxies []*net.IPNet

// parseProxies reads IP addresses and CIDR ranges, returning the entries it
// could not parse.
func parseProxies(entries []string) (proxies, []string) {
	var p proxies
	var invalid []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(e); err == nil {
			p = append(p, n)
			continue
		}
		ip := net.ParseIP(e)
		if ip == nil {
			invalid = append(invalid, e)
			continue
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		p = append(p, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return p, invalid
}

func (p proxies) contains(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range p {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the connection's remote address. Only when that peer is a
// trusted proxy are forwarding headers consulted: the rightmost
// X-Forwarded-For address that is not itself a trusted proxy, then X-Real-IP.
func (p proxies) clientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !p.contains(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := strings.TrimSpace(hops[i])
			if net.ParseIP(ip) == nil {
				break
			}
			if !p.contains(ip) {
				return ip
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return remote
}
