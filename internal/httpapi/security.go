package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"
)

// csrfTokenForHour signs an hour bucket (Unix seconds truncated to the hour).
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	return a.csrfTokenForHour(time.Now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts tokens from the current or previous hour.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	current := time.Now().UTC().Truncate(time.Hour).Unix()
	for _, bucket := range []int64{current, current - 3600} {
		if hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(bucket))) {
			return true
		}
	}
	return false
}

var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// checkCSRF writes a 403 and returns false when a mutating request lacks a
// valid X-CSRF-Token header.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	if !isMutating(r.Method) {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	if !a.validateCSRFToken(strings.TrimSpace(r.Header.Get("X-CSRF-Token"))) {
		a.writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

// attemptLimiter allows max attempts per key inside a sliding window.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
	swept   time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) >= l.window {
		l.sweepLocked(cutoff)
		l.swept = now
	}

	kept := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

// sweepLocked drops keys whose latest attempt is older than cutoff.
func (l *attemptLimiter) sweepLocked(cutoff time.Time) {
	for key, attempts := range l.entries {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(cutoff) {
			delete(l.entries, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
