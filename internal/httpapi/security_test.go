package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pharmacare/backend/internal/service"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
)

func fetchCSRFToken(t *testing.T, api *API) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token: expected 200, got %d", rec.Code)
	}
	var payload struct {
		Token string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Token == "" {
		t.Fatalf("decode csrf token: %v", err)
	}
	return payload.Token
}

func TestLoginRateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	for i := 0; i < 5; i++ {
		body := bytes.NewBufferString(`{"email":"admin@pharmacy.com","password":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	body := bytes.NewBufferString(`{"email":"admin@pharmacy.com","password":"admin123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Fatalf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestPreflightSkipsCSRF(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	api := newTestAPI(t)
	padding := strings.Repeat("a", 1<<20)
	body := bytes.NewBufferString(fmt.Sprintf(`{"email":"admin@pharmacy.com","password":"%s"}`, padding))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", body)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestMutationWithoutCSRFTokenIsRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	body := bytes.NewBufferString(`{"name":"Ann","email":"ann@example.com","phone":"+1 555 0100"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", rec.Code)
	}

	body = bytes.NewBufferString(`{"name":"Ann","email":"ann@example.com","phone":"+1 555 0100"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/customers", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", "forged")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with forged csrf token, got %d", rec.Code)
	}
}

func TestCSRFTokenFromPreviousHourIsAccepted(t *testing.T) {
	api := newTestAPI(t)
	hour := time.Now().UTC().Truncate(time.Hour).Unix()
	if !api.validateCSRFToken(api.generateCSRFToken()) {
		t.Fatalf("expected current token to validate")
	}
	if !api.validateCSRFToken(api.csrfTokenForHour(hour - 3600)) {
		t.Fatalf("expected previous hour token to validate")
	}
	if api.validateCSRFToken(api.csrfTokenForHour(hour - 2*3600)) {
		t.Fatalf("expected token two hours old to fail")
	}

	other := newTestAPI(t)
	if other.validateCSRFToken(api.generateCSRFToken()) {
		t.Fatalf("expected token signed with another secret to fail")
	}
}

func TestManagerPINRateLimit(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)
	handler := api.Handler()
	csrf := fetchCSRFToken(t, api)

	send := func() int {
		body := bytes.NewBufferString(`{"reason":"test","manager_pin":"000000"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/sale_missing/refund", body)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 8; i++ {
		if code := send(); code != http.StatusForbidden {
			t.Fatalf("attempt %d: expected 403, got %d", i+1, code)
		}
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after pin limit, got %d", code)
	}
}

func TestParsePositiveLimit(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 100},
		{"abc", 100},
		{"-5", 100},
		{"25", 25},
		{"5000", 500},
	}
	for _, tc := range cases {
		if got := parsePositiveLimit(tc.raw, 100, 500); got != tc.want {
			t.Fatalf("parsePositiveLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestStatusForMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: name is required", store.ErrInvalidRecord), http.StatusBadRequest},
		{fmt.Errorf("sale %q: %w", "Lost", workflow.ErrUnknownStatus), http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrApprovalRequired, http.StatusForbidden},
		{fmt.Errorf("medicine med_404: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrInsufficientStock, http.StatusConflict},
		{store.ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("medicine med_1: %w", store.ErrInUse), http.StatusConflict},
		{store.ErrStaleStatus, http.StatusConflict},
		{workflow.ErrIllegalTransition, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestResourcePath(t *testing.T) {
	id, action := resourcePath("/api/v1/sales/sale_123/refund", "/api/v1/sales/")
	if id != "sale_123" || action != "refund" {
		t.Fatalf("unexpected split %q %q", id, action)
	}
	id, action = resourcePath("/api/v1/sales/sale_123/", "/api/v1/sales/")
	if id != "sale_123" || action != "" {
		t.Fatalf("unexpected split %q %q", id, action)
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	api := newTestAPI(t)
	rec := httptest.NewRecorder()
	api.writeError(rec, http.StatusInternalServerError, errors.New("pq: password authentication failed"))

	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("expected internal detail to be hidden, got %s", rec.Body.String())
	}
}

func TestAttemptLimiterForgetsIdleClients(t *testing.T) {
	limiter := newAttemptLimiter(2, time.Minute)
	stale := time.Now().Add(-2 * time.Minute)
	limiter.entries["10.0.0.1"] = []time.Time{stale, stale}
	limiter.entries["10.0.0.2"] = []time.Time{}

	if !limiter.Allow("10.0.0.3") {
		t.Fatalf("expected first attempt to pass")
	}
	if len(limiter.entries) != 1 {
		t.Fatalf("expected idle clients to be dropped, got %v", limiter.entries)
	}
	if _, ok := limiter.entries["10.0.0.3"]; !ok {
		t.Fatalf("expected the active client to be tracked")
	}

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") || limiter.Allow("10.0.0.1") {
		t.Fatalf("expected a returning client to start a fresh window")
	}
}
