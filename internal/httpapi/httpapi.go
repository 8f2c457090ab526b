package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmacare/backend/internal/service"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/store"
	"pharmacare/backend/internal/workflow"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrfSecret    []byte
	log           *zap.Logger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		log.Warn("crypto/rand failed, using static CSRF secret", zap.Error(err))
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
		log:           log,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)
	mux.HandleFunc("/api/v1/auth/logout", a.requireSession(a.handleLogout))
	mux.HandleFunc("/api/v1/auth/session", a.requireSession(a.handleSession))

	mux.HandleFunc("/api/v1/dashboard", a.requireSection(session.SectionDashboard, a.handleDashboard))

	// Cashiers search the catalog while selling; writes are checked per section below.
	mux.HandleFunc("/api/v1/medicines", a.requireSection(session.SectionSales, a.handleMedicines))
	mux.HandleFunc("/api/v1/medicines/", a.requireSection(session.SectionInventory, a.handleMedicineActions))

	mux.HandleFunc("/api/v1/customers", a.requireSection(session.SectionCustomers, a.handleCustomers))
	mux.HandleFunc("/api/v1/customers/", a.requireSection(session.SectionCustomers, a.handleCustomerActions))

	mux.HandleFunc("/api/v1/prescriptions", a.requireSection(session.SectionPrescriptions, a.handlePrescriptions))
	mux.HandleFunc("/api/v1/prescriptions/", a.requireSection(session.SectionPrescriptions, a.handlePrescriptionActions))

	mux.HandleFunc("/api/v1/sales", a.requireSection(session.SectionSales, a.handleSales))
	mux.HandleFunc("/api/v1/sales/", a.requireSection(session.SectionSales, a.handleSaleActions))

	mux.HandleFunc("/api/v1/suppliers", a.requireSection(session.SectionSuppliers, a.handleSuppliers))
	mux.HandleFunc("/api/v1/suppliers/", a.requireSection(session.SectionSuppliers, a.handleSupplierActions))
	mux.HandleFunc("/api/v1/purchases", a.requireSection(session.SectionPurchases, a.handlePurchases))
	mux.HandleFunc("/api/v1/purchases/", a.requireSection(session.SectionPurchases, a.handlePurchaseActions))

	mux.HandleFunc("/api/v1/expenses", a.requireSection(session.SectionExpenses, a.handleExpenses))
	mux.HandleFunc("/api/v1/cash-flows", a.requireSection(session.SectionExpenses, a.handleCashFlows))
	mux.HandleFunc("/api/v1/finance/summary", a.requireSection(session.SectionExpenses, a.handleFinanceSummary))

	mux.HandleFunc("/api/v1/reports/sales", a.requireSection(session.SectionReports, a.handleSalesReport))
	mux.HandleFunc("/api/v1/reports/categories", a.requireSection(session.SectionReports, a.handleCategoryReport))
	mux.HandleFunc("/api/v1/reports/top-medicines", a.requireSection(session.SectionReports, a.handleTopMedicines))
	mux.HandleFunc("/api/v1/reports/daily-summary", a.requireSection(session.SectionReports, a.handleDailySummary))

	mux.HandleFunc("/api/v1/settings", a.requireSection(session.SectionSettings, a.handleSettings))
	mux.HandleFunc("/api/v1/users", a.requireSection(session.SectionUsers, a.handleUsers))
	mux.HandleFunc("/api/v1/audit-logs", a.requireSection(session.SectionAudit, a.handleAuditLogs))

	return a.withMiddleware(mux)
}

// requireSession resolves the bearer token into a session on the request context.
func (a *API) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		sess, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r.WithContext(session.With(r.Context(), sess)))
	}
}

func (a *API) requireSection(section session.Section, next http.HandlerFunc) http.HandlerFunc {
	return a.requireSession(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		if !session.Allowed(sess.Role, section) {
			a.writeError(w, http.StatusForbidden, errors.New("role may not access "+string(section)))
			return
		}
		next(w, r)
	})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if isMutating(r.Method) {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)
		a.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(startedAt)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidRecord), errors.Is(err, workflow.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrApprovalRequired):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInUse),
		errors.Is(err, store.ErrStaleStatus),
		errors.Is(err, workflow.ErrIllegalTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && parsed > 0 {
		limit = parsed
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// resourcePath splits what follows prefix into an id and an optional action.
func resourcePath(path string, prefix string) (id string, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, action, _ = strings.Cut(rest, "/")
	return strings.TrimSpace(id), strings.TrimSpace(action)
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides 5xx details from clients and logs them instead.
func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		a.log.Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
