package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/service"
	"pharmacare/backend/internal/session"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInactiveAccount):
		a.writeError(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken hands out the token mutating requests carry in X-CSRF-Token.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"csrf_token": a.generateCSRFToken()})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	sess, _ := session.FromContext(r.Context())
	a.auth.Logout(sess)
	writeJSON(w, http.StatusOK, map[string]any{"signed_out": true})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  sess,
		"sections": session.Sections(sess.Role),
	})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	dashboard, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (a *API) handleMedicines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		medicines, err := a.service.ListMedicines(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicines": medicines})
	case http.MethodPost:
		var req domain.MedicineCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		medicine, err := a.service.CreateMedicine(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"medicine": medicine})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleMedicineActions(w http.ResponseWriter, r *http.Request) {
	id, action := resourcePath(r.URL.Path, "/api/v1/medicines/")

	switch {
	case id == "low-stock" && action == "":
		if r.Method != http.MethodGet {
			a.writeMethodNotAllowed(w)
			return
		}
		medicines, err := a.service.LowStock(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicines": medicines})
	case id == "expiring" && action == "":
		if r.Method != http.MethodGet {
			a.writeMethodNotAllowed(w)
			return
		}
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		medicines, err := a.service.Expiring(r.Context(), days)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicines": medicines})
	case id == "":
		a.writeError(w, http.StatusBadRequest, errors.New("medicine id required"))
	case action == "stock":
		if r.Method != http.MethodPost {
			a.writeMethodNotAllowed(w)
			return
		}
		var req domain.StockAdjustRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		medicine, err := a.service.AdjustStock(r.Context(), id, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicine": medicine})
	case action != "":
		a.writeError(w, http.StatusNotFound, errors.New("unknown medicine action"))
	default:
		a.handleMedicine(w, r, id)
	}
}

func (a *API) handleMedicine(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		medicine, err := a.service.GetMedicine(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicine": medicine})
	case http.MethodPatch:
		var req domain.MedicineUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		medicine, err := a.service.UpdateMedicine(r.Context(), id, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicine": medicine})
	case http.MethodDelete:
		if err := a.service.DeleteMedicine(r.Context(), id); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := a.service.ListCustomers(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var req domain.CustomerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.CreateCustomer(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	id, action := resourcePath(r.URL.Path, "/api/v1/customers/")
	if id == "" || action != "" {
		a.writeError(w, http.StatusNotFound, errors.New("unknown customer path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := a.service.GetCustomer(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
	case http.MethodPatch:
		var req domain.CustomerUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.UpdateCustomer(r.Context(), id, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handlePrescriptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
		prescriptions, err := a.service.ListPrescriptions(r.Context(), r.URL.Query().Get("status"), limit)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prescriptions": prescriptions})
	case http.MethodPost:
		var req domain.PrescriptionCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		prescription, err := a.service.CreatePrescription(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"prescription": prescription})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handlePrescriptionActions(w http.ResponseWriter, r *http.Request) {
	id, action := resourcePath(r.URL.Path, "/api/v1/prescriptions/")
	switch {
	case id == "":
		a.writeError(w, http.StatusBadRequest, errors.New("prescription id required"))
	case action == "" && r.Method == http.MethodGet:
		prescription, err := a.service.GetPrescription(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prescription": prescription})
	case action == "status" && r.Method == http.MethodPost:
		var req domain.PrescriptionStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		prescription, err := a.service.UpdatePrescriptionStatus(r.Context(), id, req.Status)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prescription": prescription})
	case action == "" || action == "status":
		a.writeMethodNotAllowed(w)
	default:
		a.writeError(w, http.StatusNotFound, errors.New("unknown prescription action"))
	}
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		limit := parsePositiveLimit(q.Get("limit"), 100, 500)
		sales, err := a.service.ListSales(r.Context(), q.Get("status"), q.Get("date"), limit)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		ctx := r.Context()
		if strings.TrimSpace(req.ManagerPIN) != "" {
			if !a.pinLimiter.Allow("pin:sale:" + clientKey(r)) {
				a.writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
				return
			}
			if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
				a.writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
				return
			}
			ctx = service.WithManagerApproval(ctx)
		}

		resp, err := a.service.RecordSale(ctx, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		status := http.StatusCreated
		if resp.Duplicate {
			status = http.StatusOK
		}
		writeJSON(w, status, resp)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	id, action := resourcePath(r.URL.Path, "/api/v1/sales/")

	if id == "quote" && action == "" {
		if r.Method != http.MethodPost {
			a.writeMethodNotAllowed(w)
			return
		}
		var req domain.SaleQuoteRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		quote, err := a.service.QuoteSale(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quote)
		return
	}
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			a.writeMethodNotAllowed(w)
			return
		}
		sale, err := a.service.GetSale(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
	case "complete", "cancel":
		if r.Method != http.MethodPost {
			a.writeMethodNotAllowed(w)
			return
		}
		transition := a.service.CompleteSale
		if action == "cancel" {
			transition = a.service.CancelSale
		}
		sale, err := transition(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
	case "refund":
		if r.Method != http.MethodPost {
			a.writeMethodNotAllowed(w)
			return
		}
		var req domain.SaleRefundRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		if !a.pinLimiter.Allow("pin:refund:" + clientKey(r)) {
			a.writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
			a.writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
			return
		}
		sale, err := a.service.RefundSale(r.Context(), id, req.Reason)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
	default:
		a.writeError(w, http.StatusNotFound, errors.New("unknown sale action"))
	}
}

func (a *API) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		suppliers, err := a.service.ListSuppliers(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
	case http.MethodPost:
		var req domain.SupplierCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		supplier, err := a.service.CreateSupplier(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"supplier": supplier})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSupplierActions(w http.ResponseWriter, r *http.Request) {
	id, action := resourcePath(r.URL.Path, "/api/v1/suppliers/")
	if id == "" || action != "status" {
		a.writeError(w, http.StatusNotFound, errors.New("unknown supplier path"))
		return
	}
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.SupplierStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	supplier, err := a.service.UpdateSupplierStatus(r.Context(), id, req.Status)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supplier": supplier})
}

func (a *API) handlePurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
		purchases, err := a.service.ListPurchases(r.Context(), r.URL.Query().Get("status"), limit)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
	case http.MethodPost:
		var req domain.PurchaseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		purchase, err := a.service.CreatePurchase(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"purchase": purchase})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handlePurchaseActions(w http.ResponseWriter, r *http.Request) {
	id, action := resourcePath(r.URL.Path, "/api/v1/purchases/")
	switch {
	case id == "":
		a.writeError(w, http.StatusBadRequest, errors.New("purchase id required"))
	case action == "" && r.Method == http.MethodGet:
		purchase, err := a.service.GetPurchase(r.Context(), id)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"purchase": purchase})
	case action == "status" && r.Method == http.MethodPost:
		var req domain.PurchaseStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		purchase, err := a.service.UpdatePurchaseStatus(r.Context(), id, req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"purchase": purchase})
	case action == "" || action == "status":
		a.writeMethodNotAllowed(w)
	default:
		a.writeError(w, http.StatusNotFound, errors.New("unknown purchase action"))
	}
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := a.service.ListExpenses(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
	case http.MethodPost:
		var req domain.ExpenseCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.CreateExpense(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"expense": expense})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCashFlows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		flows, err := a.service.ListCashFlows(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cash_flows": flows})
	case http.MethodPost:
		var req domain.CashFlowCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		flow, err := a.service.CreateCashFlow(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"cash_flow": flow})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleFinanceSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	summary, err := a.service.FinanceSummary(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.Settings(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPatch:
		var req domain.SettingsUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		settings, err := a.service.UpdateSettings(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.auth.ListUsers(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req domain.UserCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.auth.CreateUser(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		a.service.Audit(r.Context(), "user.create", "user", user.ID, string(user.Role)+" "+user.Email)
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), r.URL.Query().Get("date"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
