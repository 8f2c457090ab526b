package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"pharmacare/backend/internal/billing"
	"pharmacare/backend/internal/domain"
)

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	report, err := a.service.SalesReport(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		a.fail(w, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(q.Get("format"))) {
	case "csv":
		body, err := salesReportToCSV(report)
		if err != nil {
			a.writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-report-%s-%s.csv\"", report.From, report.To))
		_, _ = w.Write(body)
	case "html":
		settings, err := a.service.Settings(r.Context())
		if err != nil {
			a.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(salesReportToPrintableHTML(settings.Pharmacy.Name, report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	rows, err := a.service.CategoryBreakdown(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": rows})
}

func (a *API) handleTopMedicines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	limit := parsePositiveLimit(q.Get("limit"), 10, 100)
	top, err := a.service.TopMedicines(r.Context(), q.Get("from"), q.Get("to"), limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"medicines": top})
}

func (a *API) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	summary, err := a.service.DailySummary(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func salesReportToCSV(report *domain.SalesReport) ([]byte, error) {
	var buf bytes.Buffer
	out := csv.NewWriter(&buf)

	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "from", report.From},
		{"summary", "to", report.To},
		{"summary", "transactions", strconv.Itoa(report.Transactions)},
		{"summary", "revenue", billing.FormatCents(report.RevenueCents)},
		{"summary", "tax", billing.FormatCents(report.TaxCents)},
		{"summary", "discount", billing.FormatCents(report.DiscountCents)},
		{"summary", "average_sale", billing.FormatCents(report.AverageSaleCents)},
		{"summary", "refunded", strconv.Itoa(report.RefundedCount)},
	}
	for _, method := range sortedKeys(report.ByPaymentMethod) {
		rows = append(rows, []string{"payment", method, billing.FormatCents(report.ByPaymentMethod[method])})
	}
	for _, day := range report.Days {
		rows = append(rows,
			[]string{"day", day.Date + "_transactions", strconv.Itoa(day.Transactions)},
			[]string{"day", day.Date + "_revenue", billing.FormatCents(day.RevenueCents)},
		)
	}

	if err := out.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type printableReport struct {
	Pharmacy string
	Report   *domain.SalesReport
}

var salesReportFuncs = template.FuncMap{"money": billing.FormatCents}

var salesReportHTMLTmpl = template.Must(template.New("sales-report").Funcs(salesReportFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Sales Report {{.Report.From}} to {{.Report.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>{{.Pharmacy}}</h2>
  <p>Sales {{.Report.From}} to {{.Report.To}}</p>
  <p>Transactions: {{.Report.Transactions}} | Revenue: {{money .Report.RevenueCents}} | Tax: {{money .Report.TaxCents}} | Discount: {{money .Report.DiscountCents}} | Average: {{money .Report.AverageSaleCents}} | Refunded: {{.Report.RefundedCount}}</p>

  <h3>By Payment</h3>
  <table>
    <thead><tr><th>Payment</th><th>Total</th></tr></thead>
    <tbody>{{range $method, $total := .Report.ByPaymentMethod}}<tr><td>{{$method}}</td><td class="num">{{money $total}}</td></tr>{{end}}</tbody>
  </table>

  <h3>By Day</h3>
  <table>
    <thead><tr><th>Date</th><th>Transactions</th><th>Revenue</th><th>Tax</th><th>Discount</th></tr></thead>
    <tbody>{{range .Report.Days}}<tr><td>{{.Date}}</td><td class="num">{{.Transactions}}</td><td class="num">{{money .RevenueCents}}</td><td class="num">{{money .TaxCents}}</td><td class="num">{{money .DiscountCents}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func salesReportToPrintableHTML(pharmacy string, report *domain.SalesReport) string {
	var buf bytes.Buffer
	if err := salesReportHTMLTmpl.Execute(&buf, printableReport{Pharmacy: pharmacy, Report: report}); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}
