package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/calculations"
	"github.com/cloud-ru/loan-preview-go/internal/config"
	"github.com/cloud-ru/loan-preview-go/internal/installments"
)

type stubLoans struct {
	loans []calculations.LoanContext
	err   error
}

func (s stubLoans) Loans(ctx context.Context) ([]calculations.LoanContext, error) {
	return s.loans, s.err
}

type stubLookup struct {
	loans []calculations.LoanContext
	calls []int64
}

func (s *stubLookup) LoanContext(ctx context.Context, id int64) (calculations.LoanContext, error) {
	s.calls = append(s.calls, id)
	if loan, ok := calculations.FindLoan(s.loans, id); ok {
		return loan, nil
	}
	return calculations.LoanContext{}, errors.New("not found")
}

type stubLister struct {
	all    []installments.Installment
	byLoan map[int64][]installments.Installment
	err    error
	calls  []string
}

func (s *stubLister) ListInstallments(ctx context.Context) ([]installments.Installment, error) {
	s.calls = append(s.calls, "all")
	return s.all, s.err
}

func (s *stubLister) ListLoanInstallments(ctx context.Context, loanID int64) ([]installments.Installment, error) {
	s.calls = append(s.calls, "loan")
	return s.byLoan[loanID], s.err
}

func previewHandler(src stubLoans) ToolHandler {
	return previewHandlerWithLookup(src, nil)
}

func previewHandlerWithLookup(src stubLoans, lookup LoanLookup) ToolHandler {
	cfg := &config.Config{MaxPrincipal: 1e9}
	calc := calculations.NewPreviewCalculator(zap.NewNop())
	return InstallmentPreviewHandler(cfg, calc, src, lookup, noop.NewTracerProvider().Tracer("test"), zap.NewNop())
}

func loans() []calculations.LoanContext {
	return []calculations.LoanContext{
		{ID: 1, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), MonthlyInterestRate: decimal.RequireFromString("0.05")},
	}
}

func TestInstallmentPreviewHandler(t *testing.T) {
	h := previewHandler(stubLoans{loans: loans()})

	out, err := h(context.Background(), map[string]interface{}{
		"loanId":          1.0,
		"dueDate":         "2024-01-31",
		"principalAmount": 1000.0,
	})
	require.NoError(t, err)

	resp := out.(PreviewResponse)
	assert.Equal(t, json.Number("50.00"), resp.InterestAmount)
	assert.Equal(t, json.Number("1050.00"), resp.TotalDueAmount)
	assert.Equal(t, json.Number("1000.00"), resp.PrincipalAmount)
	assert.Equal(t, 30, resp.DaysDiff)
	assert.True(t, resp.Resolved)
	assert.Equal(t, "R$ 1.050,00", resp.Display.TotalDueAmount)
	assert.Equal(t, "31/01/2024", resp.Display.DueDate)
	assert.Equal(t, "5.00%", resp.Display.InterestRate)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"interestAmount":50.00`)
}

func TestInstallmentPreviewHandlerSoftFailures(t *testing.T) {
	tests := []struct {
		name   string
		src    stubLoans
		params map[string]interface{}
		reason string
	}{
		{
			name:   "unknown loan",
			src:    stubLoans{loans: loans()},
			params: map[string]interface{}{"loanId": 999.0, "dueDate": "2024-01-31", "principalAmount": 1000.0},
			reason: calculations.ReasonLoanNotFound,
		},
		{
			name:   "loans not loaded",
			src:    stubLoans{err: errors.New("backend down")},
			params: map[string]interface{}{"loanId": 1.0, "dueDate": "2024-01-31", "principalAmount": 1000.0},
			reason: calculations.ReasonLoanNotFound,
		},
		{
			name:   "malformed date",
			src:    stubLoans{loans: loans()},
			params: map[string]interface{}{"loanId": 1.0, "dueDate": "31/01/2024", "principalAmount": 1000.0},
			reason: calculations.ReasonInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := previewHandler(tt.src)(context.Background(), tt.params)
			require.NoError(t, err)

			resp := out.(PreviewResponse)
			assert.False(t, resp.Resolved)
			assert.Equal(t, tt.reason, resp.FallbackReason)
			assert.Equal(t, json.Number("0.00"), resp.InterestAmount)
			assert.Equal(t, json.Number("1000.00"), resp.TotalDueAmount)
		})
	}
}

func TestInstallmentPreviewHandlerValidation(t *testing.T) {
	h := previewHandler(stubLoans{loans: loans()})

	cases := []map[string]interface{}{
		{"dueDate": "2024-01-31", "principalAmount": 1000.0},
		{"loanId": 1.0, "principalAmount": 1000.0},
		{"loanId": 1.0, "dueDate": "2024-01-31"},
		{"loanId": 0.0, "dueDate": "2024-01-31", "principalAmount": 1000.0},
		{"loanId": 1.9, "dueDate": "2024-01-31", "principalAmount": 1000.0},
		{"loanId": 1.0, "dueDate": "2024-01-31", "principalAmount": -5.0},
	}

	for _, params := range cases {
		_, err := h(context.Background(), params)
		var verr *ValidationError
		require.Error(t, err)
		assert.True(t, errors.As(err, &verr), "params %v", params)
	}
}

func TestInstallmentPreviewHandlerFetchesMissingLoan(t *testing.T) {
	lookup := &stubLookup{loans: []calculations.LoanContext{
		{ID: 7, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), MonthlyInterestRate: decimal.RequireFromString("0.10")},
	}}

	tests := []struct {
		name     string
		src      stubLoans
		loanID   float64
		interest json.Number
		calls    []int64
	}{
		{name: "catalog hit", src: stubLoans{loans: loans()}, loanID: 1, interest: "50.00", calls: nil},
		{name: "catalog miss", src: stubLoans{loans: loans()}, loanID: 7, interest: "100.00", calls: []int64{7}},
		{name: "catalog down", src: stubLoans{err: errors.New("backend down")}, loanID: 7, interest: "100.00", calls: []int64{7}},
		{name: "unknown everywhere", src: stubLoans{loans: loans()}, loanID: 8, interest: "0.00", calls: []int64{8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup.calls = nil
			out, err := previewHandlerWithLookup(tt.src, lookup)(context.Background(), map[string]interface{}{
				"loanId": tt.loanID, "dueDate": "2024-01-31", "principalAmount": 1000.0,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.interest, out.(PreviewResponse).InterestAmount)
			assert.Equal(t, tt.calls, lookup.calls)
		})
	}
}

func TestInstallmentPreviewHandlerKeepsCatalogIntact(t *testing.T) {
	catalog := make([]calculations.LoanContext, 1, 4)
	catalog[0] = loans()[0]
	lookup := &stubLookup{loans: []calculations.LoanContext{{ID: 7, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}}

	_, err := previewHandlerWithLookup(stubLoans{loans: catalog}, lookup)(context.Background(), map[string]interface{}{
		"loanId": 7.0, "dueDate": "2024-01-31", "principalAmount": 1000.0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), catalog[:2][1].ID)
}

func TestInstallmentSummaryHandler(t *testing.T) {
	h := InstallmentSummaryHandler(nil, noop.NewTracerProvider().Tracer("test"))

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"installments": [
			{"id":1,"loanId":10,"installmentNumber":1,"totalDueAmount":105,"paidAmount":105,"remainingAmount":0,"isPaid":true},
			{"id":2,"loanId":10,"installmentNumber":2,"totalDueAmount":105,"paidAmount":0,"remainingAmount":105,"overdue":true},
			{"id":3,"loanId":20,"installmentNumber":1,"totalDueAmount":99.9,"paidAmount":0,"remainingAmount":99.9}
		],
		"filter": {"search":"ana","status":"pending"},
		"borrowers": {"10":"Ana Lima","20":"Bruno Reis"}
	}`), &params))

	out, err := h(context.Background(), params)
	require.NoError(t, err)

	resp := out.(SummaryResponse)
	require.Len(t, resp.Installments, 1)
	assert.Equal(t, int64(2), resp.Installments[0].ID)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Vencido", resp.Rows[0].Status)
	assert.Equal(t, "R$ 105,00", resp.Rows[0].RemainingAmount)

	// итоги по всему списку, не по отфильтрованному
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Paid)
	assert.Equal(t, 2, resp.Summary.Pending)
	assert.Equal(t, 1, resp.Summary.Overdue)
	assert.Equal(t, "R$ 204,90", resp.Display["remainingAmount"])
	assert.Equal(t, "R$ 309,90", resp.Display["totalAmount"])
}

func TestInstallmentSummaryHandlerStatsIgnoreFilter(t *testing.T) {
	h := InstallmentSummaryHandler(nil, noop.NewTracerProvider().Tracer("test"))

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"installments": [
			{"id":1,"loanId":10,"installmentNumber":1,"totalDueAmount":100,"paidAmount":100,"isPaid":true},
			{"id":2,"loanId":10,"installmentNumber":2,"totalDueAmount":100,"remainingAmount":100,"overdue":true}
		],
		"filter": {"status":"paid"}
	}`), &params))

	out, err := h(context.Background(), params)
	require.NoError(t, err)

	resp := out.(SummaryResponse)
	require.Len(t, resp.Installments, 1)
	assert.Equal(t, "Pago", resp.Rows[0].Status)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Paid)
	assert.Equal(t, 1, resp.Summary.Pending)
	assert.Equal(t, 1, resp.Summary.Overdue)
	assert.Equal(t, "200", resp.Summary.TotalAmount.String())
}

func TestInstallmentSummaryHandlerLoadsFromBackend(t *testing.T) {
	lister := &stubLister{
		all: []installments.Installment{
			{ID: 1, LoanID: 10, InstallmentNumber: 1, IsPaid: true, DueDate: "2024-02-01"},
			{ID: 2, LoanID: 20, InstallmentNumber: 1, DueDate: "2024-03-01T00:00:00"},
		},
		byLoan: map[int64][]installments.Installment{
			20: {{ID: 2, LoanID: 20, InstallmentNumber: 1, DueDate: "2024-03-01T00:00:00"}},
		},
	}
	h := InstallmentSummaryHandler(lister, noop.NewTracerProvider().Tracer("test"))

	out, err := h(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	resp := out.(SummaryResponse)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, "01/02/2024", resp.Rows[0].DueDate)

	out, err = h(context.Background(), map[string]interface{}{"loanId": 20.0})
	require.NoError(t, err)
	resp = out.(SummaryResponse)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "Pendente", resp.Rows[0].Status)
	assert.Equal(t, "01/03/2024", resp.Rows[0].DueDate)

	assert.Equal(t, []string{"all", "loan"}, lister.calls)

	_, err = h(context.Background(), map[string]interface{}{"loanId": 2.5})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestInstallmentSummaryHandlerBackendError(t *testing.T) {
	h := InstallmentSummaryHandler(&stubLister{err: errors.New("backend down")}, noop.NewTracerProvider().Tracer("test"))

	_, err := h(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestInstallmentSummaryHandlerValidation(t *testing.T) {
	h := InstallmentSummaryHandler(nil, noop.NewTracerProvider().Tracer("test"))

	_, err := h(context.Background(), map[string]interface{}{})
	assert.Error(t, err)

	_, err = h(context.Background(), map[string]interface{}{
		"installments": []interface{}{},
		"filter":       map[string]interface{}{"status": "cancelled"},
	})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
