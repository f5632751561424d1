// Package backend клиент REST-сервиса кредитов. Сервис является владельцем
// всех записей; здесь только чтение кредитов и парцел и отправка черновиков.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/calculations"
	"github.com/cloud-ru/loan-preview-go/internal/draft"
	"github.com/cloud-ru/loan-preview-go/internal/installments"
	"github.com/cloud-ru/loan-preview-go/internal/logger"
	"github.com/cloud-ru/loan-preview-go/internal/metrics"
	"github.com/cloud-ru/loan-preview-go/pkg/utils"
)

// ErrNotFound бэкенд ответил 404
var ErrNotFound = errors.New("backend: not found")

// Loan запись кредита. Ставка месячная, доля (0.05 = 5%).
type Loan struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"userId"`
	LoanAmount   decimal.Decimal `json:"loanAmount"`
	InterestRate decimal.Decimal `json:"interestRate"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate,omitempty"`
	Status       string          `json:"status,omitempty"`
}

// Context переводит запись в LoanContext для калькулятора
func (l Loan) Context() (calculations.LoanContext, error) {
	start, err := utils.ParseDate(l.StartDate)
	if err != nil {
		return calculations.LoanContext{}, fmt.Errorf("loan %d: %w", l.ID, err)
	}
	return calculations.LoanContext{
		ID:                  l.ID,
		StartDate:           start,
		MonthlyInterestRate: l.InterestRate,
	}, nil
}

// Client HTTP клиент бэкенда
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	log        *zap.Logger
}

// NewClient создает клиента. tracer и log могут быть nil.
func NewClient(baseURL string, timeout time.Duration, tracer trace.Tracer, log *zap.Logger) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("backend")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tracer:     tracer,
		log:        logger.OrNop(log),
	}
}

// ListLoans GET /loans
func (c *Client) ListLoans(ctx context.Context) ([]Loan, error) {
	var loans []Loan
	if err := c.do(ctx, http.MethodGet, "/loans", "list_loans", nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// GetLoan GET /loans/{id}
func (c *Client) GetLoan(ctx context.Context, id int64) (Loan, error) {
	var loan Loan
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/loans/%d", id), "get_loan", nil, &loan)
	return loan, err
}

// LoanContext загружает один кредит для калькулятора
func (c *Client) LoanContext(ctx context.Context, id int64) (calculations.LoanContext, error) {
	loan, err := c.GetLoan(ctx, id)
	if err != nil {
		return calculations.LoanContext{}, err
	}
	return loan.Context()
}

// Loans загружает все кредиты как LoanContext. Записи с битой датой
// начала пропускаются с предупреждением.
func (c *Client) Loans(ctx context.Context) ([]calculations.LoanContext, error) {
	loans, err := c.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]calculations.LoanContext, 0, len(loans))
	for _, l := range loans {
		lc, err := l.Context()
		if err != nil {
			c.log.Warn("skipping loan with malformed start date", zap.Int64("loan_id", l.ID), zap.Error(err))
			continue
		}
		out = append(out, lc)
	}
	return out, nil
}

// ListInstallments GET /installments
func (c *Client) ListInstallments(ctx context.Context) ([]installments.Installment, error) {
	var list []installments.Installment
	if err := c.do(ctx, http.MethodGet, "/installments", "list_installments", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListLoanInstallments GET /installments/loan/{loanId}
func (c *Client) ListLoanInstallments(ctx context.Context, loanID int64) ([]installments.Installment, error) {
	var list []installments.Installment
	path := fmt.Sprintf("/installments/loan/%d", loanID)
	if err := c.do(ctx, http.MethodGet, path, "list_loan_installments", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateInstallment POST /installments/loan/{loanId}
func (c *Client) CreateInstallment(ctx context.Context, loanID int64, sub draft.Submission) (installments.Installment, error) {
	var inst installments.Installment
	path := fmt.Sprintf("/installments/loan/%d", loanID)
	err := c.do(ctx, http.MethodPost, path, "create_installment", sub, &inst)
	return inst, err
}

// UpdateInstallment PUT /installments/{id}
func (c *Client) UpdateInstallment(ctx context.Context, id int64, sub draft.Submission) (installments.Installment, error) {
	var inst installments.Installment
	path := fmt.Sprintf("/installments/%d", id)
	err := c.do(ctx, http.MethodPut, path, "update_installment", sub, &inst)
	return inst, err
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend."+endpoint)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("backend request", zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendCalls.WithLabelValues(endpoint, "transport_error").Inc()
		span.SetAttributes(attribute.String("error", "transport_error"))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	metrics.BackendCalls.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("backend error response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", msg),
		)
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
