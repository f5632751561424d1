package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/cache"
	"github.com/cloud-ru/loan-preview-go/internal/calculations"
	"github.com/cloud-ru/loan-preview-go/internal/config"
	"github.com/cloud-ru/loan-preview-go/internal/format"
	"github.com/cloud-ru/loan-preview-go/internal/installments"
	"github.com/cloud-ru/loan-preview-go/internal/metrics"
	"github.com/cloud-ru/loan-preview-go/internal/validators"
	"github.com/cloud-ru/loan-preview-go/pkg/utils"
)

// ToolHandler обработчик инструмента: параметры из JSON -> результат
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// ValidationError ошибка входных параметров; транспорт отвечает 400
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("неверные параметры: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LoanLookup дозагружает один кредит, которого нет в каталоге
type LoanLookup interface {
	LoanContext(ctx context.Context, id int64) (calculations.LoanContext, error)
}

// InstallmentLister загружает парцелы с бэкенда
type InstallmentLister interface {
	ListInstallments(ctx context.Context) ([]installments.Installment, error)
	ListLoanInstallments(ctx context.Context, loanID int64) ([]installments.Installment, error)
}

// PreviewDisplay суммы, отформатированные для формы
type PreviewDisplay struct {
	PrincipalAmount string `json:"principalAmount"`
	InterestAmount  string `json:"interestAmount"`
	TotalDueAmount  string `json:"totalDueAmount"`
	DueDate         string `json:"dueDate"`
	InterestRate    string `json:"interestRate,omitempty"`
}

// PreviewResponse результат инструмента installment_preview
type PreviewResponse struct {
	LoanID          int64          `json:"loanId"`
	DueDate         string         `json:"dueDate"`
	PrincipalAmount json.Number    `json:"principalAmount"`
	InterestAmount  json.Number    `json:"interestAmount"`
	TotalDueAmount  json.Number    `json:"totalDueAmount"`
	DaysDiff        int            `json:"daysDiff"`
	Resolved        bool           `json:"resolved"`
	FallbackReason  string         `json:"fallbackReason,omitempty"`
	Display         PreviewDisplay `json:"display"`
}

// SummaryRow строка таблицы парцел в отображаемом виде
type SummaryRow struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	DueDate         string `json:"dueDate"`
	TotalDueAmount  string `json:"totalDueAmount"`
	RemainingAmount string `json:"remainingAmount"`
}

// SummaryResponse результат инструмента installment_summary. Installments и
// Rows отфильтрованы, Summary посчитан по всему списку.
type SummaryResponse struct {
	Installments []installments.Installment `json:"installments"`
	Rows         []SummaryRow               `json:"rows"`
	Summary      installments.Summary       `json:"summary"`
	Display      map[string]string          `json:"display"`
}

// loanCatalog загружает каталог кредитов и дозагружает loanID, если его
// там нет. Ошибки не прерывают расчет: без кредита будут нулевые проценты.
func loanCatalog(ctx context.Context, loans cache.LoanSource, lookup LoanLookup, loanID int64, span trace.Span, log *zap.Logger) []calculations.LoanContext {
	catalog, err := loans.Loans(ctx)
	if err != nil {
		log.Warn("loans unavailable", zap.Int64("loan_id", loanID), zap.Error(err))
		span.SetAttributes(attribute.String("loans_error", err.Error()))
		catalog = nil
	}
	if _, ok := calculations.FindLoan(catalog, loanID); ok || lookup == nil {
		return catalog
	}

	loan, err := lookup.LoanContext(ctx, loanID)
	if err != nil {
		log.Warn("loan lookup failed", zap.Int64("loan_id", loanID), zap.Error(err))
		return catalog
	}
	span.SetAttributes(attribute.Bool("loan_fetched", true))
	// не пишем в срез, который мог прийти из кэша
	return append(catalog[:len(catalog):len(catalog)], loan)
}

func invalid(span trace.Span, toolName string, err error) error {
	span.SetAttributes(attribute.String("error", "validation_error"))
	metrics.ToolCalls.WithLabelValues(toolName, "validation_error").Inc()
	return &ValidationError{Err: err}
}

// InstallmentPreviewHandler оценивает проценты по черновику парцелы.
// Кредиты берутся из loans, недостающий кредит из lookup (может быть nil).
// Если ничего не нашлось, расчет возвращает нулевые проценты.
func InstallmentPreviewHandler(cfg *config.Config, calc *calculations.PreviewCalculator, loans cache.LoanSource, lookup LoanLookup, tracer trace.Tracer, log *zap.Logger) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		toolName := "installment_preview"

		ctx, span := tracer.Start(ctx, toolName)
		defer span.End()

		loanIDFloat, ok := params["loanId"].(float64)
		if !ok {
			return nil, invalid(span, toolName, fmt.Errorf("invalid parameter: loanId"))
		}
		dueDate, ok := params["dueDate"].(string)
		if !ok {
			return nil, invalid(span, toolName, fmt.Errorf("invalid parameter: dueDate"))
		}
		principalFloat, ok := params["principalAmount"].(float64)
		if !ok {
			return nil, invalid(span, toolName, fmt.Errorf("invalid parameter: principalAmount"))
		}

		if err := validators.CheckLoanID(loanIDFloat); err != nil {
			return nil, invalid(span, toolName, err)
		}
		if err := validators.CheckPrincipal(cfg, principalFloat); err != nil {
			return nil, invalid(span, toolName, err)
		}
		loanID := int64(loanIDFloat)

		span.SetAttributes(
			attribute.Int64("loan_id", loanID),
			attribute.String("due_date", dueDate),
			attribute.Float64("principal_amount", principalFloat),
		)

		catalog := loanCatalog(ctx, loans, lookup, loanID, span, log)

		principal := utils.Round2(decimal.NewFromFloat(principalFloat))
		result := calc.CalculateRaw(catalog, loanID, dueDate, principal)

		if !result.Resolved {
			metrics.PreviewFallbacks.WithLabelValues(result.FallbackReason).Inc()
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("resolved", result.Resolved),
			attribute.Int("days_diff", result.DaysDiff),
			attribute.String("interest_amount", result.InterestAmount.StringFixed(2)),
		)
		metrics.ToolCalls.WithLabelValues(toolName, "success").Inc()

		var rate string
		if loan, ok := calculations.FindLoan(catalog, loanID); ok {
			rate = format.Percentage(loan.MonthlyInterestRate)
		}

		return PreviewResponse{
			LoanID:          loanID,
			DueDate:         dueDate,
			PrincipalAmount: json.Number(principal.StringFixed(2)),
			InterestAmount:  json.Number(result.InterestAmount.StringFixed(2)),
			TotalDueAmount:  json.Number(result.TotalDueAmount.StringFixed(2)),
			DaysDiff:        result.DaysDiff,
			Resolved:        result.Resolved,
			FallbackReason:  result.FallbackReason,
			Display: PreviewDisplay{
				PrincipalAmount: format.Currency(principal),
				InterestAmount:  format.Currency(result.InterestAmount),
				TotalDueAmount:  format.Currency(result.TotalDueAmount),
				DueDate:         format.Date(dueDate),
				InterestRate:    rate,
			},
		}, nil
	}
}

// InstallmentSummaryHandler фильтрует список парцел для таблицы и считает
// итоги по всему списку, как страница парцел в консоли. Если список не
// передан, он загружается через lister: парцелы кредита loanId или все.
func InstallmentSummaryHandler(lister InstallmentLister, tracer trace.Tracer) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		toolName := "installment_summary"

		ctx, span := tracer.Start(ctx, toolName)
		defer span.End()

		var filter installments.Filter
		if _, ok := params["filter"]; ok {
			if err := decodeParam(params, "filter", &filter); err != nil {
				return nil, invalid(span, toolName, err)
			}
		}
		if err := validators.CheckStatus(filter.Status); err != nil {
			return nil, invalid(span, toolName, err)
		}
		var borrowers map[string]string
		if _, ok := params["borrowers"]; ok {
			if err := decodeParam(params, "borrowers", &borrowers); err != nil {
				return nil, invalid(span, toolName, err)
			}
		}

		var list []installments.Installment
		switch {
		case params["installments"] != nil || lister == nil:
			if err := decodeParam(params, "installments", &list); err != nil {
				return nil, invalid(span, toolName, err)
			}
		default:
			var scope int64
			if raw, ok := params["loanId"]; ok {
				id, _ := raw.(float64)
				if err := validators.CheckLoanID(id); err != nil {
					return nil, invalid(span, toolName, err)
				}
				scope = int64(id)
			}

			var err error
			if scope > 0 {
				list, err = lister.ListLoanInstallments(ctx, scope)
			} else {
				list, err = lister.ListInstallments(ctx)
			}
			if err != nil {
				span.SetAttributes(attribute.String("error", "backend_error"))
				metrics.ToolCalls.WithLabelValues(toolName, "error").Inc()
				return nil, fmt.Errorf("ошибка при загрузке парцел: %w", err)
			}
			span.SetAttributes(attribute.Int64("loan_scope", scope))
		}

		span.SetAttributes(
			attribute.Int("installments", len(list)),
			attribute.String("status_filter", string(filter.Status)),
			attribute.Int64("loan_filter", filter.LoanID),
		)

		filtered := installments.Apply(list, filter, func(loanID int64) string {
			return borrowers[strconv.FormatInt(loanID, 10)]
		})
		summary := installments.Summarize(list)

		rows := make([]SummaryRow, 0, len(filtered))
		for _, inst := range filtered {
			rows = append(rows, SummaryRow{
				ID:              inst.ID,
				Status:          installments.StatusLabel(inst),
				DueDate:         format.Date(inst.DueDate),
				TotalDueAmount:  format.Currency(inst.TotalDueAmount),
				RemainingAmount: format.Currency(inst.RemainingAmount),
			})
		}

		span.SetAttributes(attribute.Bool("success", true), attribute.Int("filtered", len(filtered)))
		metrics.ToolCalls.WithLabelValues(toolName, "success").Inc()

		return SummaryResponse{
			Installments: filtered,
			Rows:         rows,
			Summary:      summary,
			Display: map[string]string{
				"totalAmount":     format.Currency(summary.TotalAmount),
				"paidAmount":      format.Currency(summary.PaidAmount),
				"remainingAmount": format.Currency(summary.RemainingAmount),
			},
		}, nil
	}
}

func decodeParam(params map[string]interface{}, key string, out interface{}) error {
	v, ok := params[key]
	if !ok {
		return fmt.Errorf("invalid parameter: %s", key)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("invalid parameter: %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid parameter: %s: %w", key, err)
	}
	return nil
}
