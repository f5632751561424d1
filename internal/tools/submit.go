package tools

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/cache"
	"github.com/cloud-ru/loan-preview-go/internal/calculations"
	"github.com/cloud-ru/loan-preview-go/internal/config"
	"github.com/cloud-ru/loan-preview-go/internal/draft"
	"github.com/cloud-ru/loan-preview-go/internal/installments"
	"github.com/cloud-ru/loan-preview-go/internal/metrics"
	"github.com/cloud-ru/loan-preview-go/internal/validators"
	"github.com/cloud-ru/loan-preview-go/pkg/utils"
)

// InstallmentWriter сохраняет парцелы на бэкенде
type InstallmentWriter interface {
	CreateInstallment(ctx context.Context, loanID int64, sub draft.Submission) (installments.Installment, error)
	UpdateInstallment(ctx context.Context, id int64, sub draft.Submission) (installments.Installment, error)
}

// InstallmentSubmitHandler пересчитывает проценты черновика перед отправкой
// и создает парцелу (или изменяет, если передан installmentId). Если кредит
// не найден, парцела уходит с нулевыми процентами, как в консоли; такой
// случай пишется в лог и считается в preview_fallbacks_total.
func InstallmentSubmitHandler(cfg *config.Config, calc *calculations.PreviewCalculator, loans cache.LoanSource, lookup LoanLookup, writer InstallmentWriter, tracer trace.Tracer, log *zap.Logger) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		toolName := "installment_submit"

		ctx, span := tracer.Start(ctx, toolName)
		defer span.End()

		loanIDFloat, ok := params["loanId"].(float64)
		if !ok {
			return nil, invalid(span, toolName, fmt.Errorf("invalid parameter: loanId"))
		}
		dueDate, ok := params["dueDate"].(string)
		if !ok || dueDate == "" {
			return nil, invalid(span, toolName, fmt.Errorf("invalid parameter: dueDate"))
		}
		if _, err := utils.ParseDate(dueDate); err != nil {
			return nil, invalid(span, toolName, err)
		}
		principalFloat, ok := params["principalAmount"].(float64)
		if !ok {
			return nil, invalid(span, toolName, fmt.Errorf("invalid parameter: principalAmount"))
		}
		number, _ := params["installmentNumber"].(float64)
		installmentID, _ := params["installmentId"].(float64)

		if err := validators.CheckLoanID(loanIDFloat); err != nil {
			return nil, invalid(span, toolName, err)
		}
		if err := validators.CheckPrincipal(cfg, principalFloat); err != nil {
			return nil, invalid(span, toolName, err)
		}
		if err := validators.CheckWholeNumber("installmentNumber", number); err != nil {
			return nil, invalid(span, toolName, err)
		}
		if err := validators.CheckWholeNumber("installmentId", installmentID); err != nil {
			return nil, invalid(span, toolName, err)
		}
		loanID := int64(loanIDFloat)

		span.SetAttributes(
			attribute.Int64("loan_id", loanID),
			attribute.Int64("installment_id", int64(installmentID)),
		)

		catalog := loanCatalog(ctx, loans, lookup, loanID, span, log)

		d := draft.New(calc, catalog)
		d.SetInstallmentNumber(int(number))
		d.SetLoanID(loanID)
		d.SetDueDate(dueDate)
		d.SetPrincipalAmount(utils.Round2(decimal.NewFromFloat(principalFloat)))
		sub := d.Submission()

		if preview := d.Snapshot().Preview; !preview.Resolved && preview.FallbackReason != "" {
			log.Warn("submitting installment with zero interest",
				zap.Int64("loan_id", loanID),
				zap.String("reason", preview.FallbackReason),
			)
			span.SetAttributes(attribute.String("fallback_reason", preview.FallbackReason))
			metrics.PreviewFallbacks.WithLabelValues(preview.FallbackReason).Inc()
		}

		var (
			saved installments.Installment
			err   error
		)
		if installmentID > 0 {
			saved, err = writer.UpdateInstallment(ctx, int64(installmentID), sub)
		} else {
			saved, err = writer.CreateInstallment(ctx, loanID, sub)
		}
		if err != nil {
			span.SetAttributes(attribute.String("error", "backend_error"))
			metrics.ToolCalls.WithLabelValues(toolName, "error").Inc()
			return nil, fmt.Errorf("ошибка при сохранении парцелы: %w", err)
		}

		span.SetAttributes(attribute.Bool("success", true))
		metrics.ToolCalls.WithLabelValues(toolName, "success").Inc()
		return saved, nil
	}
}
