package calculations

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/logger"
	"github.com/cloud-ru/loan-preview-go/pkg/utils"
)

const defaultDayCountBasis = 30

// Option настраивает PreviewCalculator
type Option func(*PreviewCalculator)

// WithClampNegativeDays обнуляет отрицательную разницу в днях
// (срок раньше даты начала кредита). По умолчанию выключено.
func WithClampNegativeDays(clamp bool) Option {
	return func(c *PreviewCalculator) {
		c.clampNegativeDays = clamp
	}
}

// WithDayCountBasis задает число дней в месяце для дневной ставки
func WithDayCountBasis(days int) Option {
	return func(c *PreviewCalculator) {
		if days > 0 {
			c.basis = decimal.NewFromInt(int64(days))
		}
	}
}

// PreviewCalculator оценивает проценты по одной парцеле пропорционально
// числу дней между началом кредита и сроком платежа. Это подсказка для
// формы, бэкенд может посчитать иначе.
type PreviewCalculator struct {
	log               *zap.Logger
	basis             decimal.Decimal
	clampNegativeDays bool
}

// NewPreviewCalculator создает калькулятор
func NewPreviewCalculator(log *zap.Logger, opts ...Option) *PreviewCalculator {
	c := &PreviewCalculator{
		log:   logger.OrNop(log),
		basis: decimal.NewFromInt(defaultDayCountBasis),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindLoan ищет кредит по идентификатору в уже загруженной коллекции
func FindLoan(loans []LoanContext, id int64) (LoanContext, bool) {
	for _, l := range loans {
		if l.ID == id {
			return l, true
		}
	}
	return LoanContext{}, false
}

// Calculate рассчитывает проценты и итоговую сумму парцелы. Никогда не
// возвращает ошибку: любой сбой дает нулевые проценты и запись в лог.
func (c *PreviewCalculator) Calculate(loans []LoanContext, loanID int64, draft InstallmentDraft) (result InstallmentPreviewResult) {
	principal := draft.PrincipalAmount

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("installment preview failed",
				zap.Any("panic", r),
				zap.Int64("loan_id", loanID),
			)
			result = fallback(principal, ReasonPanic)
		}
	}()

	loan, ok := FindLoan(loans, loanID)
	if !ok {
		c.log.Warn("loan not found for installment preview",
			zap.Int64("loan_id", loanID),
			zap.Int("loans_loaded", len(loans)),
		)
		return fallback(principal, ReasonLoanNotFound)
	}

	if draft.DueDate.IsZero() || loan.StartDate.IsZero() {
		c.log.Warn("installment preview without dates",
			zap.Int64("loan_id", loanID),
			zap.Time("due_date", draft.DueDate),
			zap.Time("start_date", loan.StartDate),
		)
		return fallback(principal, ReasonInvalidDate)
	}

	days := utils.DaysBetween(loan.StartDate, draft.DueDate)
	if days < 0 {
		c.log.Warn("due date precedes loan start date",
			zap.Int64("loan_id", loanID),
			zap.Int("days_diff", days),
			zap.Bool("clamped", c.clampNegativeDays),
		)
		if c.clampNegativeDays {
			days = 0
		}
	}

	// principal * (rate / basis) * days, деление последним
	interest := utils.Round2(
		principal.
			Mul(loan.MonthlyInterestRate).
			Mul(decimal.NewFromInt(int64(days))).
			Div(c.basis),
	)

	return InstallmentPreviewResult{
		InterestAmount: interest,
		TotalDueAmount: principal.Add(interest),
		DaysDiff:       days,
		Resolved:       true,
	}
}

// CalculateRaw то же, что Calculate, но принимает срок строкой из формы
func (c *PreviewCalculator) CalculateRaw(loans []LoanContext, loanID int64, dueDate string, principal decimal.Decimal) InstallmentPreviewResult {
	due, err := utils.ParseDate(dueDate)
	if err != nil {
		c.log.Warn("installment preview with malformed due date",
			zap.Int64("loan_id", loanID),
			zap.String("due_date", dueDate),
			zap.Error(err),
		)
		return fallback(principal, ReasonInvalidDate)
	}
	return c.Calculate(loans, loanID, InstallmentDraft{DueDate: due, PrincipalAmount: principal})
}

func fallback(principal decimal.Decimal, reason string) InstallmentPreviewResult {
	return InstallmentPreviewResult{
		InterestAmount: decimal.Zero,
		TotalDueAmount: principal,
		FallbackReason: reason,
	}
}
