package calculations

import (
	"time"

	"github.com/shopspring/decimal"
)

// Причины, по которым предварительный расчет вернул нулевые проценты
const (
	ReasonLoanNotFound = "loan_not_found"
	ReasonInvalidDate  = "invalid_date"
	ReasonPanic        = "panic"
)

// LoanContext часть записи кредита, нужная для предварительного расчета
type LoanContext struct {
	ID                  int64           `json:"id"`
	StartDate           time.Time       `json:"startDate"`
	MonthlyInterestRate decimal.Decimal `json:"interestRate"`
}

// InstallmentDraft редактируемая пользователем парцела
type InstallmentDraft struct {
	DueDate         time.Time
	PrincipalAmount decimal.Decimal
}

// InstallmentPreviewResult результат предварительного расчета.
// TotalDueAmount всегда равен PrincipalAmount + InterestAmount.
type InstallmentPreviewResult struct {
	InterestAmount decimal.Decimal `json:"interestAmount"`
	TotalDueAmount decimal.Decimal `json:"totalDueAmount"`
	DaysDiff       int             `json:"daysDiff"`
	Resolved       bool            `json:"resolved"`
	FallbackReason string          `json:"fallbackReason,omitempty"`
}
