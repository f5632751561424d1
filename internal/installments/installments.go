package installments

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Status фильтр по состоянию парцелы
type Status string

const (
	StatusAll     Status = "all"
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
)

// Installment запись парцелы в том виде, в котором ее отдает бэкенд
type Installment struct {
	ID                int64           `json:"id"`
	LoanID            int64           `json:"loanId"`
	InstallmentNumber int             `json:"installmentNumber"`
	DueDate           string          `json:"dueDate"`
	PrincipalAmount   decimal.Decimal `json:"principalAmount"`
	InterestAmount    decimal.Decimal `json:"interestAmount"`
	TotalDueAmount    decimal.Decimal `json:"totalDueAmount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	RemainingAmount   decimal.Decimal `json:"remainingAmount"`
	IsPaid            bool            `json:"isPaid"`
	Overdue           bool            `json:"overdue"`
	PaidAt            string          `json:"paidAt,omitempty"`
	CreatedAt         string          `json:"createdAt,omitempty"`
}

// Filter условия отбора списка. LoanID == 0 означает любой кредит.
type Filter struct {
	Search string `json:"search"`
	Status Status `json:"status"`
	LoanID int64  `json:"loanId"`
}

// Summary агрегаты по списку парцел
type Summary struct {
	Total           int             `json:"total"`
	Paid            int             `json:"paid"`
	Pending         int             `json:"pending"`
	Overdue         int             `json:"overdue"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
}

// Apply отбирает парцелы по фильтру. borrowerName возвращает имя клиента
// по кредиту и может быть nil.
func Apply(list []Installment, f Filter, borrowerName func(loanID int64) string) []Installment {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]Installment, 0, len(list))
	for _, inst := range list {
		if !matchesSearch(inst, search, borrowerName) {
			continue
		}
		if !matchesStatus(inst, f.Status) {
			continue
		}
		if f.LoanID != 0 && inst.LoanID != f.LoanID {
			continue
		}
		out = append(out, inst)
	}
	return out
}

func matchesSearch(inst Installment, search string, borrowerName func(int64) string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strconv.Itoa(inst.InstallmentNumber), search) {
		return true
	}
	if borrowerName == nil {
		return false
	}
	return strings.Contains(strings.ToLower(borrowerName(inst.LoanID)), search)
}

func matchesStatus(inst Installment, s Status) bool {
	switch s {
	case StatusPaid:
		return inst.IsPaid
	case StatusPending:
		return !inst.IsPaid
	case StatusOverdue:
		return inst.Overdue
	default:
		return true
	}
}

// Summarize считает количество и суммы по списку
func Summarize(list []Installment) Summary {
	s := Summary{
		Total:           len(list),
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
	}
	for _, inst := range list {
		if inst.IsPaid {
			s.Paid++
		} else {
			s.Pending++
		}
		if inst.Overdue {
			s.Overdue++
		}
		s.TotalAmount = s.TotalAmount.Add(inst.TotalDueAmount)
		s.PaidAmount = s.PaidAmount.Add(inst.PaidAmount)
		s.RemainingAmount = s.RemainingAmount.Add(inst.RemainingAmount)
	}
	return s
}

// StatusLabel подпись статуса для таблицы
func StatusLabel(inst Installment) string {
	switch {
	case inst.IsPaid:
		return "Pago"
	case inst.Overdue:
		return "Vencido"
	default:
		return "Pendente"
	}
}
