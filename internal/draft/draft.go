// Package draft держит состояние формы создания/редактирования парцелы и
// пересчитывает производные поля при каждом изменении входных полей.
package draft

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cloud-ru/loan-preview-go/internal/calculations"
)

// Calculator считает предварительные проценты
type Calculator interface {
	CalculateRaw(loans []calculations.LoanContext, loanID int64, dueDate string, principal decimal.Decimal) calculations.InstallmentPreviewResult
}

// Snapshot копия состояния черновика
type Snapshot struct {
	InstallmentNumber int
	LoanID            int64
	DueDate           string
	PrincipalAmount   decimal.Decimal
	InterestAmount    decimal.Decimal
	TotalDueAmount    decimal.Decimal
	Preview           calculations.InstallmentPreviewResult
}

// Submission тело запроса на создание или изменение парцелы
type Submission struct {
	InstallmentNumber int
	DueDate           string
	PrincipalAmount   decimal.Decimal
	InterestAmount    decimal.Decimal
	TotalDueAmount    decimal.Decimal
}

// MarshalJSON пишет суммы числами с двумя знаками, как их ждет бэкенд
func (s Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		InstallmentNumber int         `json:"installmentNumber"`
		DueDate           string      `json:"dueDate"`
		PrincipalAmount   json.Number `json:"principalAmount"`
		InterestAmount    json.Number `json:"interestAmount"`
		TotalDueAmount    json.Number `json:"totalDueAmount"`
	}{
		InstallmentNumber: s.InstallmentNumber,
		DueDate:           s.DueDate,
		PrincipalAmount:   json.Number(s.PrincipalAmount.StringFixed(2)),
		InterestAmount:    json.Number(s.InterestAmount.StringFixed(2)),
		TotalDueAmount:    json.Number(s.TotalDueAmount.StringFixed(2)),
	})
}

// Draft черновик парцелы. Не потокобезопасен: предполагается один
// владелец, который вызывает сеттеры последовательно.
type Draft struct {
	calc      Calculator
	loans     []calculations.LoanContext
	state     Snapshot
	listeners []func(Snapshot)
}

// New создает пустой черновик
func New(calc Calculator, loans []calculations.LoanContext) *Draft {
	d := &Draft{calc: calc, loans: loans}
	d.recompute()
	return d
}

// OnChange подписывает fn на каждый пересчет
func (d *Draft) OnChange(fn func(Snapshot)) {
	d.listeners = append(d.listeners, fn)
}

// SetLoans заменяет коллекцию загруженных кредитов
func (d *Draft) SetLoans(loans []calculations.LoanContext) {
	d.loans = loans
	d.recompute()
}

// SetLoanID выбирает кредит и пересчитывает проценты
func (d *Draft) SetLoanID(id int64) {
	d.state.LoanID = id
	d.recompute()
}

// SetDueDate принимает срок в том виде, в котором его ввели
func (d *Draft) SetDueDate(dueDate string) {
	d.state.DueDate = dueDate
	d.recompute()
}

// SetPrincipalAmount задает основной долг парцелы
func (d *Draft) SetPrincipalAmount(amount decimal.Decimal) {
	d.state.PrincipalAmount = amount
	d.recompute()
}

// SetInstallmentNumber не влияет на расчет, поэтому без пересчета
func (d *Draft) SetInstallmentNumber(n int) {
	d.state.InstallmentNumber = n
}

// Snapshot возвращает текущее состояние
func (d *Draft) Snapshot() Snapshot {
	return d.state
}

// Submission пересчитывает проценты и формирует тело запроса для бэкенда
func (d *Draft) Submission() Submission {
	d.recompute()
	s := d.state
	return Submission{
		InstallmentNumber: s.InstallmentNumber,
		DueDate:           dateOnly(s.DueDate),
		PrincipalAmount:   s.PrincipalAmount,
		InterestAmount:    s.InterestAmount,
		TotalDueAmount:    s.TotalDueAmount,
	}
}

func (d *Draft) ready() bool {
	return d.state.LoanID != 0 &&
		strings.TrimSpace(d.state.DueDate) != "" &&
		d.state.PrincipalAmount.IsPositive()
}

func (d *Draft) recompute() {
	if d.ready() {
		res := d.calc.CalculateRaw(d.loans, d.state.LoanID, d.state.DueDate, d.state.PrincipalAmount)
		d.state.Preview = res
		d.state.InterestAmount = res.InterestAmount
		d.state.TotalDueAmount = res.TotalDueAmount
	} else {
		d.state.Preview = calculations.InstallmentPreviewResult{}
		d.state.InterestAmount = decimal.Zero
		d.state.TotalDueAmount = d.state.PrincipalAmount
	}

	for _, fn := range d.listeners {
		fn(d.state)
	}
}

func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		return s[:i]
	}
	return s
}
