package validators

import (
	"fmt"
	"math"

	"github.com/cloud-ru/loan-preview-go/internal/config"
	"github.com/cloud-ru/loan-preview-go/internal/installments"
	"github.com/cloud-ru/loan-preview-go/pkg/utils"
)

// 2^53: дальше float64 теряет целые
const maxWholeNumber = 1 << 53

// ValidateNumberRange проверяет, что число конечно и в допустимом диапазоне
func ValidateNumberRange(name string, value float64, minInclusive, maxInclusive float64) error {
	if !utils.IsFinite(value) {
		return fmt.Errorf("%s: значение не является конечным числом", name)
	}
	if value < minInclusive {
		return fmt.Errorf("%s: значение должно быть ≥ %.0f", name, minInclusive)
	}
	if value > maxInclusive {
		return fmt.Errorf("%s: значение слишком велико (>%.0f)", name, maxInclusive)
	}
	return nil
}

// CheckPrincipal проверяет основной долг парцелы. Ноль допустим.
func CheckPrincipal(cfg *config.Config, principal float64) error {
	return ValidateNumberRange("principalAmount", principal, 0.0, cfg.PrincipalCap())
}

// CheckWholeNumber проверяет, что из JSON пришло неотрицательное целое
// (идентификаторы и номера парцел)
func CheckWholeNumber(name string, value float64) error {
	if err := ValidateNumberRange(name, value, 0, maxWholeNumber); err != nil {
		return err
	}
	if value != math.Trunc(value) {
		return fmt.Errorf("%s: значение должно быть целым", name)
	}
	return nil
}

// CheckLoanID проверяет идентификатор кредита: целое больше нуля
func CheckLoanID(id float64) error {
	if err := CheckWholeNumber("loanId", id); err != nil {
		return err
	}
	if id == 0 {
		return fmt.Errorf("loanId: значение должно быть положительным")
	}
	return nil
}

// CheckStatus проверяет фильтр статуса; пустой означает "all"
func CheckStatus(status installments.Status) error {
	switch status {
	case "", installments.StatusAll, installments.StatusPaid, installments.StatusPending, installments.StatusOverdue:
		return nil
	}
	return fmt.Errorf("status: неизвестное значение %q", status)
}
