// Package format форматирует суммы, ставки и даты для отображения в
// бразильской локали, как их показывает консоль.
package format

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/cloud-ru/loan-preview-go/pkg/utils"
)

const brlPattern = "#.###,##"

var hundred = decimal.NewFromInt(100)

// Currency форматирует сумму в реалах: R$ 1.234,56
func Currency(amount decimal.Decimal) string {
	rounded := utils.Round2(amount)
	if rounded.IsNegative() {
		return "-R$ " + humanize.FormatFloat(brlPattern, rounded.Neg().InexactFloat64())
	}
	return "R$ " + humanize.FormatFloat(brlPattern, rounded.InexactFloat64())
}

// Percentage переводит долю в проценты: 0.05 -> 5.00%
func Percentage(rate decimal.Decimal) string {
	return rate.Mul(hundred).StringFixed(2) + "%"
}

// Date переводит ISO дату в dd/mm/yyyy. Нераспознанная строка
// возвращается как есть.
func Date(value string) string {
	if value == "" {
		return ""
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), t.Year())
}
