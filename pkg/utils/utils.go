package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout формат календарной даты, в котором бэкенд отдает даты
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Round2 округляет сумму до копеек (половина округляется от нуля)
func Round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// IsFinite проверяет, является ли число конечным
func IsFinite(value float64) bool {
	return !math.IsInf(value, 0) && !math.IsNaN(value)
}

// ParseDate разбирает календарную дату. Значимая часть только YYYY-MM-DD,
// время и зона после "T" или пробела отбрасываются.
func ParseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная дата %q: %w", value, err)
	}
	return t, nil
}

// CalendarDate приводит момент времени к полуночи UTC того же календарного дня
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween возвращает число дней от start до end (округление вверх).
// Сравниваются календарные даты, поэтому сдвиг часового пояса не влияет.
func DaysBetween(start, end time.Time) int {
	// через Unix-секунды: time.Duration переполняется после ~292 лет
	secs := CalendarDate(end).Unix() - CalendarDate(start).Unix()
	return int(math.Ceil(float64(secs) / secondsPerDay))
}
