package analytics

import (
	"strings"
	"time"

	"stays_observer/models"
)

var (
	weekdaysPT = [...]string{"dom.", "seg.", "ter.", "qua.", "qui.", "sex.", "sáb."}
	monthsPT   = [...]string{"jan.", "fev.", "mar.", "abr.", "mai.", "jun.", "jul.", "ago.", "set.", "out.", "nov.", "dez."}
)

// DayOfWeekLabel returns the uppercased pt-BR short weekday, e.g. "SEG.".
func DayOfWeekLabel(t time.Time) string {
	return strings.ToUpper(weekdaysPT[t.Weekday()])
}

// MonthLabel returns the uppercased pt-BR short month, e.g. "OUT.".
func MonthLabel(t time.Time) string {
	return strings.ToUpper(monthsPT[t.Month()-1])
}

// DayKey formats the calendar day of t in t's location.
func DayKey(t time.Time) string {
	return t.Format(models.DayLayout)
}

// dayAt returns the calendar day offset days after start.
func dayAt(start time.Time, offset int) time.Time {
	y, m, d := start.Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, start.Location())
}

// GetDateRange returns the from/to query bounds for a window of days
// starting at start.
func GetDateRange(start time.Time, days int) (from, to string) {
	return DayKey(dayAt(start, 0)), DayKey(dayAt(start, days))
}

// FetchWindow returns the bounds for a window spanning back days before now
// and ahead days after it.
func FetchWindow(now time.Time, back, ahead int) (from, to string) {
	return DayKey(dayAt(now, -back)), DayKey(dayAt(now, ahead))
}
