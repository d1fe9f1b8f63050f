package normalize

import (
	"regexp"
	"strconv"
	"time"

	"facturas/pkg/models"
)

var (
	dayFirstPattern = regexp.MustCompile(`^(\d{1,2})([-/.])(\d{1,2})([-/.])(\d{4}|\d{2})$`)
	isoPattern      = regexp.MustCompile(`^(\d{4})([-/])(\d{1,2})([-/])(\d{1,2})$`)
)

// ParseDate parses the day-first formats found on Colombian invoices (DD-MM-YYYY,
// DD/MM/YYYY, DD.MM.YYYY, DD-MM-YY, DD/MM/YY) and ISO YYYY-MM-DD. Two-digit years
// belong to the 2000s. Dates that do not exist on the calendar are rejected.
func ParseDate(s string) (time.Time, bool) {
	var year, month, day int
	if m := dayFirstPattern.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return time.Time{}, false
		}
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[3])
		year, _ = strconv.Atoi(m[5])
		if len(m[5]) == 2 {
			year += 2000
		}
	} else if m := isoPattern.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return time.Time{}, false
		}
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[3])
		day, _ = strconv.Atoi(m[5])
	} else {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// CanonicalDate rewrites a supported date string in YYYY-MM-DD form.
func CanonicalDate(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(models.DateLayout), true
}
