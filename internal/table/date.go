package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v2"
)

// dateLayouts are tried in order. Extracts come from pandas (ISO, with or
// without a time part) and from spreadsheets re-saved by hand (US formats).
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
	"01-02-2006",
}

// Excel serial day numbers for 1900-03-01 and 9999-12-31.
const (
	minExcelSerial = 61
	maxExcelSerial = 2958465
)

// ParseDate parses a calendar date in any of the supported layouts, or as
// an Excel serial day number in the 1900 date system. The result is
// truncated to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
		return Day(xlsx.TimeFromExcelTime(f, false)), true
	}
	return time.Time{}, false
}

// DaysBetween returns the whole number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
