package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindNull Kind = iota // explicit "no value" marker
	KindText
	KindNumber
	KindDate
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// DateLayout is the canonical serialised form of a Date value.
const DateLayout = "2006-01-02"

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  float64
	date time.Time
}

// Null returns the "no value" marker.
func Null() Value { return Value{} }

// Text returns a textual value. The empty string is Null; any other text,
// whitespace included, is kept verbatim.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date returns a calendar-date value truncated to UTC midnight.
func Date(t time.Time) Value { return Value{kind: KindDate, date: Day(t)} }

// Kind reports what the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the "no value" marker.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Blank reports whether v is Null or text made only of whitespace.
func (v Value) Blank() bool {
	return v.kind == KindNull || (v.kind == KindText && strings.TrimSpace(v.text) == "")
}

// Float returns the numeric reading of v. Text values are parsed, with
// thousands separators removed. ok is false for Null, dates, and text
// that is not a finite number.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		s := strings.ReplaceAll(strings.TrimSpace(v.text), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Time returns the calendar date held by v. Text values are parsed with ParseDate.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.date, true
	case KindText:
		return ParseDate(v.text)
	default:
		return time.Time{}, false
	}
}

// String renders v the way it is written to a tabular file.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
