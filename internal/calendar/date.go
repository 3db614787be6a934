// Package calendar implements the date arithmetic behind the date picker:
// parsing and formatting calendar dates, 6-week month grids, navigation
// bounds and the selectable year range.
//
// Invalid input is never an error here. Parse and FromTime report absence
// through their boolean result, and the zero Date means "no date".
package calendar

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned only by the text, JSON and SQL decoders, where
// the interfaces require an error.
var ErrInvalidDate = errors.New("calendar: invalid date")

const layoutISO = "2006-01-02"

// Date is a calendar day with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Parse reads a YYYY-MM-DD string. It returns false for malformed input,
// out-of-range components, and days that do not exist in the month
// (2024-02-30 is rejected, not rolled over to March).
func Parse(value string) (Date, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, false
	}

	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return Date{}, false
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, false
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return Date{}, false
	}

	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, false
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, true
}

// FromTime returns the calendar day of t in t's own location. The zero
// time is treated as absent.
func FromTime(t time.Time) (Date, bool) {
	if t.IsZero() {
		return Date{}, false
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}, true
}

// Today returns the current day in loc (time.Local when nil).
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	d, _ := FromTime(now.In(loc))
	return d
}

// IsZero reports whether d is the absent date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight of d in loc (UTC when nil).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	out, _ := FromTime(d.Time(time.UTC).AddDate(0, 0, n))
	return out
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// YearMonth returns the month containing d.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year, Month: d.Month}
}

// String formats d as zero-padded YYYY-MM-DD. The zero Date formats as "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Format is the package-level spelling of Date.String.
func Format(d Date) string {
	return d.String()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, ok := Parse(string(b))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, string(b))
	}
	*d = parsed
	return nil
}

// MarshalJSON encodes the zero Date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	unq, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return d.UnmarshalText([]byte(unq))
}

// Value stores dates as TEXT; the zero Date is NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d, _ = FromTime(v)
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, src)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
