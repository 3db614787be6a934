package calendar

// Default width of the year dropdown when no bound pins it.
const (
	DefaultYearsBack  = 60
	DefaultYearsAhead = 20
)

// Bounds restricts selectable and navigable dates. A zero Min or Max means
// that side is open.
type Bounds struct {
	Min Date
	Max Date
}

// NewBounds builds Bounds, swapping min and max when both are set and
// inverted.
func NewBounds(lo, hi Date) Bounds {
	if !lo.IsZero() && !hi.IsZero() && lo.After(hi) {
		lo, hi = hi, lo
	}
	return Bounds{Min: lo, Max: hi}
}

// ParseBounds is NewBounds over raw strings; unparsable sides stay open.
func ParseBounds(minValue, maxValue string) Bounds {
	lo, _ := Parse(minValue)
	hi, _ := Parse(maxValue)
	return NewBounds(lo, hi)
}

// Contains reports whether d is inside [Min, Max].
func (b Bounds) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	if !b.Min.IsZero() && d.Before(b.Min) {
		return false
	}
	if !b.Max.IsZero() && d.After(b.Max) {
		return false
	}
	return true
}

// Clamp snaps ym into [Min's month, Max's month].
func (b Bounds) Clamp(ym YearMonth) YearMonth {
	if !b.Min.IsZero() && ym.Before(b.Min.YearMonth()) {
		ym = b.Min.YearMonth()
	}
	if !b.Max.IsZero() && ym.After(b.Max.YearMonth()) {
		ym = b.Max.YearMonth()
	}
	return ym
}

// CanStepBack reports whether the month before ym is still navigable.
func (b Bounds) CanStepBack(ym YearMonth) bool {
	if b.Min.IsZero() {
		return true
	}
	return !ym.Prev().Before(b.Min.YearMonth())
}

// CanStepForward reports whether the month after ym is still navigable.
func (b Bounds) CanStepForward(ym YearMonth) bool {
	if b.Max.IsZero() {
		return true
	}
	return !ym.Next().After(b.Max.YearMonth())
}

// YearRange computes the inclusive range of years offered for selection.
// Open sides fall back to today-back and today+ahead; the selected year is
// always included.
func YearRange(b Bounds, selected, today Date, back, ahead int) (start, end int) {
	if back <= 0 {
		back = DefaultYearsBack
	}
	if ahead <= 0 {
		ahead = DefaultYearsAhead
	}

	start = today.Year - back
	if !b.Min.IsZero() {
		start = b.Min.Year
	}
	end = today.Year + ahead
	if !b.Max.IsZero() {
		end = b.Max.Year
	}

	if !selected.IsZero() {
		start = min(start, selected.Year)
		end = max(end, selected.Year)
	}
	if start > end {
		start, end = end, start
	}
	return start, end
}

// Years expands YearRange into a slice.
func Years(b Bounds, selected, today Date, back, ahead int) []int {
	start, end := YearRange(b, selected, today, back, ahead)
	out := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		out = append(out, y)
	}
	return out
}
