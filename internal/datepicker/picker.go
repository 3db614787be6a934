// Package datepicker holds the state of a single date-picker widget: the
// committed value, the display cursor and the open/closed flag.
//
// Transitions:
//
//	Closed --Activate (enabled)-----------> Open   (cursor clamped into bounds)
//	Open   --Activate--------------------> Closed
//	Open   --PointerOutside / Escape-----> Closed (caller fires blur)
//	Open   --Select(in-bounds day)-------> Closed (Selection emitted)
//	Open   --Prev/Next/SetMonth/SetYear--> Open   (cursor moves)
//
// Everything else is a no-op. A Picker is owned by one UI instance and is
// not safe for concurrent use.
package datepicker

import (
	"time"

	"bonsaikeeper/internal/calendar"
)

type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// KeyEscape is the key name that dismisses an open picker.
const KeyEscape = "Escape"

// Options configure a Picker. Value, Min and Max use the YYYY-MM-DD form;
// unparsable values are treated as absent.
type Options struct {
	Value string
	Min   string
	Max   string

	// Name and ID are echoed back in every Selection.
	Name string
	ID   string

	Disabled bool

	// Now defaults to time.Now; Location to time.Local.
	Now      func() time.Time
	Location *time.Location

	YearsBack  int
	YearsAhead int
}

// Selection is emitted when a day is picked. It stands for the value change,
// the picker closing and the field being committed, all at once.
type Selection struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Day is a grid cell decorated for rendering.
type Day struct {
	calendar.Cell
	Selected bool `json:"selected"`
	Today    bool `json:"today"`
	Disabled bool `json:"disabled"`
}

type Picker struct {
	opts     Options
	value    string
	selected calendar.Date
	bounds   calendar.Bounds
	today    calendar.Date
	cursor   calendar.YearMonth
	state    State
}

// New creates a closed picker. The cursor starts at the selected date's
// month, or today's month when there is no valid selection.
func New(opts Options) *Picker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Picker{
		opts:   opts,
		bounds: calendar.ParseBounds(opts.Min, opts.Max),
		today:  calendar.Today(opts.Now(), opts.Location),
	}
	p.cursor = p.today.YearMonth()
	p.SetValue(opts.Value)
	return p
}

// SetValue replaces the committed value, as a controlled form field would.
// A parsable value moves the cursor to its month, clamped into the bounds
// while the picker is open.
func (p *Picker) SetValue(v string) {
	p.value = v
	p.selected, _ = calendar.Parse(v)
	if !p.selected.IsZero() {
		p.cursor = p.selected.YearMonth()
	}
	if p.state == Open {
		p.cursor = p.bounds.Clamp(p.cursor)
	}
}

func (p *Picker) Value() string              { return p.value }
func (p *Picker) Selected() calendar.Date    { return p.selected }
func (p *Picker) Bounds() calendar.Bounds    { return p.bounds }
func (p *Picker) Cursor() calendar.YearMonth { return p.cursor }
func (p *Picker) State() State               { return p.state }
func (p *Picker) IsOpen() bool               { return p.state == Open }
func (p *Picker) Today() calendar.Date       { return p.today }
func (p *Picker) Grid() calendar.Grid        { return calendar.BuildMonth(p.cursor.Year, p.cursor.Month) }

// Activate toggles the picker. Opening a disabled picker does nothing.
// It returns the resulting state.
func (p *Picker) Activate() State {
	switch p.state {
	case Open:
		p.state = Closed
	default:
		if p.opts.Disabled {
			return p.state
		}
		p.state = Open
		p.cursor = p.bounds.Clamp(p.cursor)
	}
	return p.state
}

// PointerOutside closes an open picker. It reports whether the picker was
// open, in which case the caller should treat the field as blurred.
func (p *Picker) PointerOutside() bool {
	return p.dismiss()
}

// Key handles a key press while open. Only Escape is meaningful.
func (p *Picker) Key(key string) bool {
	if key != KeyEscape {
		return false
	}
	return p.dismiss()
}

func (p *Picker) dismiss() bool {
	if p.state != Open {
		return false
	}
	p.state = Closed
	return true
}

func (p *Picker) CanGoPrev() bool {
	return p.bounds.CanStepBack(p.cursor)
}

func (p *Picker) CanGoNext() bool {
	return p.bounds.CanStepForward(p.cursor)
}

// Prev moves the cursor one month back unless that would leave the bounds.
func (p *Picker) Prev() bool {
	if !p.CanGoPrev() {
		return false
	}
	p.cursor = p.cursor.Prev()
	return true
}

// Next moves the cursor one month forward unless that would leave the bounds.
func (p *Picker) Next() bool {
	if !p.CanGoNext() {
		return false
	}
	p.cursor = p.cursor.Next()
	return true
}

// SetMonth jumps to month within the current display year. Unlike Prev and
// Next, an out-of-bounds target is clamped rather than rejected.
func (p *Picker) SetMonth(month time.Month) {
	if month < time.January || month > time.December {
		return
	}
	p.cursor = p.bounds.Clamp(calendar.YearMonth{Year: p.cursor.Year, Month: month})
}

// SetYear jumps to year keeping the display month, clamped into bounds.
func (p *Picker) SetYear(year int) {
	p.cursor = p.bounds.Clamp(calendar.YearMonth{Year: year, Month: p.cursor.Month})
}

// Years lists the years offered in the year dropdown.
func (p *Picker) Years() []int {
	return calendar.Years(p.bounds, p.selected, p.today, p.opts.YearsBack, p.opts.YearsAhead)
}

// Selectable reports whether d may be picked.
func (p *Picker) Selectable(d calendar.Date) bool {
	return !p.opts.Disabled && p.bounds.Contains(d)
}

// Days decorates the current grid.
func (p *Picker) Days() []Day {
	g := p.Grid()
	out := make([]Day, len(g))
	for i, c := range g {
		out[i] = Day{
			Cell:     c,
			Selected: !p.selected.IsZero() && c.Date == p.selected,
			Today:    c.Date == p.today,
			Disabled: !p.Selectable(c.Date),
		}
	}
	return out
}

// Select picks d. It is a no-op unless the picker is open and d is
// selectable; on success the picker closes, the value is committed and the
// Selection is returned.
func (p *Picker) Select(d calendar.Date) (Selection, bool) {
	if p.state != Open || !p.Selectable(d) {
		return Selection{}, false
	}

	p.SetValue(d.String())
	p.state = Closed

	return Selection{
		Value: p.value,
		Name:  p.opts.Name,
		ID:    p.opts.ID,
	}, true
}
