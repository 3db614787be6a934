package web

import (
	"net/http"
	"strconv"
	"time"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/datepicker"
)

// pickerResponse is the render model of a date picker.
type pickerResponse struct {
	Value    string           `json:"value"`
	Display  string           `json:"display"`
	Open     bool             `json:"open"`
	Disabled bool             `json:"disabled"`
	Min      string           `json:"min,omitempty"`
	Max      string           `json:"max,omitempty"`
	Year     int              `json:"year"`
	Month    int              `json:"month"`
	Title    string           `json:"title"`
	CanPrev  bool             `json:"can_prev"`
	CanNext  bool             `json:"can_next"`
	Years    []int            `json:"years"`
	Months   []string         `json:"months"`
	Weekdays []string         `json:"weekdays"`
	Days     []datepicker.Day `json:"days"`
}

func (s *Server) newPicker(value, minValue, maxValue, name, id string, disabled bool) *datepicker.Picker {
	return datepicker.New(datepicker.Options{
		Value:      value,
		Min:        minValue,
		Max:        maxValue,
		Name:       name,
		ID:         id,
		Disabled:   disabled,
		Now:        s.now,
		Location:   s.loc,
		YearsBack:  s.cfg.DatePicker.YearsBack,
		YearsAhead: s.cfg.DatePicker.YearsAhead,
	})
}

// handleDatePicker builds the picker model.
//
// GET /api/datepicker?value=&min=&max=&open=1&year=&month=&nav=prev|next
//   - open:       open the panel (the cursor is clamped into bounds)
//   - year/month: move the cursor, clamped into bounds
//   - nav:        step one month, ignored at the bound
func (s *Server) handleDatePicker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := s.newPicker(q.Get("value"), q.Get("min"), q.Get("max"), "", "", parseBool(q.Get("disabled")))
	if parseBool(q.Get("open")) {
		p.Activate()
	}
	if y, err := strconv.Atoi(q.Get("year")); err == nil && y >= 1 && y <= 9999 {
		p.SetYear(y)
	}
	if m, err := strconv.Atoi(q.Get("month")); err == nil {
		p.SetMonth(time.Month(m))
	}
	switch q.Get("nav") {
	case "prev":
		p.Prev()
	case "next":
		p.Next()
	}

	writeJSON(w, http.StatusOK, s.pickerModel(p, parseBool(q.Get("disabled"))))
}

func (s *Server) pickerModel(p *datepicker.Picker, disabled bool) pickerResponse {
	locale := s.cfg.Locale
	cursor := p.Cursor()
	months := calendar.MonthLabels(locale)
	b := p.Bounds()

	return pickerResponse{
		Value:    p.Value(),
		Display:  calendar.FormatDisplay(p.Selected(), locale),
		Open:     p.IsOpen(),
		Disabled: disabled,
		Min:      b.Min.String(),
		Max:      b.Max.String(),
		Year:     cursor.Year,
		Month:    int(cursor.Month),
		Title:    months[cursor.Month-1] + " " + strconv.Itoa(cursor.Year),
		CanPrev:  p.CanGoPrev(),
		CanNext:  p.CanGoNext(),
		Years:    p.Years(),
		Months:   months,
		Weekdays: calendar.WeekdayLabels(locale),
		Days:     p.Days(),
	}
}

type selectRequest struct {
	Value    string `json:"value"`
	Min      string `json:"min"`
	Max      string `json:"max"`
	Name     string `json:"name"`
	ID       string `json:"id"`
	Disabled bool   `json:"disabled"`
	Date     string `json:"date"`
}

// handleDatePickerSelect picks a day on an open picker and returns the
// resulting Selection. Days outside the bounds are refused with 422.
func (s *Server) handleDatePickerSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, ok := calendar.Parse(req.Date)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	p := s.newPicker(req.Value, req.Min, req.Max, req.Name, req.ID, req.Disabled)
	p.Activate()

	sel, ok := p.Select(d)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "date is not selectable")
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

type parseDateResponse struct {
	Valid   bool   `json:"valid"`
	Value   string `json:"value"`
	Display string `json:"display"`
}

// handleParseDate validates a YYYY-MM-DD value and returns its display form.
func (s *Server) handleParseDate(w http.ResponseWriter, r *http.Request) {
	d, ok := calendar.Parse(r.URL.Query().Get("value"))
	if !ok {
		writeJSON(w, http.StatusOK, parseDateResponse{})
		return
	}
	writeJSON(w, http.StatusOK, parseDateResponse{
		Valid:   true,
		Value:   d.String(),
		Display: calendar.FormatDisplay(d, s.cfg.Locale),
	})
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
