package web

import (
	_ "embed"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/capture"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/reminder"
)

//go:embed templates/calendar.html
var calendarHTML string

var calendarTmpl = template.Must(template.New("calendar").Parse(calendarHTML))

type calendarPage struct {
	Lang     string
	Title    string
	Weekdays []string
	Weeks    [][]calendarDay
}

type calendarDay struct {
	Day     int
	InMonth bool
	Today   bool
	Items   []calendarItem
}

type calendarItem struct {
	Title    string
	TreeName string
	Feed     bool
}

// handleCalendarPage renders a printable month with the reminders due on
// each visible day. This is the page the capture job screenshots.
//
// GET /calendar?year=2026&month=10 (defaults to the current month)
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := calendar.Today(s.now(), s.loc)

	ym := today.YearMonth()
	if y, err := strconv.Atoi(q.Get("year")); err == nil && y >= 1 && y <= 9999 {
		ym.Year = y
	}
	if m, err := strconv.Atoi(q.Get("month")); err == nil && m >= 1 && m <= 12 {
		ym.Month = time.Month(m)
	}

	grid := calendar.BuildMonth(ym.Year, ym.Month)

	res, err := s.expand(r, grid[0].Date, grid[calendar.GridSize-1].Date)
	if err != nil {
		writeStoreError(w, "calendar page", err)
		return
	}
	byDay := make(map[calendar.Date][]calendarItem)
	for _, o := range res.Occurrences {
		byDay[o.Date] = append(byDay[o.Date], calendarItem{
			Title:    o.Title,
			TreeName: o.TreeName,
			Feed:     o.SourceID != reminder.LocalSourceID,
		})
	}

	months := calendar.MonthLabels(s.cfg.Locale)
	page := calendarPage{
		Lang:     strings.ToLower(strings.SplitN(strings.ReplaceAll(s.cfg.Locale, "_", "-"), "-", 2)[0]),
		Title:    months[ym.Month-1] + " " + strconv.Itoa(ym.Year),
		Weekdays: calendar.WeekdayLabels(s.cfg.Locale),
	}
	for _, week := range grid.Weeks() {
		row := make([]calendarDay, 0, len(week))
		for _, c := range week {
			row = append(row, calendarDay{
				Day:     c.Date.Day,
				InMonth: c.InCurrentMonth,
				Today:   c.Date == today,
				Items:   byDay[c.Date],
			})
		}
		page.Weeks = append(page.Weeks, row)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calendarTmpl.Execute(w, page); err != nil {
		appLog.Error("calendar template failed", err)
	}
}

// handlePreview serves the last captured calendar PNG from the data dir.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path := capture.PreviewPath(s.cfg.DataDir)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "no preview captured yet")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}
