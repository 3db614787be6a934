package reminder

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"bonsaikeeper/internal/calendar"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/model"
)

// ErrEmptyBody is returned by ParseICS for an empty payload.
var ErrEmptyBody = errors.New("reminder: empty ICS body")

const productID = "-//bonsaikeeper//care reminders//EN"

// ParseICS reads the VEVENTs of an iCalendar payload as reminders.
//
//   - DTSTART gives the due date; only its calendar day is kept.
//   - SUMMARY becomes the title, DESCRIPTION the message.
//   - The first CATEGORIES value becomes the category.
//   - RRULE is carried through unexpanded.
//
// Events without SUMMARY or DTSTART are logged and skipped. The returned
// reminders carry src.ID and the event UID but no database ID.
func ParseICS(src Source, body []byte) ([]model.Reminder, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	out := make([]model.Reminder, 0)
	for _, ve := range cal.Events() {
		r, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", perr.Error())
			continue
		}
		out = append(out, r)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "reminder_count", len(out))
	return out, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (model.Reminder, error) {
	r := model.Reminder{SourceID: src.ID}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		r.UID = strings.TrimSpace(p.Value)
	}

	p := ve.GetProperty(ical.ComponentPropertySummary)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return r, errors.New("missing SUMMARY")
	}
	r.Title = strings.TrimSpace(p.Value)

	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		r.Message = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		first, _, _ := strings.Cut(p.Value, ",")
		r.Category = strings.ToLower(strings.TrimSpace(first))
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return r, errors.New("missing DTSTART")
	}
	t, err := parseICSTime(dtStart.Value)
	if err != nil {
		return r, fmt.Errorf("DTSTART: %w", err)
	}
	due, ok := calendar.FromTime(t)
	if !ok {
		return r, errors.New("DTSTART out of range")
	}
	r.DueDate = due

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		r.RRule = strings.TrimSpace(p.Value)
	}

	return r, nil
}

// parseICSTime parses a basic ICS date/date-time string. The calendar day
// is taken as written; TZID parameters are not applied.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Floating or TZID date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.UTC)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, time.UTC)
}

// ExportICS serializes dated reminders as an iCalendar feed of all-day
// events. Undated reminders are left out. now is used for DTSTAMP.
func ExportICS(reminders []model.Reminder, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, r := range reminders {
		if r.DueDate.IsZero() {
			continue
		}

		ev := cal.AddEvent(uidOf(r))
		ev.SetDtStampTime(now.UTC())
		ev.SetSummary(r.Title)
		if r.Message != "" {
			ev.SetDescription(r.Message)
		}
		if r.Category != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, r.Category)
		}

		start := r.DueDate.Time(time.UTC)
		ev.SetAllDayStartAt(start)
		ev.SetAllDayEndAt(start.AddDate(0, 0, 1))

		if rule := trimRRulePrefix(r.RRule); rule != "" {
			ev.AddProperty(ical.ComponentPropertyRrule, rule)
		}
	}

	return cal.Serialize()
}
