package reminder

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"bonsaikeeper/internal/calendar"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/model"
)

const (
	defaultMaxOccurrencesPerReminder = 1000

	// LocalSourceID marks occurrences of reminders kept in the database.
	LocalSourceID = "local"
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// From / To define the inclusive day window for occurrences.
	From calendar.Date
	To   calendar.Date

	// MaxOccurrencesPerReminder is a safety cap for rules such as
	// FREQ=DAILY over a wide window. If zero, defaultMaxOccurrencesPerReminder
	// is used.
	MaxOccurrencesPerReminder int
}

// ExpandResult wraps the expanded occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences []model.Occurrence
	Truncated   []string
}

// Expand turns reminders into concrete due days inside [cfg.From, cfg.To].
//
//   - Undated reminders have no occurrences.
//   - A reminder without RRule occurs once, on its DueDate.
//   - A recurring reminder expands its RRULE with DueDate as DTSTART.
//
// Reminders whose rule fails to parse are logged and skipped. Occurrences
// are returned ordered by date, then title.
func Expand(reminders []model.Reminder, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.From.IsZero() || cfg.To.IsZero() {
		return result, errors.New("expand: From and To are required")
	}
	if cfg.To.Before(cfg.From) {
		return result, errors.New("expand: To is before From")
	}
	if cfg.MaxOccurrencesPerReminder <= 0 {
		cfg.MaxOccurrencesPerReminder = defaultMaxOccurrencesPerReminder
	}

	out := make([]model.Occurrence, 0)
	for _, r := range reminders {
		if r.DueDate.IsZero() {
			continue
		}

		if r.RRule == "" {
			if !r.DueDate.Before(cfg.From) && !r.DueDate.After(cfg.To) {
				out = append(out, makeOccurrence(r, r.DueDate))
			}
			continue
		}

		occ, hitCap, err := expandRecurring(r, cfg)
		if err != nil {
			appLog.Error("expand: failed to parse RRULE", err, "uid", uidOf(r), "rrule", r.RRule)
			continue
		}
		if hitCap {
			result.Truncated = append(result.Truncated, uidOf(r))
			appLog.Warn("expand: truncated occurrences due to cap",
				"uid", uidOf(r),
				"cap", cfg.MaxOccurrencesPerReminder,
			)
		}
		out = append(out, occ...)
	}

	slices.SortStableFunc(out, func(a, b model.Occurrence) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})

	result.Occurrences = out
	return result, nil
}

func expandRecurring(r model.Reminder, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	opt, err := ParseRRule(r.RRule)
	if err != nil {
		return nil, false, err
	}
	opt.Dtstart = r.DueDate.Time(time.UTC)
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, false, fmt.Errorf("build rrule: %w", err)
	}

	times := rule.Between(cfg.From.Time(time.UTC), cfg.To.Time(time.UTC), true)

	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerReminder {
		times = times[:cfg.MaxOccurrencesPerReminder]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(times))
	for _, t := range times {
		d, ok := calendar.FromTime(t.UTC())
		if !ok {
			continue
		}
		out = append(out, makeOccurrence(r, d))
	}
	return out, hitCap, nil
}

// ParseRRule parses an RFC 5545 recurrence rule, with or without the
// "RRULE:" prefix. DTSTART is left for the caller to set.
func ParseRRule(s string) (*rrule.ROption, error) {
	s = trimRRulePrefix(s)
	if s == "" {
		return nil, errors.New("empty rrule")
	}
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	return opt, nil
}

func trimRRulePrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "RRULE:") {
		s = s[6:]
	}
	return s
}

// UID returns the iCalendar UID of a stored reminder.
func UID(id int64) string {
	return fmt.Sprintf("reminder-%d@bonsaikeeper", id)
}

func uidOf(r model.Reminder) string {
	if r.UID != "" {
		return r.UID
	}
	return UID(r.ID)
}

func makeOccurrence(r model.Reminder, d calendar.Date) model.Occurrence {
	src := r.SourceID
	if src == "" {
		src = LocalSourceID
	}
	var treeID int64
	if r.TreeID != nil {
		treeID = *r.TreeID
	}
	return model.Occurrence{
		ReminderID: r.ID,
		SourceID:   src,
		UID:        uidOf(r),
		Title:      r.Title,
		Message:    r.Message,
		Category:   r.Category,
		TreeID:     treeID,
		TreeName:   r.TreeName,
		Date:       d,
	}
}
