package reminder_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/reminder"
)

func day(t *testing.T, s string) calendar.Date {
	t.Helper()

	d, ok := calendar.Parse(s)
	require.True(t, ok, s)

	return d
}

func dates(occ []model.Occurrence) []string {
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Date.String())
	}
	return out
}

func window(t *testing.T, from, to string) reminder.ExpandConfig {
	t.Helper()

	return reminder.ExpandConfig{From: day(t, from), To: day(t, to)}
}

func TestExpandOneShot(t *testing.T) {
	t.Parallel()

	reminders := []model.Reminder{
		{ID: 1, Title: "Repot", DueDate: day(t, "2026-10-18"), Category: model.CategoryRepotting},
		{ID: 2, Title: "Too late", DueDate: day(t, "2026-11-01")},
		{ID: 3, Title: "Undated"},
		{ID: 4, Title: "Edge", DueDate: day(t, "2026-10-01")},
	}

	res, err := reminder.Expand(reminders, window(t, "2026-10-01", "2026-10-31"))
	require.NoError(t, err)
	assert.Empty(t, res.Truncated)

	want := []model.Occurrence{
		{ReminderID: 4, SourceID: "local", UID: "reminder-4@bonsaikeeper", Title: "Edge", Date: day(t, "2026-10-01")},
		{ReminderID: 1, SourceID: "local", UID: "reminder-1@bonsaikeeper", Title: "Repot", Category: "repotting", Date: day(t, "2026-10-18")},
	}
	if diff := cmp.Diff(want, res.Occurrences); diff != "" {
		t.Fatalf("occurrences mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandRecurring(t *testing.T) {
	t.Parallel()

	reminders := []model.Reminder{
		{ID: 1, Title: "Feed", DueDate: day(t, "2026-10-01"), RRule: "FREQ=WEEKLY;INTERVAL=2"},
		{ID: 2, Title: "Inspect", DueDate: day(t, "2026-09-30"), RRule: "RRULE:FREQ=MONTHLY;COUNT=3"},
	}

	res, err := reminder.Expand(reminders, window(t, "2026-10-01", "2026-12-31"))
	require.NoError(t, err)

	want := []string{
		"2026-10-01", "2026-10-15", "2026-10-29", "2026-10-30",
		"2026-11-12", "2026-11-26", "2026-11-30",
		"2026-12-10", "2026-12-24",
	}
	assert.Equal(t, want, dates(res.Occurrences))
}

func TestExpandLeapDayYearly(t *testing.T) {
	t.Parallel()

	reminders := []model.Reminder{
		{ID: 9, Title: "Leap check", DueDate: day(t, "2020-02-29"), RRule: "FREQ=YEARLY"},
	}

	res, err := reminder.Expand(reminders, window(t, "2021-01-01", "2028-12-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-29", "2028-02-29"}, dates(res.Occurrences))
}

func TestExpandCap(t *testing.T) {
	t.Parallel()

	reminders := []model.Reminder{
		{ID: 7, Title: "Water", DueDate: day(t, "2026-01-01"), RRule: "FREQ=DAILY"},
	}
	cfg := window(t, "2026-01-01", "2026-12-31")
	cfg.MaxOccurrencesPerReminder = 10

	res, err := reminder.Expand(reminders, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 10)
	assert.Equal(t, []string{"reminder-7@bonsaikeeper"}, res.Truncated)
	assert.Equal(t, "2026-01-10", res.Occurrences[9].Date.String())
}

func TestExpandSkipsBadRule(t *testing.T) {
	t.Parallel()

	reminders := []model.Reminder{
		{ID: 1, Title: "Broken", DueDate: day(t, "2026-10-02"), RRule: "FREQ=SOMETIMES"},
		{ID: 2, Title: "Fine", DueDate: day(t, "2026-10-03")},
	}

	res, err := reminder.Expand(reminders, window(t, "2026-10-01", "2026-10-31"))
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, "Fine", res.Occurrences[0].Title)
}

func TestExpandFeedReminderKeepsIdentity(t *testing.T) {
	t.Parallel()

	reminders := []model.Reminder{
		{SourceID: "club", UID: "workshop-1@club.example", Title: "Workshop", DueDate: day(t, "2026-10-20")},
	}

	res, err := reminder.Expand(reminders, window(t, "2026-10-01", "2026-10-31"))
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, "club", res.Occurrences[0].SourceID)
	assert.Equal(t, "workshop-1@club.example", res.Occurrences[0].UID)
	assert.Zero(t, res.Occurrences[0].ReminderID)
}

func TestExpandRejectsBadWindow(t *testing.T) {
	t.Parallel()

	_, err := reminder.Expand(nil, window(t, "2026-10-31", "2026-10-01"))
	require.Error(t, err)

	_, err = reminder.Expand(nil, reminder.ExpandConfig{From: day(t, "2026-10-01")})
	require.Error(t, err)
}

func TestParseRRule(t *testing.T) {
	t.Parallel()

	_, err := reminder.ParseRRule("RRULE:FREQ=WEEKLY;BYDAY=SA")
	require.NoError(t, err)

	_, err = reminder.ParseRRule("  ")
	require.Error(t, err)

	_, err = reminder.ParseRRule("FREQ=FORTNIGHTLY")
	require.Error(t, err)
}
