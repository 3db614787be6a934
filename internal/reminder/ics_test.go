package reminder_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/reminder"
)

func TestExportThenParse(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)
	reminders := []model.Reminder{
		{
			ID:       3,
			Title:    "Feed shohin maple",
			Message:  "Half strength fertilizer",
			Category: model.CategoryFertilizing,
			DueDate:  day(t, "2026-11-01"),
			RRule:    "FREQ=WEEKLY;INTERVAL=2",
		},
		{ID: 4, Title: "Repot juniper", DueDate: day(t, "2027-03-15")},
		{ID: 5, Title: "Someday"},
	}

	out := reminder.ExportICS(reminders, now)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:reminder-3@bonsaikeeper")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;INTERVAL=2")
	assert.NotContains(t, out, "Someday")

	parsed, err := reminder.ParseICS(reminder.Source{ID: "export"}, []byte(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	first := parsed[0]
	assert.Equal(t, "reminder-3@bonsaikeeper", first.UID)
	assert.Equal(t, "export", first.SourceID)
	assert.Equal(t, "Feed shohin maple", first.Title)
	assert.Equal(t, "Half strength fertilizer", first.Message)
	assert.Equal(t, "fertilizing", first.Category)
	assert.Equal(t, "2026-11-01", first.DueDate.String())
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2", first.RRule)
	assert.Zero(t, first.ID)

	assert.Equal(t, "Repot juniper", parsed[1].Title)
	assert.Equal(t, "2027-03-15", parsed[1].DueDate.String())
	assert.Empty(t, parsed[1].RRule)
}

func TestParseICSFeed(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//club//workshops//EN",
		"BEGIN:VEVENT",
		"UID:w1@club.example",
		"DTSTAMP:20261001T000000Z",
		"DTSTART:20261024T230000Z",
		"SUMMARY:Autumn styling workshop",
		"CATEGORIES:Pruning,Wiring",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:w2@club.example",
		"DTSTAMP:20261001T000000Z",
		"DTSTART;TZID=Europe/Berlin:20261107T100000",
		"SUMMARY:Repotting clinic",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:w3@club.example",
		"DTSTAMP:20261001T000000Z",
		"DTSTART;VALUE=DATE:20261201",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	got, err := reminder.ParseICS(reminder.Source{ID: "club"}, []byte(body))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "2026-10-24", got[0].DueDate.String())
	assert.Equal(t, "pruning", got[0].Category)
	assert.Equal(t, "club", got[0].SourceID)

	assert.Equal(t, "w2@club.example", got[1].UID)
	assert.Equal(t, "2026-11-07", got[1].DueDate.String())
}

func TestParseICSEmpty(t *testing.T) {
	t.Parallel()

	_, err := reminder.ParseICS(reminder.Source{ID: "x"}, []byte("  \n"))
	require.ErrorIs(t, err, reminder.ErrEmptyBody)

	_, err = reminder.ParseICS(reminder.Source{ID: "x"}, []byte("not a calendar"))
	require.Error(t, err)
}
