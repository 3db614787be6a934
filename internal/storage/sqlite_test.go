package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/storage"
)

func newStore(t *testing.T) *storage.Storage {
	t.Helper()

	s, err := storage.New(filepath.Join(t.TempDir(), "db", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func due(t *testing.T, s string) calendar.Date {
	t.Helper()

	d, ok := calendar.Parse(s)
	require.True(t, ok)

	return d
}

func TestSpeciesCRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)

	maple := &model.Species{CommonName: "Trident maple", ScientificName: "Acer buergerianum", CareInstructions: "## Light"}
	require.NoError(t, s.CreateSpecies(ctx, maple))
	require.NotZero(t, maple.ID)

	juniper := &model.Species{CommonName: "Chinese juniper"}
	require.NoError(t, s.CreateSpecies(ctx, juniper))

	got, err := s.GetSpecies(ctx, maple.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acer buergerianum", got.ScientificName)
	assert.Equal(t, "## Light", got.CareInstructions)

	list, err := s.ListSpecies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Chinese juniper", list[0].CommonName)

	maple.Description = "Vigorous, forgiving."
	require.NoError(t, s.UpdateSpecies(ctx, maple))
	got, err = s.GetSpecies(ctx, maple.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vigorous, forgiving.", got.Description)

	require.NoError(t, s.DeleteSpecies(ctx, maple.ID))
	_, err = s.GetSpecies(ctx, maple.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, s.DeleteSpecies(ctx, maple.ID), storage.ErrNotFound)
	require.ErrorIs(t, s.UpdateSpecies(ctx, maple), storage.ErrNotFound)
}

func TestReminderCRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)

	undated := &model.Reminder{Title: "Check wire bite", Category: model.CategoryWiring}
	require.NoError(t, s.CreateReminder(ctx, undated))

	later := &model.Reminder{Title: "Repot", DueDate: due(t, "2027-03-01"), Category: model.CategoryRepotting}
	require.NoError(t, s.CreateReminder(ctx, later))

	sooner := &model.Reminder{
		Title:    "Feed",
		TreeName: "Shohin maple",
		DueDate:  due(t, "2026-11-01"),
		RRule:    "FREQ=WEEKLY;INTERVAL=2",
	}
	require.NoError(t, s.CreateReminder(ctx, sooner))

	list, err := s.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Feed", "Repot", "Check wire bite"}, []string{list[0].Title, list[1].Title, list[2].Title})
	assert.Equal(t, "2026-11-01", list[0].DueDate.String())
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2", list[0].RRule)
	assert.True(t, list[2].DueDate.IsZero())
	assert.Nil(t, list[0].NotifiedAt)

	sooner.Read = true
	require.NoError(t, s.UpdateReminder(ctx, sooner))

	at := time.Date(2026, time.November, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkNotified(ctx, sooner.ID, at))

	got, err := s.GetReminder(ctx, sooner.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
	require.NotNil(t, got.NotifiedAt)
	assert.True(t, at.Equal(*got.NotifiedAt))

	require.NoError(t, s.DeleteReminder(ctx, sooner.ID))
	_, err = s.GetReminder(ctx, sooner.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, s.MarkNotified(ctx, sooner.ID, at), storage.ErrNotFound)
}
