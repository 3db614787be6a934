package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonsaikeeper/internal/calendar"
)

func mustParse(t *testing.T, s string) calendar.Date {
	t.Helper()

	d, ok := calendar.Parse(s)
	require.True(t, ok, "parse %q", s)

	return d
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2024-02-29",
		"2023-12-31",
		"2000-01-01",
		"1999-06-15",
		"0099-03-07",
		"9999-12-31",
	} {
		d, ok := calendar.Parse(s)
		require.True(t, ok, "parse %q", s)
		assert.Equal(t, s, calendar.Format(d))
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"",
		"   ",
		"2024-02-30",
		"2023-02-29",
		"2024-04-31",
		"2024-13-01",
		"2024-00-10",
		"2024-01-00",
		"2024-01-32",
		"2024-01",
		"2024/01/01",
		"abcd-01-01",
		"2024-xx-01",
		"2024-01-01-05",
		"0000-01-01",
	} {
		_, ok := calendar.Parse(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestFromTimeNormalizesToDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*3600)
	d, ok := calendar.FromTime(time.Date(2024, time.March, 15, 23, 59, 0, 0, loc))
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", d.String())

	_, ok = calendar.FromTime(time.Time{})
	assert.False(t, ok)
}

func TestBuildMonthShape(t *testing.T) {
	t.Parallel()

	for year := 2019; year <= 2028; year++ {
		for m := time.January; m <= time.December; m++ {
			g := calendar.BuildMonth(year, m)

			require.Len(t, g, calendar.GridSize)
			assert.Equal(t, time.Sunday, g[0].Date.Time(time.UTC).Weekday(), "%d-%02d", year, m)

			inMonth := 0
			for i, c := range g {
				if c.InCurrentMonth {
					inMonth++
				}
				if i > 0 {
					assert.Equal(t, g[i-1].Date.AddDays(1), c.Date, "cells must be consecutive")
				}
			}
			assert.Equal(t, calendar.YearMonth{Year: year, Month: m}.Days(), inMonth, "%d-%02d", year, m)
		}
	}
}

func TestBuildMonthFebruary(t *testing.T) {
	t.Parallel()

	count := func(g calendar.Grid) int {
		n := 0
		for _, c := range g {
			if c.InCurrentMonth {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 29, count(calendar.BuildMonth(2024, time.February)))
	assert.Equal(t, 28, count(calendar.BuildMonth(2023, time.February)))
}

func TestBuildMonthSpillsIntoNeighbours(t *testing.T) {
	t.Parallel()

	// March 2024 starts on a Friday: five days of February lead.
	g := calendar.BuildMonth(2024, time.March)

	assert.Equal(t, "2024-02-25", g[0].Date.String())
	assert.False(t, g[0].InCurrentMonth)
	assert.Equal(t, "2024-03-01", g[5].Date.String())
	assert.True(t, g[5].InCurrentMonth)
	assert.Equal(t, "2024-04-06", g[41].Date.String())
	assert.False(t, g[41].InCurrentMonth)
}

func TestBuildMonthNormalizesOverflow(t *testing.T) {
	t.Parallel()

	assert.Equal(t, calendar.BuildMonth(2025, time.January), calendar.BuildMonth(2024, 13))
}

func TestBoundsNavigation(t *testing.T) {
	t.Parallel()

	b := calendar.NewBounds(mustParse(t, "2024-03-10"), mustParse(t, "2024-06-05"))

	march := calendar.YearMonth{Year: 2024, Month: time.March}
	june := calendar.YearMonth{Year: 2024, Month: time.June}

	assert.False(t, b.CanStepBack(march))
	assert.True(t, b.CanStepForward(march))
	assert.True(t, b.CanStepBack(june))
	assert.False(t, b.CanStepForward(june))

	open := calendar.Bounds{}
	assert.True(t, open.CanStepBack(march))
	assert.True(t, open.CanStepForward(june))
}

func TestBoundsClamp(t *testing.T) {
	t.Parallel()

	b := calendar.NewBounds(mustParse(t, "2020-05-10"), mustParse(t, "2022-02-01"))

	cases := []struct {
		in, want calendar.YearMonth
	}{
		{calendar.YearMonth{Year: 2018, Month: time.December}, calendar.YearMonth{Year: 2020, Month: time.May}},
		{calendar.YearMonth{Year: 2020, Month: time.January}, calendar.YearMonth{Year: 2020, Month: time.May}},
		{calendar.YearMonth{Year: 2021, Month: time.July}, calendar.YearMonth{Year: 2021, Month: time.July}},
		{calendar.YearMonth{Year: 2022, Month: time.March}, calendar.YearMonth{Year: 2022, Month: time.February}},
		{calendar.YearMonth{Year: 2030, Month: time.January}, calendar.YearMonth{Year: 2022, Month: time.February}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, b.Clamp(tc.in), "clamp %s", tc.in)
	}
}

func TestBoundsSwapsInvertedRange(t *testing.T) {
	t.Parallel()

	b := calendar.NewBounds(mustParse(t, "2025-01-01"), mustParse(t, "2024-01-01"))

	assert.Equal(t, "2024-01-01", b.Min.String())
	assert.Equal(t, "2025-01-01", b.Max.String())
	assert.True(t, b.Contains(mustParse(t, "2024-07-04")))
}

func TestBoundsContains(t *testing.T) {
	t.Parallel()

	b := calendar.ParseBounds("2024-03-10", "not-a-date")

	assert.False(t, b.Contains(mustParse(t, "2024-03-09")))
	assert.True(t, b.Contains(mustParse(t, "2024-03-10")))
	assert.True(t, b.Contains(mustParse(t, "2100-01-01")))
	assert.False(t, b.Contains(calendar.Date{}))
}

func TestYearRange(t *testing.T) {
	t.Parallel()

	today := mustParse(t, "2026-10-18")

	cases := []struct {
		name       string
		bounds     calendar.Bounds
		selected   calendar.Date
		start, end int
	}{
		{"fallback", calendar.Bounds{}, calendar.Date{}, 1966, 2046},
		{"bounded", calendar.ParseBounds("2010-01-01", "2030-12-31"), calendar.Date{}, 2010, 2030},
		{"selected below min", calendar.ParseBounds("2010-01-01", ""), mustParse(t, "2001-05-05"), 2001, 2046},
		{"selected above fallback", calendar.Bounds{}, mustParse(t, "2080-01-01"), 1966, 2080},
		{"min past fallback end", calendar.ParseBounds("2050-01-01", ""), calendar.Date{}, 2046, 2050},
	}
	for _, tc := range cases {
		start, end := calendar.YearRange(tc.bounds, tc.selected, today, 0, 0)
		assert.Equal(t, tc.start, start, tc.name)
		assert.Equal(t, tc.end, end, tc.name)
	}

	years := calendar.Years(calendar.ParseBounds("2020-01-01", "2023-01-01"), calendar.Date{}, today, 0, 0)
	if diff := cmp.Diff([]int{2020, 2021, 2022, 2023}, years); diff != "" {
		t.Fatalf("years mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatDisplay(t *testing.T) {
	t.Parallel()

	d := mustParse(t, "2024-03-15")

	assert.Equal(t, "Mar 15, 2024", calendar.FormatDisplay(d, "en-US"))
	assert.Equal(t, "Mar 15, 2024", calendar.FormatDisplay(d, "xx-YY"))
	assert.Equal(t, "15 Mar 2024", calendar.FormatDisplay(d, "en_gb"))
	assert.Empty(t, calendar.FormatDisplay(calendar.Date{}, "en-US"))
}

func TestLabels(t *testing.T) {
	t.Parallel()

	months := calendar.MonthLabels("en-US")
	require.Len(t, months, 12)
	assert.Equal(t, "January", months[0])
	assert.Equal(t, "December", months[11])

	weekdays := calendar.WeekdayLabels("")
	if diff := cmp.Diff([]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, weekdays); diff != "" {
		t.Fatalf("weekday labels mismatch (-want +got):\n%s", diff)
	}
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Due calendar.Date `json:"due"`
	}

	b, err := json.Marshal(payload{Due: mustParse(t, "2024-05-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2024-05-01"}`, string(b))

	b, err = json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":null}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2024-12-24"}`), &p))
	assert.Equal(t, "2024-12-24", p.Due.String())

	require.NoError(t, json.Unmarshal([]byte(`{"due":""}`), &p))
	assert.True(t, p.Due.IsZero())

	err = json.Unmarshal([]byte(`{"due":"2024-02-30"}`), &p)
	require.ErrorIs(t, err, calendar.ErrInvalidDate)
}

func TestDateScan(t *testing.T) {
	t.Parallel()

	var d calendar.Date
	require.NoError(t, d.Scan("2024-01-31"))
	assert.Equal(t, "2024-01-31", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	require.ErrorIs(t, d.Scan(42), calendar.ErrInvalidDate)

	v, err := calendar.Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
