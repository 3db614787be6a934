package calendar

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// DefaultLocale is used for display labels when no locale or an unknown
// locale is requested.
const DefaultLocale = "en-US"

// displayLayouts holds the medium date layout per supported locale. Month
// and weekday names in these layouts are translated by monday.
var displayLayouts = map[monday.Locale]string{
	monday.LocaleEnUS: "Jan 2, 2006",
	monday.LocaleEnGB: "2 Jan 2006",
	monday.LocaleDeDE: "2. Jan 2006",
	monday.LocaleFrFR: "2 Jan 2006",
	monday.LocaleEsES: "2 Jan 2006",
	monday.LocaleItIT: "2 Jan 2006",
	monday.LocaleNlNL: "2 Jan 2006",
}

// resolveLocale accepts "en-US", "en_US" or "en_us" style tags.
func resolveLocale(locale string) monday.Locale {
	tag := strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
	if i := strings.IndexByte(tag, '_'); i > 0 {
		tag = strings.ToLower(tag[:i]) + "_" + strings.ToUpper(tag[i+1:])
	}
	if _, ok := displayLayouts[monday.Locale(tag)]; ok {
		return monday.Locale(tag)
	}
	return monday.LocaleEnUS
}

// FormatDisplay renders d as a short human-readable label such as
// "Mar 15, 2024". The zero Date renders as "".
func FormatDisplay(d Date, locale string) string {
	if d.IsZero() {
		return ""
	}
	loc := resolveLocale(locale)
	return monday.Format(d.Time(time.UTC), displayLayouts[loc], loc)
}

// MonthLabels returns the twelve full month names, January first.
func MonthLabels(locale string) []string {
	loc := resolveLocale(locale)
	out := make([]string, 12)
	for i := range out {
		t := time.Date(2000, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		out[i] = monday.Format(t, "January", loc)
	}
	return out
}

// WeekdayLabels returns abbreviated weekday names, Sunday first, matching
// the column order of Grid.
func WeekdayLabels(locale string) []string {
	loc := resolveLocale(locale)
	// 2000-01-02 was a Sunday.
	start := time.Date(2000, time.January, 2, 0, 0, 0, 0, time.UTC)
	out := make([]string, 7)
	for i := range out {
		out[i] = monday.Format(start.AddDate(0, 0, i), "Mon", loc)
	}
	return out
}
