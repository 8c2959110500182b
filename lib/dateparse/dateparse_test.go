package dateparse

import (
	"testing"
	"time"

	"lms-scraper/lib/timezone"

	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, timezone.Location)
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		text     string
		expected time.Time
		ok       bool
	}{
		{text: "2026-03-15", expected: date(2026, time.March, 15), ok: true},
		{text: "15/03/2026", expected: date(2026, time.March, 15), ok: true},
		{text: "15-03-2026", expected: date(2026, time.March, 15), ok: true},
		{text: "15/03/26", expected: date(2026, time.March, 15), ok: true},
		{text: "March 15, 2026", expected: date(2026, time.March, 15), ok: true},
		{text: "15 March 2026", expected: date(2026, time.March, 15), ok: true},
		{text: "15 de marzo de 2026", expected: date(2026, time.March, 15), ok: true},
		{text: "2026-03-15 23:59:00", expected: date(2026, time.March, 15), ok: true},
		{text: "15/03/2026 23:59", expected: date(2026, time.March, 15), ok: true},
		// dates buried in prose go through the regex fallback
		{text: "Fecha de entrega: 15/03/2026 a las 23:59", expected: date(2026, time.March, 15), ok: true},
		{text: "due 2026-03-15 at midnight", expected: date(2026, time.March, 15), ok: true},
		// moodle's "no due date" sentinel
		{text: "31-12-1969", ok: false},
		{text: "1969-12-31", ok: false},
		{text: "entrega: 31-12-1969 19:00", ok: false},
		// out of the plausible year range
		{text: "2019-05-01", ok: false},
		{text: "01/05/2019", ok: false},
		{text: "2086-01-01", ok: false},
		// impossible calendar dates
		{text: "31/02/2026", ok: false},
		{text: "", ok: false},
		{text: "no date here", ok: false},
	}

	for _, test := range testCases {
		got, ok := Normalize(test.text)
		require.Equal(t, test.ok, ok, "text: %q", test.text)
		if test.ok {
			require.Equal(t, test.expected, got, "text: %q", test.text)
		}
	}
}

// for valid strings in the supported set, Normalize inverts the
// canonical rendering of the date
func TestNormalizeRoundTrip(t *testing.T) {
	dates := []time.Time{
		date(2024, time.January, 1),
		date(2025, time.July, 31),
		date(2026, time.December, 24),
	}
	layouts := []string{"2006-01-02", "02/01/2006", "January 2, 2006"}

	for _, d := range dates {
		for _, layout := range layouts {
			rendered := d.Format(layout)
			got, ok := Normalize(rendered)
			require.True(t, ok, "rendered: %q", rendered)
			require.Equal(t, d, got, "rendered: %q", rendered)
		}
	}
}

func TestTwoDigitYearPivot(t *testing.T) {
	got, ok := Normalize("entrega 05/06/49")
	require.True(t, ok)
	require.Equal(t, date(2049, time.June, 5), got)

	// >= 50 maps into the 1900s, which the range check then discards
	_, ok = Normalize("entrega 05/06/51")
	require.False(t, ok)
}

func TestExtractDateFromText(t *testing.T) {
	patterns := CompilePatterns([]string{
		`vence el (\d{1,2}/\d{1,2}/\d{4})`,
		`\d{4}-\d{2}-\d{2}`,
	})

	got, ok := ExtractDateFromText("La tarea vence el 15/03/2026 sin falta", patterns)
	require.True(t, ok)
	require.Equal(t, "15/03/2026", got)

	got, ok = ExtractDateFromText("deadline 2026-03-15 (hard)", patterns)
	require.True(t, ok)
	require.Equal(t, "2026-03-15", got)

	_, ok = ExtractDateFromText("nothing to see", patterns)
	require.False(t, ok)

	_, ok = ExtractDateFromText("anything", nil)
	require.False(t, ok)
}
