package capture_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonsaikeeper/internal/calendar"
	"bonsaikeeper/internal/capture"
)

func TestCalendarURL(t *testing.T) {
	t.Parallel()

	ym := calendar.NewYearMonth(2026, time.October)

	cases := []struct {
		listen string
		want   string
	}{
		{"127.0.0.1:8080", "http://127.0.0.1:8080/calendar?month=10&year=2026"},
		{":9000", "http://127.0.0.1:9000/calendar?month=10&year=2026"},
		{"0.0.0.0:8080", "http://127.0.0.1:8080/calendar?month=10&year=2026"},
		{"bonsai.lan:80", "http://bonsai.lan:80/calendar?month=10&year=2026"},
	}

	for _, tc := range cases {
		t.Run(tc.listen, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, capture.CalendarURL(tc.listen, ym))
		})
	}
}

func TestPreviewPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/var/lib/bonsaikeeper/preview.png", capture.PreviewPath("/var/lib/bonsaikeeper"))
}

func TestCalendarPNGValidatesOptions(t *testing.T) {
	t.Parallel()

	err := capture.CalendarPNG(context.Background(), capture.Options{OutputPath: "/tmp/x.png"})
	require.Error(t, err)

	err = capture.CalendarPNG(context.Background(), capture.Options{URL: "http://127.0.0.1/calendar"})
	require.Error(t, err)
}

func TestBasicAuthHeaders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]string{"Authorization": "Basic a2VlcGVyOm1vc3M="}, capture.BasicAuthHeaders("keeper", "moss"))
	assert.Nil(t, capture.BasicAuthHeaders("keeper", ""))
	assert.Nil(t, capture.BasicAuthHeaders("", ""))
}
