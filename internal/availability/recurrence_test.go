package availability

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02T15:04", value)
	require.NoError(t, err)
	return parsed
}

func TestOccurrences_WeeklySeries(t *testing.T) {
	end := date(t, "2025-01-20T00:00")
	req := CreateRequest{
		DoctorID:          uuid.New(),
		StartTime:         date(t, "2025-01-06T09:00"),
		EndTime:           date(t, "2025-01-06T09:30"),
		RecurrencePattern: PatternWeekly,
		RecurrenceEndDate: &end,
	}

	seq, err := Occurrences(req)
	require.NoError(t, err)

	slots := slices.Collect(seq)
	require.Len(t, slots, 3)

	wantDays := []int{6, 13, 20}
	for i, slot := range slots {
		assert.Equal(t, wantDays[i], slot.StartTime.Day())
		assert.Equal(t, 9, slot.StartTime.Hour())
		assert.Equal(t, 30*time.Minute, slot.EndTime.Sub(slot.StartTime))
		assert.False(t, slot.IsBooked)
		require.NotNil(t, slot.SeriesID)
		assert.Equal(t, *slots[0].SeriesID, *slot.SeriesID)
		require.NotNil(t, slot.RecurrencePattern)
		assert.Equal(t, PatternWeekly, *slot.RecurrencePattern)
	}
}

func TestOccurrences_IsRestartable(t *testing.T) {
	end := date(t, "2025-03-31T00:00")
	seq, err := Occurrences(CreateRequest{
		DoctorID:          uuid.New(),
		StartTime:         date(t, "2025-01-06T09:00"),
		EndTime:           date(t, "2025-01-06T10:00"),
		RecurrencePattern: PatternBiWeekly,
		RecurrenceEndDate: &end,
	})
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 7)

	// Stopping early must not panic or leak.
	for range seq {
		break
	}
}

func TestOccurrences_SingleSlot(t *testing.T) {
	end := date(t, "2025-12-31T00:00")
	seq, err := Occurrences(CreateRequest{
		DoctorID:          uuid.New(),
		StartTime:         date(t, "2025-01-06T09:00"),
		EndTime:           date(t, "2025-01-06T09:30"),
		RecurrencePattern: PatternNone,
		RecurrenceEndDate: &end,
	})
	require.NoError(t, err)

	slots := slices.Collect(seq)
	require.Len(t, slots, 1)
	assert.Nil(t, slots[0].SeriesID)
	assert.Nil(t, slots[0].RecurrencePattern)
}

func TestOccurrences_Errors(t *testing.T) {
	start := date(t, "2025-01-06T09:00")
	before := date(t, "2025-01-05T00:00")
	farAway := date(t, "2040-01-01T00:00")

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{
			name: "end before start",
			req:  CreateRequest{StartTime: start, EndTime: start.Add(-time.Minute)},
			want: ErrInvalidTimeRange,
		},
		{
			name: "weekly without end date",
			req:  CreateRequest{StartTime: start, EndTime: start.Add(time.Hour), RecurrencePattern: PatternWeekly},
			want: ErrRecurrenceEndDateRequired,
		},
		{
			name: "unknown pattern",
			req:  CreateRequest{StartTime: start, EndTime: start.Add(time.Hour), RecurrencePattern: "Monthly"},
			want: ErrUnknownRecurrencePattern,
		},
		{
			name: "end date before first occurrence",
			req:  CreateRequest{StartTime: start, EndTime: start.Add(time.Hour), RecurrencePattern: PatternWeekly, RecurrenceEndDate: &before},
			want: ErrRecurrenceEndBeforeStart,
		},
		{
			name: "series too long",
			req:  CreateRequest{StartTime: start, EndTime: start.Add(time.Hour), RecurrencePattern: PatternWeekly, RecurrenceEndDate: &farAway},
			want: ErrSeriesTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Occurrences(tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParsePattern(t *testing.T) {
	for raw, want := range map[string]Pattern{
		"":         PatternNone,
		"None":     PatternNone,
		"weekly":   PatternWeekly,
		"BiWeekly": PatternBiWeekly,
	} {
		got, err := ParsePattern(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParsePattern("daily")
	assert.ErrorIs(t, err, ErrUnknownRecurrencePattern)
}

func TestOccurrences_EndDateIsACalendarDay(t *testing.T) {
	eastern := time.FixedZone("EST", -5*60*60)

	var body struct {
		End time.Time `json:"end"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"end":"2025-01-20T00:00:00Z"}`), &body))

	seq, err := Occurrences(CreateRequest{
		DoctorID:          uuid.New(),
		StartTime:         time.Date(2025, 1, 6, 9, 0, 0, 0, eastern),
		EndTime:           time.Date(2025, 1, 6, 9, 30, 0, 0, eastern),
		RecurrencePattern: PatternWeekly,
		RecurrenceEndDate: &body.End,
	})
	require.NoError(t, err)

	slots := slices.Collect(seq)
	require.Len(t, slots, 3)
	for i, day := range []int{6, 13, 20} {
		assert.Equal(t, day, slots[i].StartTime.Day())
		assert.Equal(t, 9, slots[i].StartTime.Hour())
	}
}
