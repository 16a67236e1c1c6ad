package availability

import (
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSeriesLength caps how many slots one recurrence request may expand to.
const MaxSeriesLength = 366

// ParsePattern accepts the pattern names case-insensitively. An empty name
// means a single slot.
func ParsePattern(raw string) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "none":
		return PatternNone, nil
	case "weekly":
		return PatternWeekly, nil
	case "biweekly":
		return PatternBiWeekly, nil
	default:
		return "", ErrUnknownRecurrencePattern
	}
}

// step is the distance between two occurrences of the pattern, zero for
// single slots.
func (p Pattern) step() (days int, err error) {
	switch p {
	case "", PatternNone:
		return 0, nil
	case PatternWeekly:
		return 7, nil
	case PatternBiWeekly:
		return 14, nil
	default:
		return 0, ErrUnknownRecurrencePattern
	}
}

// Occurrences validates req and returns the slots it expands to. The
// sequence is lazy and can be ranged over more than once; every pass yields
// the same slots, all sharing one series id.
func Occurrences(req CreateRequest) (iter.Seq[Slot], error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrInvalidTimeRange
	}

	days, err := req.RecurrencePattern.step()
	if err != nil {
		return nil, err
	}

	if days == 0 {
		single := Slot{
			DoctorID:  req.DoctorID,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		return func(yield func(Slot) bool) {
			yield(single)
		}, nil
	}

	if req.RecurrenceEndDate == nil {
		return nil, ErrRecurrenceEndDateRequired
	}

	// The end date is a calendar day, read as written and never shifted into
	// the start time's zone. Occurrences starting on that day are included.
	loc := req.StartTime.Location()
	endDay := *req.RecurrenceEndDate
	limit := time.Date(endDay.Year(), endDay.Month(), endDay.Day()+1, 0, 0, 0, 0, loc)

	if !req.StartTime.Before(limit) {
		return nil, ErrRecurrenceEndBeforeStart
	}

	count := 0
	for start := req.StartTime; start.Before(limit); start = start.AddDate(0, 0, days) {
		count++
		if count > MaxSeriesLength {
			return nil, ErrSeriesTooLong
		}
	}

	pattern := req.RecurrencePattern
	endDate := *req.RecurrenceEndDate
	seriesID := uuid.New()

	return func(yield func(Slot) bool) {
		start, end := req.StartTime, req.EndTime
		for start.Before(limit) {
			slot := Slot{
				DoctorID:          req.DoctorID,
				StartTime:         start,
				EndTime:           end,
				RecurrencePattern: &pattern,
				RecurrenceEndDate: &endDate,
				SeriesID:          &seriesID,
			}
			if !yield(slot) {
				return
			}
			start = start.AddDate(0, 0, days)
			end = end.AddDate(0, 0, days)
		}
	}, nil
}
