package utils

import (
	"testing"
	"time"
)

// June 2025 is eastern daylight time, UTC-4.
func easternJune(day, hour, minute int) time.Time {
	return time.Date(2025, time.June, day, hour+4, minute, 0, 0, time.UTC)
}

func TestDetectPhaseWeekday(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want Phase
	}{
		{"overnight", easternJune(3, 2, 0), PhaseOvernightResearch},
		{"pre-market", easternJune(3, 7, 0), PhasePreMarket},
		{"opening window start", easternJune(3, 9, 30), PhaseOpeningWindow},
		{"opening window end", easternJune(3, 9, 59), PhaseOpeningWindow},
		{"intraday", easternJune(3, 14, 0), PhaseIntraday},
		{"after hours", easternJune(3, 17, 30), PhaseAfterHours},
		{"late evening", easternJune(3, 21, 0), PhaseOvernightResearch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectPhase(tc.at); got != tc.want {
				t.Fatalf("phase at %v = %s, expected %s", tc.at, got, tc.want)
			}
		})
	}
}

func TestDetectPhaseWeekendClosed(t *testing.T) {
	// 2025-06-07 is a Saturday.
	if got := DetectPhase(easternJune(7, 14, 0)); got != PhaseClosed {
		t.Fatalf("Saturday midday = %s, expected closed", got)
	}
}

func TestDetectPhaseHolidayClosed(t *testing.T) {
	// Independence Day 2025 falls on a Friday.
	july4 := time.Date(2025, time.July, 4, 18, 0, 0, 0, time.UTC)
	if got := DetectPhase(july4); got != PhaseClosed {
		t.Fatalf("July 4th = %s, expected closed", got)
	}
}

func TestIsMarketHolidayCalculatedDates(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
	}{
		{"mlk day 2025", time.Date(2025, time.January, 20, 12, 0, 0, 0, time.UTC)},
		{"memorial day 2025", time.Date(2025, time.May, 26, 12, 0, 0, 0, time.UTC)},
		{"labor day 2025", time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)},
		{"thanksgiving 2025", time.Date(2025, time.November, 27, 12, 0, 0, 0, time.UTC)},
		{"christmas 2025", time.Date(2025, time.December, 25, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !IsMarketHoliday(tc.at) {
				t.Fatalf("%v should be a market holiday", tc.at)
			}
		})
	}

	if IsMarketHoliday(time.Date(2025, time.June, 3, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("an ordinary Tuesday is not a holiday")
	}
}
