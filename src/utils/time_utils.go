package utils

import (
	"time"
)

// ----- scheduling phases -----

type Phase string

const (
	PhaseOvernightResearch Phase = "overnight_research"
	PhasePreMarket         Phase = "pre_market"
	PhaseOpeningWindow     Phase = "opening_window"
	PhaseIntraday          Phase = "intraday"
	PhaseAfterHours        Phase = "after_hours"
	PhaseClosed            Phase = "market_closed"

	DaysPerWeek          = 7
	OffsetDaysForNewYear = 1
	NewYearDay           = 1
	ThirdMondayOffset    = 2
	FourthThursdayOffset = 3
)

// EasternTime converts to New York time, the reference clock for every phase
// boundary. Falls back to UTC only if the tz database is missing.
func EasternTime(t time.Time) time.Time {
	nyLocation, err := time.LoadLocation("America/New_York")
	if err != nil {
		return t.UTC()
	}
	return t.In(nyLocation)
}

// DetectPhase buckets a moment into the scheduling phase it belongs to.
// Boundaries in NY time: pre-market 04.00-09.30, opening window 09.30-10.00,
// intraday 10.00-16.00, after hours 16.00-20.00, overnight otherwise.
// Weekends and market holidays are always closed.
func DetectPhase(t time.Time) Phase {
	et := EasternTime(t)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday || IsMarketHoliday(et) {
		return PhaseClosed
	}

	minuteOfDay := et.Hour()*60 + et.Minute()
	switch {
	case minuteOfDay >= 4*60 && minuteOfDay < 9*60+30:
		return PhasePreMarket
	case minuteOfDay >= 9*60+30 && minuteOfDay < 10*60:
		return PhaseOpeningWindow
	case minuteOfDay >= 10*60 && minuteOfDay < 16*60:
		return PhaseIntraday
	case minuteOfDay >= 16*60 && minuteOfDay < 20*60:
		return PhaseAfterHours
	default:
		return PhaseOvernightResearch
	}
}

// IsMarketHoliday reports whether the date is a US equity market holiday.
func IsMarketHoliday(t time.Time) bool {
	year := t.Year()

	// New Year's Day, observed Monday when it lands on a Sunday
	newYearsDay := time.Date(year, time.January, NewYearDay, 0, 0, 0, 0, time.UTC)
	if newYearsDay.Weekday() == time.Sunday {
		newYearsDay = newYearsDay.AddDate(0, 0, OffsetDaysForNewYear)
	}

	mlkDay := calculateSpecificMonday(year, time.January, ThirdMondayOffset)
	presidentsDay := calculateSpecificMonday(year, time.February, ThirdMondayOffset)

	// Memorial Day, last Monday of May
	memorialDay := time.Date(year, time.May, 31, 0, 0, 0, 0, time.UTC)
	for memorialDay.Weekday() != time.Monday {
		memorialDay = memorialDay.AddDate(0, 0, -1)
	}

	independenceDay := time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)
	if independenceDay.Weekday() == time.Sunday {
		independenceDay = independenceDay.AddDate(0, 0, OffsetDaysForNewYear)
	}

	laborDay := calculateSpecificMonday(year, time.September, 0)
	thanksgivingDay := calculateSpecificThursday(year, time.November, FourthThursdayOffset)

	christmasDay := time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)
	if christmasDay.Weekday() == time.Sunday {
		christmasDay = christmasDay.AddDate(0, 0, OffsetDaysForNewYear)
	}

	holidays := []time.Time{
		newYearsDay,
		mlkDay,
		presidentsDay,
		memorialDay,
		independenceDay,
		laborDay,
		thanksgivingDay,
		christmasDay,
	}
	return isDateAmong(t, holidays)
}

// calculateSpecificMonday calculates the specific Monday of a month (like the third Monday).
func calculateSpecificMonday(year int, month time.Month, mondayOffset int) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(time.Monday-firstOfMonth.Weekday()+DaysPerWeek) % DaysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+mondayOffset*DaysPerWeek)
}

// calculateSpecificThursday calculates the specific Thursday of a month (like the fourth Thursday).
func calculateSpecificThursday(year int, month time.Month, thursdayOffset int) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := int(time.Thursday-firstOfMonth.Weekday()+DaysPerWeek) % DaysPerWeek
	return firstOfMonth.AddDate(0, 0, offset+thursdayOffset*DaysPerWeek)
}

// isDateAmong checks if the given date matches any date in the list.
func isDateAmong(t time.Time, dates []time.Time) bool {
	for _, d := range dates {
		if t.Format("2006-01-02") == d.Format("2006-01-02") {
			return true
		}
	}
	return false
}
