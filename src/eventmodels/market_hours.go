package eventmodels

import (
	"fmt"
	"time"
)

// ConvertToMarketClose shifts a date to the NYSE close (16:00 ET) of that day.
func ConvertToMarketClose(date time.Time) (time.Time, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("ConvertToMarketClose: failed to load New York location: %w", err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), 16, 0, 0, 0, loc), nil
}

// IsTradingWindowOpen reports whether t falls within the window the scanner
// trades in: Monday through Friday, 09:30 to 15:50 ET. The early cutoff
// avoids opening positions into the close.
func IsTradingWindowOpen(t time.Time) (bool, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return false, fmt.Errorf("IsTradingWindowOpen: failed to load New York location: %w", err)
	}

	et := t.In(loc)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return false, nil
	}

	minutes := et.Hour()*60 + et.Minute()

	return minutes >= 9*60+30 && minutes < 15*60+50, nil
}
