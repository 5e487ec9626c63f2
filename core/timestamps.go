package core

import (
	"fmt"
	"time"
)

// DateLayout is the format of datePostedString.
const DateLayout = "2006-01-02"

// DateFromUnix returns the UTC calendar date of a Unix timestamp in seconds.
func DateFromUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(DateLayout)
}

// UnixFromDate returns the Unix timestamp of midnight UTC on the given date.
func UnixFromDate(date string) (int64, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.Unix(), nil
}

// RepairTimestamps makes time and datePostedString agree to the day.
// time wins when both are present and disagree. It reports whether the
// record was changed; ErrMissingTimestamp means neither field was usable.
func RepairTimestamps(r *PropertyRecord) (bool, error) {
	if r.Time != nil {
		derived := DateFromUnix(*r.Time)
		if r.DatePostedString == derived {
			return false, nil
		}
		r.DatePostedString = derived
		return true, nil
	}
	if r.DatePostedString == "" {
		return false, ErrMissingTimestamp
	}
	sec, err := UnixFromDate(r.DatePostedString)
	if err != nil {
		r.DatePostedString = ""
		return false, fmt.Errorf("%w: %w", ErrMissingTimestamp, err)
	}
	r.Time = &sec
	return true, nil
}
