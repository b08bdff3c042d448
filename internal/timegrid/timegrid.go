// Package timegrid builds the instants a timelapse samples frames at.
package timegrid

import (
	"time"
)

// SecondsPerDay is the length of the synthetic day used by composite grids.
const SecondsPerDay = 86400

// AlignUp returns the smallest instant at or after t whose epoch seconds
// are a whole multiple of step. An already aligned t is returned truncated
// to the second.
func AlignUp(t time.Time, step time.Duration) time.Time {
	secs := int64(step / time.Second)
	epoch := t.Unix()
	rem := epoch % secs
	if rem == 0 {
		return time.Unix(epoch, 0).UTC()
	}
	return time.Unix(epoch+(secs-rem), 0).UTC()
}

// Build returns the aligned instants from start through end, step apart.
// The first point is the smallest aligned instant at or after start; the
// grid ends with the last point at or before end.
func Build(start, end time.Time, step time.Duration) []time.Time {
	var grid []time.Time
	for t := AlignUp(start, step); !t.After(end); t = t.Add(step) {
		grid = append(grid, t)
	}
	return grid
}

// BuildTimeOfDay returns second-of-day offsets covering exactly one
// synthetic day from startSec, wrapping past midnight. A step that does
// not divide the day stops at a safety cap instead of cycling forever.
func BuildTimeOfDay(startSec int, step time.Duration) []int {
	stepSec := int(step / time.Second)
	stepMin := int(step / time.Minute)
	if stepMin < 1 {
		stepMin = 1
	}
	maxPoints := 1440/stepMin + 10

	var grid []int
	s := startSec
	for len(grid) == 0 || (s-startSec)%SecondsPerDay != 0 {
		grid = append(grid, s%SecondsPerDay)
		s += stepSec
		if len(grid) > maxPoints {
			break
		}
	}
	return grid
}
