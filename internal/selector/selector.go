// Package selector matches cataloged frames to timelapse grid instants.
package selector

import (
	"sort"
	"time"

	"github.com/sierracams/snowlapse/internal/catalog"
	"github.com/sierracams/snowlapse/internal/timegrid"
)

// Pick pairs a grid instant with the frame chosen for it.
type Pick struct {
	GridPoint time.Time
	Frame     catalog.Frame
}

// TimeOfDayPick pairs a second-of-day slot with the frame chosen for it.
type TimeOfDayPick struct {
	Slot  int
	Frame catalog.Frame
}

// Select matches each grid instant to the nearest frame within tolerance.
// Frames map one to one with grid points: once chosen, a frame is excluded
// for every later instant. Equal distances resolve to the chronologically
// earlier frame. Instants with no candidate in range produce no pick.
// Frames must be ordered by timestamp.
func Select(frames []catalog.Frame, grid []time.Time, tol time.Duration) []Pick {
	var picks []Pick
	used := make(map[string]bool, len(grid))

	for _, g := range grid {
		lower := g.Add(-tol)
		upper := g.Add(tol)

		// First frame at or after the window start
		start := sort.Search(len(frames), func(i int) bool {
			return !frames[i].Timestamp.Before(lower)
		})

		bestIdx := -1
		var bestDist time.Duration
		for i := start; i < len(frames) && !frames[i].Timestamp.After(upper); i++ {
			if used[frames[i].Path] {
				continue
			}
			dist := absDuration(frames[i].Timestamp.Sub(g))
			if bestIdx == -1 || dist < bestDist ||
				(dist == bestDist && frames[i].Timestamp.Before(frames[bestIdx].Timestamp)) {
				bestIdx = i
				bestDist = dist
			}
		}
		if bestIdx == -1 {
			continue
		}

		used[frames[bestIdx].Path] = true
		picks = append(picks, Pick{GridPoint: g, Frame: frames[bestIdx]})
	}
	return picks
}

// SelectTimeOfDay matches each second-of-day slot to the nearest frame,
// measuring distance on a 24 hour circle so frames shortly after midnight
// can serve slots shortly before it. With forbidRepeatDay set, a frame
// from a different local calendar day than the previous pick is preferred
// whenever one is in range. Frames map one to one with slots; slots with
// no candidate produce no pick.
func SelectTimeOfDay(frames []catalog.Frame, slots []int, tol time.Duration, loc *time.Location, forbidRepeatDay bool) []TimeOfDayPick {
	type candidate struct {
		frame catalog.Frame
		sod   int
		day   string
	}
	cands := make([]candidate, len(frames))
	for i, f := range frames {
		local := f.Timestamp.In(loc)
		cands[i] = candidate{
			frame: f,
			sod:   local.Hour()*3600 + local.Minute()*60 + local.Second(),
			day:   local.Format("2006-01-02"),
		}
	}

	tolSec := int(tol / time.Second)
	var picks []TimeOfDayPick
	used := make(map[string]bool, len(slots))
	lastDay := ""

	for _, slot := range slots {
		var best, bestNotLast *candidate
		var bestDelta, bestNotLastDelta int

		for i := range cands {
			c := &cands[i]
			if used[c.frame.Path] {
				continue
			}
			delta := wrappedDelta(c.sod, slot)
			if delta > tolSec {
				continue
			}
			if best == nil || delta < bestDelta ||
				(delta == bestDelta && c.frame.Timestamp.Before(best.frame.Timestamp)) {
				best = c
				bestDelta = delta
			}
			if c.day != lastDay {
				if bestNotLast == nil || delta < bestNotLastDelta ||
					(delta == bestNotLastDelta && c.frame.Timestamp.Before(bestNotLast.frame.Timestamp)) {
					bestNotLast = c
					bestNotLastDelta = delta
				}
			}
		}

		chosen := best
		if forbidRepeatDay && bestNotLast != nil {
			chosen = bestNotLast
		}
		if chosen == nil {
			continue
		}

		used[chosen.frame.Path] = true
		lastDay = chosen.day
		picks = append(picks, TimeOfDayPick{Slot: slot, Frame: chosen.frame})
	}
	return picks
}

// wrappedDelta is the distance in seconds between a frame's second-of-day
// and a slot on a 24 hour circle.
func wrappedDelta(sod, slot int) int {
	delta := absInt(sod - slot)
	if d := absInt(sod + timegrid.SecondsPerDay - slot); d < delta {
		delta = d
	}
	if d := absInt(sod - timegrid.SecondsPerDay - slot); d < delta {
		delta = d
	}
	return delta
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
