// Package sun anchors timelapse capture windows to the local sunrise.
package sun

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// fallbackHour is the local hour used when no sunrise occurs on the anchor
// day, as happens during polar night.
const fallbackHour = 6

// Site is a camera location for sunrise computations.
type Site struct {
	Latitude  float64
	Longitude float64
	TZ        *time.Location
}

// Sunrise returns the local sunrise on the calendar day of day. Days without
// a sunrise fall back to 06:00 local time.
func (s Site) Sunrise(day time.Time) time.Time {
	day = day.In(s.TZ)
	rise, _ := sunrise.SunriseSunset(s.Latitude, s.Longitude, day.Year(), day.Month(), day.Day())
	if rise.IsZero() {
		return time.Date(day.Year(), day.Month(), day.Day(), fallbackHour, 0, 0, 0, s.TZ)
	}
	return rise.In(s.TZ)
}

// Window is the UTC span of frames that enter a run, bounds inclusive.
type Window struct {
	StartUTC   time.Time
	EndUTC     time.Time
	StartLocal time.Time
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.StartUTC) && !ts.After(w.EndUTC)
}

// LastDays computes the capture window covering the most recent days full
// calendar days. The window opens lead before sunrise on the earliest of
// those days and closes at latest, the newest frame timestamp on disk.
func (s Site) LastDays(now, latest time.Time, days int, lead time.Duration) Window {
	nowLocal := now.In(s.TZ)
	anchor := time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, s.TZ).AddDate(0, 0, -days)
	startLocal := s.Sunrise(anchor).Add(-lead)
	return Window{
		StartUTC:   startLocal.UTC(),
		EndUTC:     latest.UTC(),
		StartLocal: startLocal,
	}
}
