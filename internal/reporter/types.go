// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains host information.
type HardwareSummary struct {
	Hostname string
}

// ScanSummary describes the frame catalog after scanning.
type ScanSummary struct {
	Roots        []string
	FrameCount   int
	SkippedFiles int
	FirstFrame   time.Time
	LastFrame    time.Time
}

// WindowSummary describes the sunrise-anchored capture window.
type WindowSummary struct {
	Days       int
	StartLocal time.Time
	EndUTC     time.Time
	FramesIn   int
}

// SelectionSummary describes grid selection results.
type SelectionSummary struct {
	GridPoints    int
	Selected      int
	StepMinutes   uint
	ToleranceSecs uint
}

// BuildOutcome contains final assembly results.
type BuildOutcome struct {
	OutputPath  string
	OutputSize  uint64
	Used        int
	Skipped     int
	SkipReasons map[string]int
	FirstUsed   time.Time
	LastUsed    time.Time
	FPS         uint
	Elapsed     time.Duration
}

// FetchOutcome describes one stored snapshot.
type FetchOutcome struct {
	Path       string
	MirrorPath string
	Size       int64
	CapturedAt time.Time
}

// OrganizeSummary describes one weekly organize pass.
type OrganizeSummary struct {
	Scanned   int
	Moved     int
	Unchanged int
	Skipped   int
	AuditPath string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}
