// Package snowlapse provides a Go library for turning webcam snapshot
// archives into timelapse videos.
//
// Snowlapse downloads webcam snapshots, files them into ISO week folders
// and assembles the recent ones into an MP4 timelapse with ffmpeg. Frames
// are aligned on a fixed time grid and obviously broken captures, such as
// all-black night shots or half-transferred images, are screened out.
//
// Basic usage:
//
//	tl, err := snowlapse.New([]string{"frames"}, "timelapses",
//	    snowlapse.WithStepMinutes(5),
//	    snowlapse.WithWindowDays(7),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := tl.Build(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Saved %s with %d frames\n", result.OutputPath, result.UsedFrames)
package snowlapse

import (
	"context"
	"time"

	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/pipeline"
	"github.com/sierracams/snowlapse/internal/reporter"
)

// Re-export the build mode type
type Mode = config.Mode

const (
	// ModeWindow selects frames on a fixed UTC grid inside the capture window.
	ModeWindow = config.ModeWindow

	// ModeAllFrames uses every frame inside the capture window.
	ModeAllFrames = config.ModeAllFrames

	// ModeComposite folds the archive onto one synthetic day by time of day.
	ModeComposite = config.ModeComposite
)

// ParseMode converts a mode string to a Mode value.
// Valid values are "window", "all-frames", and "composite" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	return config.ParseMode(s)
}

// QualityConfig holds the frame screening thresholds.
type QualityConfig = config.QualityConfig

// DefaultQuality returns the default frame screening thresholds.
func DefaultQuality() QualityConfig {
	return config.DefaultQuality()
}

// Reporter receives progress events during operations.
type Reporter = reporter.Reporter

// Timelapse is the main entry point for timelapse operations.
type Timelapse struct {
	config *config.Config
}

// Result contains the result of a single timelapse build.
type Result struct {
	OutputPath    string
	OutputSize    uint64
	UsedFrames    int
	SkippedFrames int
	SkipReasons   map[string]int
	FirstUsed     time.Time
	LastUsed      time.Time
	Elapsed       time.Duration
}

// Snapshot contains the result of a single snapshot download.
type Snapshot struct {
	Path       string
	MirrorPath string
	Size       int64
	CapturedAt time.Time
}

// OrganizeResult contains the counts of one organize pass.
type OrganizeResult struct {
	Scanned   int
	Moved     int
	Unchanged int
	Skipped   int
}

// Option configures the timelapse.
type Option func(*config.Config)

// New creates a new Timelapse reading frames from frameRoots and writing
// videos to outputDir.
func New(frameRoots []string, outputDir string, opts ...Option) (*Timelapse, error) {
	cfg := config.NewConfig(frameRoots, outputDir, "")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Timelapse{config: cfg}, nil
}

// WithMode selects how frames are picked for the timelapse.
func WithMode(m Mode) Option {
	return func(c *config.Config) {
		c.Mode = m
	}
}

// WithStepMinutes sets the grid spacing in minutes.
func WithStepMinutes(mins uint) Option {
	return func(c *config.Config) {
		c.StepMinutes = mins
	}
}

// WithToleranceSecs sets how far from a grid instant a frame may be and
// still be used. Zero keeps the default of half the grid step.
func WithToleranceSecs(secs uint) Option {
	return func(c *config.Config) {
		c.ToleranceSecs = secs
	}
}

// WithFPS sets the playback frame rate of the assembled video.
func WithFPS(fps uint) Option {
	return func(c *config.Config) {
		c.FPS = fps
	}
}

// WithWindowDays sets how many days back the capture window opens.
func WithWindowDays(days uint) Option {
	return func(c *config.Config) {
		c.WindowDays = days
	}
}

// WithSunriseLead sets how many minutes before sunrise the window starts.
func WithSunriseLead(mins uint) Option {
	return func(c *config.Config) {
		c.SunriseLeadMins = mins
	}
}

// WithSite sets the camera coordinates and IANA timezone used for sunrise
// and local time computations.
func WithSite(latitude, longitude float64, timezone string) Option {
	return func(c *config.Config) {
		c.Latitude = latitude
		c.Longitude = longitude
		c.Timezone = timezone
	}
}

// WithDayStart sets the HH:MM local time where the composite day begins,
// also used as the window fallback when no sunrise occurs.
func WithDayStart(hhmm string) Option {
	return func(c *config.Config) {
		c.DayStart = hhmm
	}
}

// WithAllowRepeatDay lets consecutive composite slots pick frames from the
// same calendar day. By default the selection prefers a day change.
func WithAllowRepeatDay() Option {
	return func(c *config.Config) {
		c.ForbidRepeatDay = false
	}
}

// WithWindowOverride pins the capture window to explicit instants instead
// of the sunrise-derived span. A zero time leaves that bound computed.
func WithWindowOverride(from, to time.Time) Option {
	return func(c *config.Config) {
		if !from.IsZero() {
			c.FromOverride = from.Format(time.RFC3339)
		}
		if !to.IsZero() {
			c.ToOverride = to.Format(time.RFC3339)
		}
	}
}

// WithKeepStale leaves prior outputs carrying the run's name prefix in
// place instead of removing them before the encode.
func WithKeepStale() Option {
	return func(c *config.Config) {
		c.KeepStale = true
	}
}

// WithoutAudit skips the organize audit report.
func WithoutAudit() Option {
	return func(c *config.Config) {
		c.NoAudit = true
	}
}

// WithQuality replaces the frame screening thresholds.
func WithQuality(q QualityConfig) Option {
	return func(c *config.Config) {
		c.Quality = q
	}
}

// WithSnapshotURL sets the webcam snapshot endpoint for Fetch.
func WithSnapshotURL(url string) Option {
	return func(c *config.Config) {
		c.SnapshotURL = url
	}
}

// WithMirrorDir also writes every fetched snapshot into a flat mirror
// directory.
func WithMirrorDir(dir string) Option {
	return func(c *config.Config) {
		c.MirrorDir = dir
	}
}

// WithFilePrefix sets the filename prefix for downloaded snapshots.
func WithFilePrefix(prefix string) Option {
	return func(c *config.Config) {
		c.FilePrefix = prefix
	}
}

// WithCamera routes organized images whose names start with one of the
// prefixes into a per-camera folder.
func WithCamera(name string, prefixes ...string) Option {
	return func(c *config.Config) {
		c.Cameras = append(c.Cameras, config.CameraRoute{Name: name, Prefixes: prefixes})
	}
}

// WithShallowScan restricts the frame scan to the root folders themselves.
func WithShallowScan() Option {
	return func(c *config.Config) {
		c.Recursive = false
	}
}

// WithLogDir sets where run log files land.
func WithLogDir(dir string) Option {
	return func(c *config.Config) {
		c.LogDir = dir
	}
}

// Build assembles a timelapse from the cataloged frames. A nil reporter
// runs silently.
func (t *Timelapse) Build(ctx context.Context, rep Reporter) (*Result, error) {
	cfg := *t.config

	r, err := pipeline.Build(ctx, &cfg, rep, nil)
	if err != nil {
		return nil, err
	}

	return &Result{
		OutputPath:    r.OutputPath,
		OutputSize:    r.OutputSize,
		UsedFrames:    r.Used,
		SkippedFrames: r.Skipped,
		SkipReasons:   r.SkipReasons,
		FirstUsed:     r.FirstUsed,
		LastUsed:      r.LastUsed,
		Elapsed:       r.Elapsed,
	}, nil
}

// Fetch downloads one webcam snapshot into the weekly folder tree under
// the first frame root.
func (t *Timelapse) Fetch(ctx context.Context, rep Reporter) (*Snapshot, error) {
	cfg := *t.config

	r, err := pipeline.Fetch(ctx, &cfg, rep, nil)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Path:       r.Path,
		MirrorPath: r.MirrorPath,
		Size:       r.Size,
		CapturedAt: r.CapturedAt,
	}, nil
}

// Organize files timestamped images from the source folders into weekly
// folders under the first frame root. With no sources, the root itself is
// tidied in place.
func (t *Timelapse) Organize(ctx context.Context, sources []string, rep Reporter) (*OrganizeResult, error) {
	cfg := *t.config

	r, err := pipeline.Organize(ctx, &cfg, sources, rep, nil)
	if err != nil {
		return nil, err
	}

	return &OrganizeResult{
		Scanned:   r.Scanned,
		Moved:     len(r.Moved),
		Unchanged: len(r.Unchanged),
		Skipped:   len(r.Skipped),
	}, nil
}
