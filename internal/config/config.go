// Package config provides configuration types and defaults for snowlapse.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default constants
const (
	// DefaultStepMinutes is the grid spacing in minutes.
	DefaultStepMinutes uint = 5

	// DefaultFPS is the playback frame rate of the assembled timelapse.
	DefaultFPS uint = 24

	// DefaultWindowDays is how many days back the capture window opens.
	DefaultWindowDays uint = 7

	// DefaultSunriseLeadMins is how many minutes before sunrise the window starts.
	DefaultSunriseLeadMins uint = 250

	// DefaultLatitude is the camera latitude (Pradollano, Sierra Nevada).
	DefaultLatitude float64 = 37.0870

	// DefaultLongitude is the camera longitude (Pradollano, Sierra Nevada).
	DefaultLongitude float64 = -3.3920

	// DefaultTimezone is the IANA timezone of the camera site.
	DefaultTimezone string = "Europe/Madrid"

	// DefaultDayStart is the fallback local day start when sunrise is unavailable.
	DefaultDayStart string = "05:00"

	// DefaultSnapshotURL is the webcam snapshot endpoint.
	DefaultSnapshotURL string = "https://recursos.sierranevada.es/_extras/fotos_camaras/pradollano/snap_c1.jpg"

	// DefaultFetchTimeoutSecs is the HTTP timeout for snapshot downloads.
	DefaultFetchTimeoutSecs uint = 25

	// DefaultFilePrefix is the filename prefix for downloaded snapshots.
	DefaultFilePrefix string = "image"

	// MaxStepMinutes is the largest useful grid spacing (one day).
	MaxStepMinutes uint = 1440

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix string = "SNOWLAPSE_"
)

// Quality threshold defaults
const (
	// DefaultMinDimension is the smallest acceptable frame edge in pixels.
	DefaultMinDimension uint = 100

	// DefaultMinStdDev is the minimum luma standard deviation for a usable frame.
	DefaultMinStdDev float64 = 8.0

	// DefaultBlackLumaMax is the highest luma counted as near-black.
	DefaultBlackLumaMax uint8 = 15

	// DefaultWhiteLumaMin is the lowest luma counted as near-white.
	DefaultWhiteLumaMin uint8 = 240

	// DefaultBlackRatioMax is the near-black pixel fraction that rejects a frame.
	DefaultBlackRatioMax float64 = 0.55

	// DefaultWhiteRatioMax is the near-white pixel fraction that rejects a frame.
	DefaultWhiteRatioMax float64 = 0.55

	// DefaultDominantBinMax is the single histogram bin fraction that rejects a frame.
	DefaultDominantBinMax float64 = 0.55

	// DefaultHalfDiffMax is the largest acceptable mean luma gap between image halves.
	DefaultHalfDiffMax float64 = 60.0

	// DefaultHalfBlankMax is the mean luma under which an image half counts as blank.
	DefaultHalfBlankMax float64 = 25.0

	// DefaultHalfWhiteMin is the mean luma over which an image half counts as washed out.
	DefaultHalfWhiteMin float64 = 230.0

	// DefaultLapVarMax is the Laplacian variance above which a frame counts as corrupted.
	DefaultLapVarMax float64 = 1e6
)

// Mode selects how build assembles the timelapse.
type Mode string

const (
	// ModeWindow selects frames on a fixed UTC grid inside the capture window.
	ModeWindow Mode = "window"

	// ModeAllFrames uses every cataloged frame inside the capture window.
	ModeAllFrames Mode = "all-frames"

	// ModeComposite folds the window onto one synthetic day by time of day.
	ModeComposite Mode = "composite"
)

// ParseMode parses a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "window":
		return ModeWindow, nil
	case "all-frames", "allframes":
		return ModeAllFrames, nil
	case "composite":
		return ModeComposite, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: window, all-frames, composite", ErrInvalidMode, s)
	}
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// UnmarshalText allows a Mode to be set from an environment variable.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// QualityConfig holds the frame quality thresholds.
type QualityConfig struct {
	MinDimension   uint    `env:"MIN_DIMENSION"`
	MinStdDev      float64 `env:"MIN_STDDEV"`
	BlackLumaMax   uint8   `env:"BLACK_LUMA_MAX"`
	WhiteLumaMin   uint8   `env:"WHITE_LUMA_MIN"`
	BlackRatioMax  float64 `env:"BLACK_RATIO_MAX"`
	WhiteRatioMax  float64 `env:"WHITE_RATIO_MAX"`
	DominantBinMax float64 `env:"DOMINANT_BIN_MAX"`
	HalfDiffMax    float64 `env:"HALF_DIFF_MAX"`
	HalfBlankMax   float64 `env:"HALF_BLANK_MAX"`
	HalfWhiteMin   float64 `env:"HALF_WHITE_MIN"`
	LapVarMax      float64 `env:"LAP_VAR_MAX"`
}

// DefaultQuality returns the default frame quality thresholds.
func DefaultQuality() QualityConfig {
	return QualityConfig{
		MinDimension:   DefaultMinDimension,
		MinStdDev:      DefaultMinStdDev,
		BlackLumaMax:   DefaultBlackLumaMax,
		WhiteLumaMin:   DefaultWhiteLumaMin,
		BlackRatioMax:  DefaultBlackRatioMax,
		WhiteRatioMax:  DefaultWhiteRatioMax,
		DominantBinMax: DefaultDominantBinMax,
		HalfDiffMax:    DefaultHalfDiffMax,
		HalfBlankMax:   DefaultHalfBlankMax,
		HalfWhiteMin:   DefaultHalfWhiteMin,
		LapVarMax:      DefaultLapVarMax,
	}
}

// CameraRoute maps filename prefixes to a camera folder.
type CameraRoute struct {
	Name     string
	Prefixes []string
}

// ParseCameraRoute parses a NAME=PREFIX[,PREFIX...] camera route.
func ParseCameraRoute(s string) (CameraRoute, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return CameraRoute{}, fmt.Errorf("%w: '%s', expected NAME=PREFIX[,PREFIX...]", ErrInvalidCameraRoute, s)
	}
	var prefixes []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return CameraRoute{}, fmt.Errorf("%w: '%s', expected NAME=PREFIX[,PREFIX...]", ErrInvalidCameraRoute, s)
	}
	return CameraRoute{Name: name, Prefixes: prefixes}, nil
}

// ParseDayStart parses an HH:MM day start into seconds after local midnight.
func ParseDayStart(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: '%s', expected HH:MM", ErrInvalidDayStart, s)
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}

// Config holds all configuration for timelapse processing.
type Config struct {
	// Input/output paths
	FrameRoots []string `env:"FRAME_ROOTS"`
	OutputDir  string   `env:"OUTPUT_DIR"`
	LogDir     string   `env:"LOG_DIR"`
	MirrorDir  string   `env:"MIRROR_DIR"` // Optional flat copy of fetched snapshots

	// Catalog options
	Recursive bool `env:"RECURSIVE"`

	// Grid parameters
	StepMinutes   uint `env:"STEP_MINUTES"`
	ToleranceSecs uint `env:"TOLERANCE_SECS"` // 0 means half the grid step
	FPS           uint `env:"FPS"`

	// Capture window
	WindowDays      uint    `env:"WINDOW_DAYS"`
	SunriseLeadMins uint    `env:"SUNRISE_LEAD_MINS"`
	Latitude        float64 `env:"LATITUDE"`
	Longitude       float64 `env:"LONGITUDE"`
	Timezone        string  `env:"TIMEZONE"`
	DayStart        string  `env:"DAY_START"`
	FromOverride    string  `env:"FROM"` // RFC 3339 instant replacing the sunrise-derived start
	ToOverride      string  `env:"TO"`   // RFC 3339 instant replacing the newest-frame end

	// Composite options
	ForbidRepeatDay bool `env:"FORBID_REPEAT_DAY"`

	// Output housekeeping
	KeepStale bool `env:"KEEP_STALE"` // Leave prior outputs with the same name prefix in place
	NoAudit   bool `env:"NO_AUDIT"`   // Skip the organize audit report

	// Frame quality thresholds
	Quality QualityConfig `envPrefix:"QUALITY_"`

	// Snapshot fetching
	SnapshotURL      string `env:"SNAPSHOT_URL"`
	FetchTimeoutSecs uint   `env:"FETCH_TIMEOUT_SECS"`
	FilePrefix       string `env:"FILE_PREFIX"`

	// Camera routing for the weekly organizer
	Cameras []CameraRoute `env:"-"`

	// Selected build mode
	Mode Mode `env:"MODE"`
}

// NewConfig creates a new Config with default values.
func NewConfig(frameRoots []string, outputDir, logDir string) *Config {
	return &Config{
		FrameRoots:       frameRoots,
		OutputDir:        outputDir,
		LogDir:           logDir,
		Recursive:        true,
		StepMinutes:      DefaultStepMinutes,
		FPS:              DefaultFPS,
		WindowDays:       DefaultWindowDays,
		SunriseLeadMins:  DefaultSunriseLeadMins,
		Latitude:         DefaultLatitude,
		Longitude:        DefaultLongitude,
		Timezone:         DefaultTimezone,
		DayStart:         DefaultDayStart,
		ForbidRepeatDay:  true,
		Quality:          DefaultQuality(),
		SnapshotURL:      DefaultSnapshotURL,
		FetchTimeoutSecs: DefaultFetchTimeoutSecs,
		FilePrefix:       DefaultFilePrefix,
		Mode:             ModeWindow,
	}
}

// ApplyEnv overlays values from SNOWLAPSE_-prefixed environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnv, err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StepMinutes == 0 || c.StepMinutes > MaxStepMinutes {
		return fmt.Errorf("%w: must be 1-%d minutes, got %d", ErrInvalidStep, MaxStepMinutes, c.StepMinutes)
	}

	if c.FPS == 0 {
		return fmt.Errorf("%w: must be at least 1", ErrInvalidFPS)
	}

	if c.WindowDays == 0 {
		return fmt.Errorf("%w: must be at least 1 day", ErrInvalidWindow)
	}

	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be -90 to 90, got %g", ErrInvalidCoordinates, c.Latitude)
	}

	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be -180 to 180, got %g", ErrInvalidCoordinates, c.Longitude)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: '%s'", ErrInvalidTimezone, c.Timezone)
	}

	if _, err := ParseDayStart(c.DayStart); err != nil {
		return err
	}

	if _, _, err := c.WindowOverride(); err != nil {
		return err
	}

	if c.FetchTimeoutSecs == 0 {
		return fmt.Errorf("%w: must be at least 1 second", ErrInvalidTimeout)
	}

	if c.Quality.BlackRatioMax <= 0 || c.Quality.BlackRatioMax > 1 {
		return fmt.Errorf("%w: black ratio must be in (0, 1], got %g", ErrInvalidThreshold, c.Quality.BlackRatioMax)
	}

	if c.Quality.WhiteRatioMax <= 0 || c.Quality.WhiteRatioMax > 1 {
		return fmt.Errorf("%w: white ratio must be in (0, 1], got %g", ErrInvalidThreshold, c.Quality.WhiteRatioMax)
	}

	if c.Quality.DominantBinMax <= 0 || c.Quality.DominantBinMax > 1 {
		return fmt.Errorf("%w: dominant bin ratio must be in (0, 1], got %g", ErrInvalidThreshold, c.Quality.DominantBinMax)
	}

	if c.Quality.WhiteLumaMin <= c.Quality.BlackLumaMax {
		return fmt.Errorf("%w: white luma floor %d must exceed black luma ceiling %d",
			ErrInvalidThreshold, c.Quality.WhiteLumaMin, c.Quality.BlackLumaMax)
	}

	return nil
}

// WindowOverride parses the explicit from/to window bounds. Unset bounds
// come back as zero times; a set bound must be RFC 3339 and from must
// precede to when both are given.
func (c *Config) WindowOverride() (from, to time.Time, err error) {
	if c.FromOverride != "" {
		from, err = time.Parse(time.RFC3339, c.FromOverride)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from '%s' is not RFC 3339", ErrInvalidWindowOverride, c.FromOverride)
		}
	}
	if c.ToOverride != "" {
		to, err = time.Parse(time.RFC3339, c.ToOverride)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to '%s' is not RFC 3339", ErrInvalidWindowOverride, c.ToOverride)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from %s does not precede to %s", ErrInvalidWindowOverride, c.FromOverride, c.ToOverride)
	}
	return from, to, nil
}

// EffectiveToleranceSecs returns the matching tolerance, falling back to
// half the grid step when not set.
func (c *Config) EffectiveToleranceSecs() uint {
	if c.ToleranceSecs != 0 {
		return c.ToleranceSecs
	}
	return c.StepMinutes * 30
}

// StepDuration returns the grid step as a time.Duration.
func (c *Config) StepDuration() time.Duration {
	return time.Duration(c.StepMinutes) * time.Minute
}

// Tolerance returns the matching tolerance as a time.Duration.
func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.EffectiveToleranceSecs()) * time.Second
}

// FetchTimeout returns the snapshot download timeout as a time.Duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidTimezone, c.Timezone)
	}
	return loc, nil
}
