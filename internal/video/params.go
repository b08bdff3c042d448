// Package video assembles timelapse MP4s by piping frames into ffmpeg.
package video

import (
	"fmt"
	"strconv"
	"time"
)

const (
	codec       = "libx264"
	preset      = "slow"
	crf         = "18"
	tune        = "stillimage"
	pixelFormat = "yuv420p"

	// evenScale forces even output dimensions, which yuv420p requires.
	evenScale = "scale=trunc(iw/2)*2:trunc(ih/2)*2"

	stampLayout = "20060102_150405"
)

// EncodeParams describes one timelapse encode.
type EncodeParams struct {
	OutputPath string
	FPS        uint
	Width      int
	Height     int
}

// BuildArgs assembles the ffmpeg argument list for one encode. Frames
// arrive as JPEG images on stdin.
func BuildArgs(params EncodeParams) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "image2pipe",
		"-framerate", strconv.FormatUint(uint64(params.FPS), 10),
		"-i", "-",
		"-c:v", codec,
		"-preset", preset,
		"-crf", crf,
		"-tune", tune,
		"-pix_fmt", pixelFormat,
		"-vf", evenScale,
		params.OutputPath,
	}
}

// WindowOutputName names a rolling-window timelapse after its span. The
// start stamp is local time, the end stamp UTC, matching the capture
// window they came from.
func WindowOutputName(days int, startLocal, endUTC time.Time, fps uint) string {
	return fmt.Sprintf("timelapse_last%ddays_%s_%s_%dfps.mp4",
		days, startLocal.Format(stampLayout), endUTC.UTC().Format(stampLayout), fps)
}

// WindowOutputPrefix is the filename prefix shared by every rolling-window
// output for the given span, used to clear stale runs.
func WindowOutputPrefix(days int) string {
	return fmt.Sprintf("timelapse_last%ddays_", days)
}

// CompositeOutputName names a synthetic-day timelapse after its local start
// time of day.
func CompositeOutputName(startSec int, fps uint) string {
	return fmt.Sprintf("timelapse_oneday_%02d%02d_%dfps.mp4", startSec/3600, (startSec%3600)/60, fps)
}

// CompositeOutputPrefix is the filename prefix shared by synthetic-day
// outputs.
func CompositeOutputPrefix() string {
	return "timelapse_oneday_"
}
