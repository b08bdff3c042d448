// Package pipeline orchestrates the timelapse operations end to end.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kovidgoyal/imaging"

	"github.com/sierracams/snowlapse/internal/catalog"
	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/errors"
	"github.com/sierracams/snowlapse/internal/logging"
	"github.com/sierracams/snowlapse/internal/quality"
	"github.com/sierracams/snowlapse/internal/reporter"
	"github.com/sierracams/snowlapse/internal/selector"
	"github.com/sierracams/snowlapse/internal/sun"
	"github.com/sierracams/snowlapse/internal/timegrid"
	"github.com/sierracams/snowlapse/internal/util"
	"github.com/sierracams/snowlapse/internal/video"
)

// BuildResult contains the result of a single timelapse build.
type BuildResult struct {
	OutputPath  string
	OutputSize  uint64
	Used        int
	Skipped     int
	SkipReasons map[string]int
	FirstUsed   time.Time
	LastUsed    time.Time
	Elapsed     time.Duration
}

// buildPlan is the ordered frame list a build will encode, with its output
// naming resolved.
type buildPlan struct {
	frames      []catalog.Frame
	outputName  string
	stalePrefix string
}

// Build catalogs frames, selects the ones the configured mode asks for and
// encodes them into an MP4 under cfg.OutputDir. The run fails without
// touching existing outputs when the catalog is empty, no frame falls
// inside the capture window, or every selected frame is rejected.
func Build(ctx context.Context, cfg *config.Config, rep reporter.Reporter, logger *logging.Logger) (*BuildResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	started := time.Now()

	sysInfo := util.GetSystemInfo()
	rep.Hardware(reporter.HardwareSummary{Hostname: sysInfo.Hostname})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	scan := catalog.BuildWithLogging(cfg.FrameRoots, catalog.Options{Recursive: cfg.Recursive}, logger)
	scanSummary := reporter.ScanSummary{
		Roots:        cfg.FrameRoots,
		FrameCount:   len(scan.Frames),
		SkippedFiles: scan.SkippedCount,
	}
	if len(scan.Frames) > 0 {
		scanSummary.FirstFrame = scan.Frames[0].Timestamp
		scanSummary.LastFrame = scan.Frames[len(scan.Frames)-1].Timestamp
	}
	rep.ScanComplete(scanSummary)

	if len(scan.Frames) == 0 {
		return nil, reportFailure(rep, errors.NewNoFramesFoundError(cfg.FrameRoots))
	}

	var plan *buildPlan
	switch cfg.Mode {
	case config.ModeComposite:
		plan, err = compositePlan(cfg, loc, scan.Frames, rep, logger)
	default:
		plan, err = windowPlan(cfg, loc, scan.Frames, rep, logger)
	}
	if err != nil {
		return nil, reportFailure(rep, err)
	}

	if err := video.Preflight(); err != nil {
		return nil, reportFailure(rep, err)
	}
	if err := util.EnsureDirectory(cfg.OutputDir); err != nil {
		return nil, reportFailure(rep, errors.NewIOError(fmt.Sprintf("creating output directory %s", cfg.OutputDir), err))
	}
	if err := util.EnsureDirectoryWritable(cfg.OutputDir); err != nil {
		return nil, reportFailure(rep, errors.NewIOError(fmt.Sprintf("output directory %s not writable", cfg.OutputDir), err))
	}
	if !util.CheckDiskSpace(cfg.OutputDir, logger.Warn) {
		rep.Warning(fmt.Sprintf("Low disk space in %s, the encode may fail", cfg.OutputDir))
	}

	outputPath := filepath.Join(cfg.OutputDir, plan.outputName)
	result, err := encode(ctx, cfg, plan, outputPath, rep, logger)
	if err != nil {
		return nil, reportFailure(rep, err)
	}

	result.Elapsed = time.Since(started)
	result.OutputSize, _ = util.GetFileSize(outputPath)

	rep.BuildComplete(reporter.BuildOutcome{
		OutputPath:  outputPath,
		OutputSize:  result.OutputSize,
		Used:        result.Used,
		Skipped:     result.Skipped,
		SkipReasons: result.SkipReasons,
		FirstUsed:   result.FirstUsed,
		LastUsed:    result.LastUsed,
		FPS:         cfg.FPS,
		Elapsed:     result.Elapsed,
	})
	rep.OperationComplete(fmt.Sprintf("Timelapse saved to %s", outputPath))
	logger.Info("Saved %s, used %d frames, skipped %d", outputPath, result.Used, result.Skipped)

	return result, nil
}

// windowPlan selects frames inside the sunrise-anchored capture window.
// ModeWindow thins them onto a fixed UTC grid, ModeAllFrames keeps them all.
func windowPlan(cfg *config.Config, loc *time.Location, frames []catalog.Frame, rep reporter.Reporter, logger *logging.Logger) (*buildPlan, error) {
	site := sun.Site{Latitude: cfg.Latitude, Longitude: cfg.Longitude, TZ: loc}
	latest := frames[len(frames)-1].Timestamp
	lead := time.Duration(cfg.SunriseLeadMins) * time.Minute
	win := site.LastDays(time.Now(), latest, int(cfg.WindowDays), lead)

	from, to, err := cfg.WindowOverride()
	if err != nil {
		return nil, err
	}
	if !from.IsZero() {
		win.StartUTC = from.UTC()
		win.StartLocal = from.In(loc)
	}
	if !to.IsZero() {
		win.EndUTC = to.UTC()
	}

	var inWindow []catalog.Frame
	for _, f := range frames {
		if win.Contains(f.Timestamp) {
			inWindow = append(inWindow, f)
		}
	}

	rep.WindowComputed(reporter.WindowSummary{
		Days:       int(cfg.WindowDays),
		StartLocal: win.StartLocal,
		EndUTC:     win.EndUTC,
		FramesIn:   len(inWindow),
	})
	logger.Info("Capture window %s -> %s holds %d of %d frames",
		win.StartUTC.Format(time.RFC3339), win.EndUTC.Format(time.RFC3339), len(inWindow), len(frames))

	if len(inWindow) == 0 {
		return nil, errors.NewEmptyWindowError()
	}

	plan := &buildPlan{
		outputName:  video.WindowOutputName(int(cfg.WindowDays), win.StartLocal, win.EndUTC, cfg.FPS),
		stalePrefix: video.WindowOutputPrefix(int(cfg.WindowDays)),
	}

	if cfg.Mode == config.ModeAllFrames {
		plan.frames = inWindow
		return plan, nil
	}

	grid := timegrid.Build(win.StartUTC, win.EndUTC, cfg.StepDuration())
	picks := selector.Select(inWindow, grid, cfg.Tolerance())

	rep.SelectionComplete(reporter.SelectionSummary{
		GridPoints:    len(grid),
		Selected:      len(picks),
		StepMinutes:   cfg.StepMinutes,
		ToleranceSecs: cfg.EffectiveToleranceSecs(),
	})
	logger.Info("Grid of %d points at %d min spacing matched %d frames", len(grid), cfg.StepMinutes, len(picks))

	if len(picks) == 0 {
		return nil, errors.NewEmptySelectionError()
	}

	plan.frames = make([]catalog.Frame, len(picks))
	for i, p := range picks {
		plan.frames[i] = p.Frame
	}
	return plan, nil
}

// compositePlan folds the whole catalog onto one synthetic day of
// time-of-day slots starting at the configured local day start.
func compositePlan(cfg *config.Config, loc *time.Location, frames []catalog.Frame, rep reporter.Reporter, logger *logging.Logger) (*buildPlan, error) {
	startSec, err := config.ParseDayStart(cfg.DayStart)
	if err != nil {
		return nil, err
	}

	slots := timegrid.BuildTimeOfDay(startSec, cfg.StepDuration())
	picks := selector.SelectTimeOfDay(frames, slots, cfg.Tolerance(), loc, cfg.ForbidRepeatDay)

	rep.SelectionComplete(reporter.SelectionSummary{
		GridPoints:    len(slots),
		Selected:      len(picks),
		StepMinutes:   cfg.StepMinutes,
		ToleranceSecs: cfg.EffectiveToleranceSecs(),
	})
	logger.Info("Folded %d frames onto %d day slots, %d selected", len(frames), len(slots), len(picks))

	if len(picks) == 0 {
		return nil, errors.NewEmptySelectionError()
	}

	plan := &buildPlan{
		frames:      make([]catalog.Frame, len(picks)),
		outputName:  video.CompositeOutputName(startSec, cfg.FPS),
		stalePrefix: video.CompositeOutputPrefix(),
	}
	for i, p := range picks {
		plan.frames[i] = p.Frame
	}
	return plan, nil
}

// encode streams the planned frames through quality screening into one
// ffmpeg process. The writer starts lazily on the first accepted frame, so
// a run that rejects everything leaves existing outputs untouched. Output
// dimensions are fixed by the first accepted frame.
func encode(ctx context.Context, cfg *config.Config, plan *buildPlan, outputPath string, rep reporter.Reporter, logger *logging.Logger) (*BuildResult, error) {
	result := &BuildResult{
		OutputPath:  outputPath,
		SkipReasons: make(map[string]int),
	}
	total := len(plan.frames)
	rep.EncodingStarted(total)

	var w *video.Writer
	for i, fr := range plan.frames {
		if ctx.Err() != nil {
			if w != nil {
				_ = w.Close()
				_ = os.Remove(outputPath)
			}
			return nil, errors.NewCancelledError()
		}

		img, err := imaging.Open(fr.Path)
		if err != nil {
			logger.Debug("Unreadable frame %s: %v", fr.Path, err)
			img = nil
		}
		verdict := quality.Assess(img, cfg.Quality)
		if verdict.Bad {
			result.Skipped++
			result.SkipReasons[reasonKey(verdict.Reason)]++
			rep.FrameSkipped(fr.Path, verdict.Reason)
			logger.Debug("Skipping %s: %s", fr.Path, verdict.Reason)
			rep.EncodingProgress(i+1, total)
			continue
		}

		if w == nil {
			if !cfg.KeepStale {
				for _, stale := range util.CleanupStaleOutputs(filepath.Dir(outputPath), plan.stalePrefix, ".mp4") {
					logger.Info("Removed stale output %s", stale)
					rep.Verbose(fmt.Sprintf("Removed stale output %s", stale))
				}
			}
			bounds := img.Bounds()
			w, err = video.NewWriter(ctx, video.EncodeParams{
				OutputPath: outputPath,
				FPS:        cfg.FPS,
				Width:      bounds.Dx(),
				Height:     bounds.Dy(),
			})
			if err != nil {
				return nil, err
			}
			logger.Info("Encoding %dx%d at %d fps into %s", bounds.Dx(), bounds.Dy(), cfg.FPS, outputPath)
		}

		if err := w.WriteFrame(img); err != nil {
			// A write failure usually means ffmpeg died. Close reports
			// the exit error with captured stderr.
			closeErr := w.Close()
			_ = os.Remove(outputPath)
			if closeErr != nil {
				return nil, closeErr
			}
			return nil, err
		}
		result.Used++
		if result.FirstUsed.IsZero() {
			result.FirstUsed = fr.Timestamp
		}
		result.LastUsed = fr.Timestamp
		rep.EncodingProgress(i+1, total)
	}

	if w == nil {
		return nil, errors.NewNoUsableFramesError()
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(outputPath)
		return nil, err
	}
	return result, nil
}

// reasonKey folds parameterized skip reasons like low_std(1.20) into their
// bare name for aggregation.
func reasonKey(reason string) string {
	if i := strings.IndexByte(reason, '('); i >= 0 {
		return reason[:i]
	}
	return reason
}

// reportFailure emits a build failure with a suggestion matched to its
// cause, then passes the error through. Cancellation is a warning, not an
// error.
func reportFailure(rep reporter.Reporter, err error) error {
	if errors.IsCancelled(err) {
		rep.Warning("Build cancelled")
		return err
	}

	event := reporter.ReporterError{Title: "Build Failed", Message: err.Error()}
	switch {
	case errors.IsKind(err, errors.KindNoFramesFound):
		event.Title = "No Frames Found"
		event.Suggestion = "Check the frame folders and that filenames carry YYYYMMDD_HHMMSS stamps"
	case errors.IsKind(err, errors.KindEmptySelection):
		event.Title = "Empty Selection"
		event.Suggestion = "Loosen the tolerance or shrink the grid step"
	case errors.IsKind(err, errors.KindNoUsableFrames):
		event.Title = "No Usable Frames"
		event.Suggestion = "Inspect the source images or relax the quality thresholds"
	case errors.IsKind(err, errors.KindCommand), errors.IsKind(err, errors.KindFFmpeg):
		event.Title = "Encoding Failed"
		event.Suggestion = "Check that ffmpeg is installed and on PATH"
	}
	rep.Error(event)
	return err
}
