package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sierracams/snowlapse/internal/catalog"
	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/errors"
	"github.com/sierracams/snowlapse/internal/reporter"
)

// captureScript is a stand-in ffmpeg that copies stdin into its last
// argument, the output path.
const captureScript = "#!/bin/sh\nfor last in \"$@\"; do :; done\ncat > \"$last\"\n"

var jpegSOI = []byte{0xff, 0xd8, 0xff}

func stubFFmpeg(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// gradientImage passes every quality check.
func gradientImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 256, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 256; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x)})
		}
	}
	return img
}

// blackImage fails the near-black check.
func blackImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 256, 200))
}

func writeFrame(t *testing.T, dir string, ts time.Time, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("image_%s.jpg", catalog.FormatStamp(ts)))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// alignedNow returns the current time rounded down to a whole grid step.
func alignedNow(step time.Duration) time.Time {
	secs := int64(step / time.Second)
	return time.Unix(time.Now().Unix()/secs*secs, 0).UTC()
}

func countFrames(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	return bytes.Count(data, jpegSOI)
}

func TestBuildWindowModeEndToEnd(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()

	base := alignedNow(5 * time.Minute)
	stamps := []time.Time{
		base.Add(-15 * time.Minute),
		base.Add(-10 * time.Minute),
		base.Add(-5 * time.Minute),
		base,
	}
	for _, ts := range stamps {
		writeFrame(t, framesDir, ts, gradientImage())
	}

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")
	result, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.Used != 4 || result.Skipped != 0 {
		t.Errorf("used/skipped = %d/%d, want 4/0", result.Used, result.Skipped)
	}
	if !result.FirstUsed.Equal(stamps[0]) || !result.LastUsed.Equal(stamps[3]) {
		t.Errorf("used range %v -> %v, want %v -> %v", result.FirstUsed, result.LastUsed, stamps[0], stamps[3])
	}

	name := filepath.Base(result.OutputPath)
	if !strings.HasPrefix(name, "timelapse_last7days_") || !strings.HasSuffix(name, "_24fps.mp4") {
		t.Errorf("unexpected output name %q", name)
	}
	if got := countFrames(t, result.OutputPath); got != 4 {
		t.Errorf("output holds %d frames, want 4", got)
	}
	if result.OutputSize == 0 {
		t.Error("output size not recorded")
	}
}

func TestBuildAllFramesModeSkipsBadFrames(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()

	base := alignedNow(time.Minute)
	writeFrame(t, framesDir, base.Add(-3*time.Minute), gradientImage())
	writeFrame(t, framesDir, base.Add(-2*time.Minute), blackImage())
	writeFrame(t, framesDir, base.Add(-time.Minute), gradientImage())
	writeFrame(t, framesDir, base, gradientImage())

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")
	cfg.Mode = config.ModeAllFrames

	result, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.Used != 3 || result.Skipped != 1 {
		t.Errorf("used/skipped = %d/%d, want 3/1", result.Used, result.Skipped)
	}
	if result.SkipReasons["mostly_black"] != 1 {
		t.Errorf("skip reasons = %v, want mostly_black counted once", result.SkipReasons)
	}
	if got := countFrames(t, result.OutputPath); got != 3 {
		t.Errorf("output holds %d frames, want 3", got)
	}
}

func TestBuildCompositeMode(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()

	// Two mornings at Madrid local 08:00-08:15, stamped in UTC.
	stamps := []time.Time{
		time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 7, 5, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 7, 10, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 7, 15, 0, 0, time.UTC),
	}
	for _, ts := range stamps {
		writeFrame(t, framesDir, ts, gradientImage())
	}

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")
	cfg.Mode = config.ModeComposite

	result, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.Used != 4 {
		t.Errorf("used = %d, want 4", result.Used)
	}
	if name := filepath.Base(result.OutputPath); name != "timelapse_oneday_0500_24fps.mp4" {
		t.Errorf("output name = %q", name)
	}
	if got := countFrames(t, result.OutputPath); got != 4 {
		t.Errorf("output holds %d frames, want 4", got)
	}
}

func TestBuildEmptyCatalogFails(t *testing.T) {
	cfg := config.NewConfig([]string{t.TempDir()}, t.TempDir(), "")

	_, err := Build(context.Background(), cfg, nil, nil)
	if !errors.IsKind(err, errors.KindNoFramesFound) {
		t.Fatalf("err = %v, want no frames found", err)
	}
	if !errors.IsFatalRun(err) {
		t.Error("empty catalog should be fatal for the run")
	}
}

func TestBuildNothingInsideWindowFails(t *testing.T) {
	framesDir := t.TempDir()
	writeFrame(t, framesDir, time.Date(2020, 6, 1, 8, 0, 0, 0, time.UTC), gradientImage())
	writeFrame(t, framesDir, time.Date(2020, 6, 1, 9, 0, 0, 0, time.UTC), gradientImage())

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")

	_, err := Build(context.Background(), cfg, nil, nil)
	if !errors.IsKind(err, errors.KindNoFramesFound) {
		t.Fatalf("err = %v, want no frames found", err)
	}
	if !strings.Contains(err.Error(), "window") {
		t.Errorf("err = %v, want mention of the capture window", err)
	}
}

func TestBuildAllRejectedKeepsExistingOutputs(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()
	outDir := t.TempDir()

	base := alignedNow(time.Minute)
	writeFrame(t, framesDir, base.Add(-2*time.Minute), blackImage())
	writeFrame(t, framesDir, base.Add(-time.Minute), blackImage())
	writeFrame(t, framesDir, base, blackImage())

	stale := filepath.Join(outDir, "timelapse_last7days_20200101_000000_20200102_000000_24fps.mp4")
	if err := os.WriteFile(stale, []byte("previous run"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig([]string{framesDir}, outDir, "")
	cfg.Mode = config.ModeAllFrames

	_, err := Build(context.Background(), cfg, nil, nil)
	if !errors.IsKind(err, errors.KindNoUsableFrames) {
		t.Fatalf("err = %v, want no usable frames", err)
	}

	data, readErr := os.ReadFile(stale)
	if readErr != nil || string(data) != "previous run" {
		t.Error("failed run must leave the previous output untouched")
	}

	entries, _ := os.ReadDir(outDir)
	if len(entries) != 1 {
		t.Errorf("output dir holds %d entries, want only the previous output", len(entries))
	}
}

func TestBuildRemovesStaleOutputsOnSuccess(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()
	outDir := t.TempDir()

	base := alignedNow(time.Minute)
	writeFrame(t, framesDir, base.Add(-time.Minute), gradientImage())
	writeFrame(t, framesDir, base, gradientImage())

	matching := filepath.Join(outDir, "timelapse_last7days_19990101_000000_19990102_000000_24fps.mp4")
	otherDays := filepath.Join(outDir, "timelapse_last3days_19990101_000000_19990102_000000_24fps.mp4")
	composite := filepath.Join(outDir, "timelapse_oneday_0500_24fps.mp4")
	for _, p := range []string{matching, otherDays, composite} {
		if err := os.WriteFile(p, []byte("stale"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.NewConfig([]string{framesDir}, outDir, "")
	cfg.Mode = config.ModeAllFrames

	result, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := os.Stat(matching); !os.IsNotExist(err) {
		t.Error("stale output with the same window prefix should be removed")
	}
	for _, p := range []string{otherDays, composite} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("output %s with a different prefix should survive", filepath.Base(p))
		}
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Errorf("new output missing: %v", err)
	}
}

func TestBuildWindowOverrideBoundsSelection(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()

	stamps := []time.Time{
		time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 10, 10, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	for _, ts := range stamps {
		writeFrame(t, framesDir, ts, gradientImage())
	}

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")
	cfg.FromOverride = "2024-01-15T10:00:00Z"
	cfg.ToOverride = "2024-01-15T10:10:00Z"

	result, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if result.Used != 3 {
		t.Errorf("used = %d, want the 3 frames inside the override", result.Used)
	}
	if !result.FirstUsed.Equal(stamps[0]) || !result.LastUsed.Equal(stamps[2]) {
		t.Errorf("used range %v -> %v, want %v -> %v", result.FirstUsed, result.LastUsed, stamps[0], stamps[2])
	}
	// Madrid runs an hour ahead of UTC in January, so the local start
	// stamp in the name leads the UTC end stamp.
	if name := filepath.Base(result.OutputPath); name != "timelapse_last7days_20240115_110000_20240115_101000_24fps.mp4" {
		t.Errorf("output name = %q", name)
	}
}

func TestBuildFailedEncodeRemovesOutput(t *testing.T) {
	// A stand-in ffmpeg that writes its output and then reports failure.
	stubFFmpeg(t, "#!/bin/sh\nfor last in \"$@\"; do :; done\ncat > \"$last\"\nexit 1\n")
	framesDir := t.TempDir()
	outDir := t.TempDir()

	base := alignedNow(time.Minute)
	writeFrame(t, framesDir, base.Add(-time.Minute), gradientImage())
	writeFrame(t, framesDir, base, gradientImage())

	cfg := config.NewConfig([]string{framesDir}, outDir, "")
	cfg.Mode = config.ModeAllFrames

	_, err := Build(context.Background(), cfg, nil, nil)
	if !errors.IsKind(err, errors.KindCommand) {
		t.Fatalf("err = %v, want command failure", err)
	}

	entries, readErr := os.ReadDir(outDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("output dir holds %d entries, want the partial output removed", len(entries))
	}
}

func TestBuildKeepStaleLeavesPriorOutputs(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()
	outDir := t.TempDir()

	base := alignedNow(time.Minute)
	writeFrame(t, framesDir, base.Add(-time.Minute), gradientImage())
	writeFrame(t, framesDir, base, gradientImage())

	matching := filepath.Join(outDir, "timelapse_last7days_19990101_000000_19990102_000000_24fps.mp4")
	if err := os.WriteFile(matching, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig([]string{framesDir}, outDir, "")
	cfg.Mode = config.ModeAllFrames
	cfg.KeepStale = true

	result, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, readErr := os.ReadFile(matching)
	if readErr != nil || string(data) != "stale" {
		t.Error("keep-stale run must leave the previous output in place")
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Errorf("new output missing: %v", err)
	}
}

type eventRecorder struct {
	events   []string
	build    reporter.BuildOutcome
	fetch    reporter.FetchOutcome
	organize reporter.OrganizeSummary
	skips    []string
	warnings []string
}

func (r *eventRecorder) Hardware(reporter.HardwareSummary)       { r.events = append(r.events, "hardware") }
func (r *eventRecorder) ScanComplete(reporter.ScanSummary)       { r.events = append(r.events, "scan") }
func (r *eventRecorder) WindowComputed(reporter.WindowSummary)   { r.events = append(r.events, "window") }
func (r *eventRecorder) SelectionComplete(reporter.SelectionSummary) {
	r.events = append(r.events, "selection")
}
func (r *eventRecorder) EncodingStarted(int)       { r.events = append(r.events, "started") }
func (r *eventRecorder) EncodingProgress(int, int) { r.events = append(r.events, "progress") }
func (r *eventRecorder) FrameSkipped(path, reason string) {
	r.events = append(r.events, "skipped")
	r.skips = append(r.skips, reason)
}
func (r *eventRecorder) BuildComplete(s reporter.BuildOutcome) {
	r.events = append(r.events, "build")
	r.build = s
}
func (r *eventRecorder) FetchComplete(s reporter.FetchOutcome) {
	r.events = append(r.events, "fetch")
	r.fetch = s
}
func (r *eventRecorder) OrganizeComplete(s reporter.OrganizeSummary) {
	r.events = append(r.events, "organize")
	r.organize = s
}
func (r *eventRecorder) Warning(msg string) {
	r.events = append(r.events, "warning")
	r.warnings = append(r.warnings, msg)
}
func (r *eventRecorder) Error(reporter.ReporterError) { r.events = append(r.events, "error") }
func (r *eventRecorder) OperationComplete(string)     { r.events = append(r.events, "complete") }
func (r *eventRecorder) Verbose(string)               {}

func TestBuildEmitsEventSequence(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()

	base := alignedNow(5 * time.Minute)
	writeFrame(t, framesDir, base.Add(-5*time.Minute), gradientImage())
	writeFrame(t, framesDir, base, gradientImage())

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")
	rec := &eventRecorder{}

	if _, err := Build(context.Background(), cfg, rec, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Disk space warnings depend on the host, drop them before comparing.
	var events []string
	for _, e := range rec.events {
		if e != "warning" {
			events = append(events, e)
		}
	}

	want := []string{"hardware", "scan", "window", "selection", "started", "progress", "progress", "build", "complete"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i, name := range want {
		if events[i] != name {
			t.Errorf("event %d = %q, want %q", i, events[i], name)
		}
	}
	if rec.build.Used != 2 {
		t.Errorf("reported used = %d, want 2", rec.build.Used)
	}
	if rec.build.FPS != 24 {
		t.Errorf("reported fps = %d, want 24", rec.build.FPS)
	}
}

func TestFetchSavesSnapshot(t *testing.T) {
	body := append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0x42}, 64)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	cfg := config.NewConfig([]string{root}, t.TempDir(), "")
	cfg.SnapshotURL = srv.URL
	rec := &eventRecorder{}

	result, err := Fetch(context.Background(), cfg, rec, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !strings.HasPrefix(result.Path, root) {
		t.Errorf("snapshot %s landed outside the frame root", result.Path)
	}
	if data, err := os.ReadFile(result.Path); err != nil || !bytes.Equal(data, body) {
		t.Errorf("snapshot content mismatch: %v", err)
	}
	if rec.fetch.Size != int64(len(body)) {
		t.Errorf("reported size = %d, want %d", rec.fetch.Size, len(body))
	}
	if got := rec.events[len(rec.events)-1]; got != "complete" {
		t.Errorf("last event = %q, want complete", got)
	}
}

func TestOrganizeMovesAndWritesAudit(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	logDir := t.TempDir()

	for _, name := range []string{"image_240226_120000.jpg", "image_240227_090000.jpg"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.NewConfig([]string{root}, t.TempDir(), logDir)
	rec := &eventRecorder{}

	report, err := Organize(context.Background(), cfg, []string{src}, rec, nil)
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}

	if len(report.Moved) != 2 {
		t.Fatalf("moved %d files, want 2", len(report.Moved))
	}
	for _, m := range report.Moved {
		if !strings.Contains(m.To, "Week 09") {
			t.Errorf("moved to %s, want a week 09 folder", m.To)
		}
	}
	if rec.organize.Moved != 2 || rec.organize.Scanned != 2 {
		t.Errorf("reported moved/scanned = %d/%d, want 2/2", rec.organize.Moved, rec.organize.Scanned)
	}
	if rec.organize.AuditPath == "" {
		t.Fatal("no audit path reported")
	}
	if filepath.Dir(rec.organize.AuditPath) != root {
		t.Errorf("audit written to %s, want it next to the weekly folders in %s", rec.organize.AuditPath, root)
	}
	data, err := os.ReadFile(rec.organize.AuditPath)
	if err != nil {
		t.Fatalf("reading audit: %v", err)
	}
	if !strings.Contains(string(data), "== MOVED ==") {
		t.Error("audit report missing the moved section")
	}
}

func TestBuildCancelledBetweenFrames(t *testing.T) {
	stubFFmpeg(t, captureScript)
	framesDir := t.TempDir()

	base := alignedNow(time.Minute)
	writeFrame(t, framesDir, base, gradientImage())

	cfg := config.NewConfig([]string{framesDir}, t.TempDir(), "")
	cfg.Mode = config.ModeAllFrames

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, cfg, nil, nil)
	if !errors.IsCancelled(err) {
		t.Fatalf("err = %v, want cancelled", err)
	}
}
