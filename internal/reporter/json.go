package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONReporter emits newline-delimited JSON events, one object per line.
// Suitable for piping into log collectors or the systemd journal.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.Writer

	lastProgressBucket int
	lastProgressTime   time.Time
}

// NewJSONReporter creates a JSON reporter writing to stdout.
func NewJSONReporter() *JSONReporter {
	return NewJSONReporterWithWriter(os.Stdout)
}

// NewJSONReporterWithWriter creates a JSON reporter writing to the given writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{
		writer:             w,
		lastProgressBucket: -1,
	}
}

func (r *JSONReporter) write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "json reporter: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
		Hostname  string `json:"hostname"`
	}{
		Type:      "hardware",
		Timestamp: timestamp(),
		Hostname:  summary.Hostname,
	})
}

func (r *JSONReporter) ScanComplete(summary ScanSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event := struct {
		Type         string   `json:"type"`
		Timestamp    int64    `json:"timestamp"`
		Roots        []string `json:"roots"`
		FrameCount   int      `json:"frame_count"`
		SkippedFiles int      `json:"skipped_files"`
		FirstFrame   string   `json:"first_frame,omitempty"`
		LastFrame    string   `json:"last_frame,omitempty"`
	}{
		Type:         "scan_complete",
		Timestamp:    timestamp(),
		Roots:        summary.Roots,
		FrameCount:   summary.FrameCount,
		SkippedFiles: summary.SkippedFiles,
	}
	if summary.FrameCount > 0 {
		event.FirstFrame = summary.FirstFrame.UTC().Format(time.RFC3339)
		event.LastFrame = summary.LastFrame.UTC().Format(time.RFC3339)
	}
	r.write(event)
}

func (r *JSONReporter) WindowComputed(summary WindowSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type       string `json:"type"`
		Timestamp  int64  `json:"timestamp"`
		Days       int    `json:"days"`
		StartLocal string `json:"start_local"`
		EndUTC     string `json:"end_utc"`
		FramesIn   int    `json:"frames_in_window"`
	}{
		Type:       "window_computed",
		Timestamp:  timestamp(),
		Days:       summary.Days,
		StartLocal: summary.StartLocal.Format(time.RFC3339),
		EndUTC:     summary.EndUTC.UTC().Format(time.RFC3339),
		FramesIn:   summary.FramesIn,
	})
}

func (r *JSONReporter) SelectionComplete(summary SelectionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type          string `json:"type"`
		Timestamp     int64  `json:"timestamp"`
		GridPoints    int    `json:"grid_points"`
		Selected      int    `json:"selected"`
		StepMinutes   uint   `json:"step_minutes"`
		ToleranceSecs uint   `json:"tolerance_seconds"`
	}{
		Type:          "selection_complete",
		Timestamp:     timestamp(),
		GridPoints:    summary.GridPoints,
		Selected:      summary.Selected,
		StepMinutes:   summary.StepMinutes,
		ToleranceSecs: summary.ToleranceSecs,
	})
}

func (r *JSONReporter) EncodingStarted(totalFrames int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastProgressBucket = -1
	r.lastProgressTime = time.Time{}
	r.write(struct {
		Type        string `json:"type"`
		Timestamp   int64  `json:"timestamp"`
		TotalFrames int    `json:"total_frames"`
	}{
		Type:        "encoding_started",
		Timestamp:   timestamp(),
		TotalFrames: totalFrames,
	})
}

func (r *JSONReporter) EncodingProgress(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total) * 100
	}

	// Throttle progress output: emit on 5% buckets, at most every 5
	// seconds, but always emit the final update.
	bucket := int(percent / 5)
	now := time.Now()
	const minInterval = 5 * time.Second

	if percent < 99 && bucket == r.lastProgressBucket && now.Sub(r.lastProgressTime) < minInterval {
		return
	}
	r.lastProgressBucket = bucket
	r.lastProgressTime = now

	r.write(struct {
		Type      string  `json:"type"`
		Timestamp int64   `json:"timestamp"`
		Done      int     `json:"done"`
		Total     int     `json:"total"`
		Percent   float64 `json:"percent"`
	}{
		Type:      "encoding_progress",
		Timestamp: timestamp(),
		Done:      done,
		Total:     total,
		Percent:   percent,
	})
}

func (r *JSONReporter) FrameSkipped(path, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
		Path      string `json:"path"`
		Reason    string `json:"reason"`
	}{
		Type:      "frame_skipped",
		Timestamp: timestamp(),
		Path:      path,
		Reason:    reason,
	})
}

func (r *JSONReporter) BuildComplete(summary BuildOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event := struct {
		Type        string         `json:"type"`
		Timestamp   int64          `json:"timestamp"`
		OutputPath  string         `json:"output_path"`
		OutputSize  uint64         `json:"output_size_bytes"`
		Used        int            `json:"used_frames"`
		Skipped     int            `json:"skipped_frames"`
		SkipReasons map[string]int `json:"skip_reasons,omitempty"`
		FirstUsed   string         `json:"first_used,omitempty"`
		LastUsed    string         `json:"last_used,omitempty"`
		FPS         uint           `json:"fps"`
		ElapsedSecs float64        `json:"elapsed_seconds"`
	}{
		Type:        "build_complete",
		Timestamp:   timestamp(),
		OutputPath:  summary.OutputPath,
		OutputSize:  summary.OutputSize,
		Used:        summary.Used,
		Skipped:     summary.Skipped,
		SkipReasons: summary.SkipReasons,
		FPS:         summary.FPS,
		ElapsedSecs: summary.Elapsed.Seconds(),
	}
	if !summary.FirstUsed.IsZero() {
		event.FirstUsed = summary.FirstUsed.UTC().Format(time.RFC3339)
		event.LastUsed = summary.LastUsed.UTC().Format(time.RFC3339)
	}
	r.write(event)
}

func (r *JSONReporter) FetchComplete(summary FetchOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type       string `json:"type"`
		Timestamp  int64  `json:"timestamp"`
		Path       string `json:"path"`
		MirrorPath string `json:"mirror_path,omitempty"`
		Size       int64  `json:"size_bytes"`
		CapturedAt string `json:"captured_at"`
	}{
		Type:       "fetch_complete",
		Timestamp:  timestamp(),
		Path:       summary.Path,
		MirrorPath: summary.MirrorPath,
		Size:       summary.Size,
		CapturedAt: summary.CapturedAt.UTC().Format(time.RFC3339),
	})
}

func (r *JSONReporter) OrganizeComplete(summary OrganizeSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
		Scanned   int    `json:"scanned"`
		Moved     int    `json:"moved"`
		Unchanged int    `json:"unchanged"`
		Skipped   int    `json:"skipped"`
		AuditPath string `json:"audit_path,omitempty"`
	}{
		Type:      "organize_complete",
		Timestamp: timestamp(),
		Scanned:   summary.Scanned,
		Moved:     summary.Moved,
		Unchanged: summary.Unchanged,
		Skipped:   summary.Skipped,
		AuditPath: summary.AuditPath,
	})
}

func (r *JSONReporter) Warning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
		Message   string `json:"message"`
	}{
		Type:      "warning",
		Timestamp: timestamp(),
		Message:   message,
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type       string `json:"type"`
		Timestamp  int64  `json:"timestamp"`
		Title      string `json:"title"`
		Message    string `json:"message"`
		Context    string `json:"context,omitempty"`
		Suggestion string `json:"suggestion,omitempty"`
	}{
		Type:       "error",
		Timestamp:  timestamp(),
		Title:      err.Title,
		Message:    err.Message,
		Context:    err.Context,
		Suggestion: err.Suggestion,
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write(struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
		Message   string `json:"message"`
	}{
		Type:      "operation_complete",
		Timestamp: timestamp(),
		Message:   message,
	})
}

// Verbose output is a terminal concern and is not emitted as JSON.
func (r *JSONReporter) Verbose(message string) {}
