package reporter

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/sierracams/snowlapse/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	progress *progressbar.ProgressBar
	verbose  bool
	cyan     *color.Color
	green    *color.Color
	yellow   *color.Color
	red      *color.Color
	magenta  *color.Color
	bold     *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
}

func (r *TerminalReporter) ScanComplete(summary ScanSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("FRAMES")
	r.printLabel(10, "Sources:", strings.Join(summary.Roots, ", "))
	r.printLabel(10, "Found:", fmt.Sprintf("%d timestamped images", summary.FrameCount))
	if summary.SkippedFiles > 0 {
		r.printLabel(10, "Ignored:", fmt.Sprintf("%d files without a usable timestamp", summary.SkippedFiles))
	}
	if summary.FrameCount > 0 {
		r.printLabel(10, "Range:", fmt.Sprintf("%s -> %s",
			summary.FirstFrame.UTC().Format(time.RFC3339),
			summary.LastFrame.UTC().Format(time.RFC3339)))
	}
}

func (r *TerminalReporter) WindowComputed(summary WindowSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("WINDOW")
	r.printLabel(10, "Days:", fmt.Sprintf("%d", summary.Days))
	r.printLabel(10, "Start:", summary.StartLocal.Format("2006-01-02 15:04:05 MST"))
	r.printLabel(10, "End:", summary.EndUTC.UTC().Format(time.RFC3339))
	r.printLabel(10, "Frames:", fmt.Sprintf("%d inside the window", summary.FramesIn))
}

func (r *TerminalReporter) SelectionComplete(summary SelectionSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SELECTION")
	r.printLabel(10, "Grid:", fmt.Sprintf("%d points, every %d min", summary.GridPoints, summary.StepMinutes))
	r.printLabel(10, "Tolerance:", fmt.Sprintf("%d sec", summary.ToleranceSecs))
	r.printLabel(10, "Selected:", fmt.Sprintf("%d frames", summary.Selected))
}

func (r *TerminalReporter) EncodingStarted(totalFrames int) {
	r.finishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions64(
		int64(totalFrames),
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Assembling [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) EncodingProgress(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		return
	}
	_ = r.progress.Set64(int64(done))
	r.progress.Describe(fmt.Sprintf("frame %d of %d", done, total))
}

func (r *TerminalReporter) FrameSkipped(path, reason string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s skip %s (%s)\n", r.magenta.Sprint("›"), path, reason)
}

func (r *TerminalReporter) BuildComplete(summary BuildOutcome) {
	r.finishProgress()

	fmt.Println()
	_, _ = r.cyan.Println("RESULTS")
	fmt.Printf("  %s %s\n", r.bold.Sprint("Saved:"), r.green.Sprint(summary.OutputPath))
	fmt.Printf("  Used %d frames, skipped %d bad frames.\n", summary.Used, summary.Skipped)
	if len(summary.SkipReasons) > 0 {
		r.printLabel(8, "Bad:", formatSkipReasons(summary.SkipReasons))
	}
	if !summary.FirstUsed.IsZero() {
		r.printLabel(8, "Range:", fmt.Sprintf("%s -> %s",
			summary.FirstUsed.UTC().Format(time.RFC3339),
			summary.LastUsed.UTC().Format(time.RFC3339)))
	}
	if summary.OutputSize > 0 {
		r.printLabel(8, "Size:", util.FormatBytes(summary.OutputSize))
	}
	r.printLabel(8, "Time:", util.FormatDuration(summary.Elapsed.Seconds()))
}

func (r *TerminalReporter) FetchComplete(summary FetchOutcome) {
	fmt.Println()
	_, _ = r.cyan.Println("SNAPSHOT")
	fmt.Printf("  %s %s\n", r.bold.Sprint("Saved:"), r.green.Sprint(summary.Path))
	r.printLabel(7, "Size:", util.FormatBytes(uint64(summary.Size)))
	r.printLabel(7, "Taken:", summary.CapturedAt.UTC().Format(time.RFC3339))
	if summary.MirrorPath != "" {
		r.printLabel(7, "Mirror:", summary.MirrorPath)
	}
}

func (r *TerminalReporter) OrganizeComplete(summary OrganizeSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("ORGANIZE")
	fmt.Printf("  %s\n", r.bold.Sprintf("Moved %d, unchanged %d, skipped %d", summary.Moved, summary.Unchanged, summary.Skipped))
	r.printLabel(9, "Scanned:", fmt.Sprintf("%d files", summary.Scanned))
	if summary.AuditPath != "" {
		r.printLabel(9, "Audit:", summary.AuditPath)
	}
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	r.finishProgress()

	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Println()
	fmt.Printf("%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s\n", color.New(color.Faint).Sprint(message))
}

// formatSkipReasons renders a reason histogram in stable order.
func formatSkipReasons(reasons map[string]int) string {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s x%d", k, reasons[k]))
	}
	return strings.Join(parts, ", ")
}
