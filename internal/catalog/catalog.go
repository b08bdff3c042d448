// Package catalog indexes timestamped webcam snapshots on disk.
package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/sierracams/snowlapse/internal/util"
)

// Filename stamp patterns. The long form wins when both could match.
var (
	longStamp  = regexp.MustCompile(`(\d{8})_(\d{6})`)
	shortStamp = regexp.MustCompile(`(\d{6})_(\d{6})`)
)

// Frame is one cataloged snapshot with its capture timestamp.
type Frame struct {
	Timestamp time.Time
	Path      string
}

// Options controls how the catalog scan behaves.
type Options struct {
	// Recursive walks subdirectories of each root.
	Recursive bool
}

// CatalogLogger defines the interface for catalog logging.
type CatalogLogger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// Result contains the cataloged frames with scan metadata.
type Result struct {
	Frames []Frame
	// SkippedCount counts image files without a usable filename stamp.
	SkippedCount int
}

// ParseStamp extracts the capture timestamp from an image filename.
// Names carry either a YYYYMMDD_HHMMSS or YYMMDD_HHMMSS stamp, read as UTC.
// Two digit years always land in 2000-2099. Returns false when no valid
// stamp is present.
func ParseStamp(name string) (time.Time, bool) {
	if m := longStamp.FindStringSubmatch(name); m != nil {
		ts, err := time.Parse("20060102150405", m[1]+m[2])
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	if m := shortStamp.FindStringSubmatch(name); m != nil {
		ts, err := time.Parse("20060102150405", "20"+m[1]+m[2])
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}

// FormatStamp renders t as the long YYYYMMDD_HHMMSS stamp in UTC.
func FormatStamp(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// FormatStampShort renders t as the short YYMMDD_HHMMSS stamp in UTC.
func FormatStampShort(t time.Time) string {
	return t.UTC().Format("060102_150405")
}

// Build scans the given roots for timestamped images and returns them
// ordered by capture time. Roots that do not exist are skipped, as are
// files whose names carry no valid stamp.
func Build(roots []string, opts Options) []Frame {
	return BuildWithLogging(roots, opts, nil).Frames
}

// BuildWithLogging scans the given roots and logs what it found.
// Logs the first 5 frames plus a count summary.
func BuildWithLogging(roots []string, opts Options, logger CatalogLogger) *Result {
	result := &Result{}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		if opts.Recursive {
			// Unreadable entries are skipped, not fatal
			_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil || d.IsDir() {
					return nil
				}
				result.add(path, d.Name())
				return nil
			})
		} else {
			entries, err := os.ReadDir(root)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				result.add(filepath.Join(root, entry.Name()), entry.Name())
			}
		}
	}

	sort.Slice(result.Frames, func(i, j int) bool {
		if result.Frames[i].Timestamp.Equal(result.Frames[j].Timestamp) {
			return result.Frames[i].Path < result.Frames[j].Path
		}
		return result.Frames[i].Timestamp.Before(result.Frames[j].Timestamp)
	})

	if logger != nil {
		logCatalog(result, logger)
	}

	return result
}

func (r *Result) add(path, name string) {
	if !util.HasImageExtension(name) {
		return
	}
	ts, ok := ParseStamp(name)
	if !ok {
		r.SkippedCount++
		return
	}
	r.Frames = append(r.Frames, Frame{Timestamp: ts, Path: path})
}

// logCatalog logs the first 5 cataloged frames plus a count.
func logCatalog(result *Result, logger CatalogLogger) {
	if len(result.Frames) == 0 {
		logger.Info("No timestamped images found")
		return
	}

	logger.Info("Cataloged %d timestamped image(s)", len(result.Frames))
	if result.SkippedCount > 0 {
		logger.Debug("  skipped %d image(s) without a usable stamp", result.SkippedCount)
	}

	maxToLog := min(5, len(result.Frames))

	for i := 0; i < maxToLog; i++ {
		logger.Debug("  %s", filepath.Base(result.Frames[i].Path))
	}

	if len(result.Frames) > 5 {
		logger.Debug("  ... and %d more", len(result.Frames)-5)
	}
}
