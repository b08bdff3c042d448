// Package weekly groups captured frames into Monday-start ISO week folders.
package weekly

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sierracams/snowlapse/internal/catalog"
	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/errors"
	"github.com/sierracams/snowlapse/internal/util"
)

// maxAuditEntries caps each section of the audit report.
const maxAuditEntries = 1000

// Label names the weekly folder for a local time, such as
// "Week 06 - 02-08Feb" or "Week 09 - 26Feb-03Mar". Weeks are ISO weeks
// starting on Monday.
func Label(local time.Time) string {
	_, week := local.ISOWeek()

	wd := int(local.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := local.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, local.Location())
	sunday := monday.AddDate(0, 0, 6)

	var rng string
	if monday.Month() == sunday.Month() {
		rng = fmt.Sprintf("%02d-%02d%s", monday.Day(), sunday.Day(), monday.Format("Jan"))
	} else {
		rng = fmt.Sprintf("%02d%s-%02d%s", monday.Day(), monday.Format("Jan"), sunday.Day(), sunday.Format("Jan"))
	}
	return fmt.Sprintf("Week %02d - %s", week, rng)
}

// FolderFor returns the weekly folder under root for a UTC capture time.
func FolderFor(root string, ts time.Time, loc *time.Location) string {
	return filepath.Join(root, Label(ts.In(loc)))
}

// Move records one relocated file.
type Move struct {
	From string
	To   string
}

// Skip records one file left in place and why.
type Skip struct {
	Path   string
	Reason string
}

// Report summarizes one organize pass.
type Report struct {
	Scanned   int
	Moved     []Move
	Unchanged []string
	Skipped   []Skip
}

// Organizer moves timestamped images from source folders into weekly
// folders under Root. With camera routes configured, each image is filed
// under Root/<camera>/<week> based on its filename prefix; without routes
// everything lands under Root/<week> directly.
type Organizer struct {
	Root    string
	Routes  []config.CameraRoute
	TZ      *time.Location
	Exclude []string // directory base names the sweep must not enter
}

// Organize scans the source folders and relocates every timestamped image
// into its weekly folder. Files already in the right place are left alone,
// so repeated runs are safe. Version control metadata and timelapse output
// folders are never touched. Cancellation stops the sweep between files
// and returns the partial report alongside the error.
func (o *Organizer) Organize(ctx context.Context, sources []string) (*Report, error) {
	if err := util.EnsureDirectory(o.Root); err != nil {
		return nil, err
	}

	files := o.gather(sources)
	report := &Report{Scanned: len(files)}

	for _, p := range files {
		if ctx.Err() != nil {
			return report, errors.NewCancelledError()
		}
		name := filepath.Base(p)

		destRoot := o.Root
		if len(o.Routes) > 0 {
			camera, ok := o.route(name)
			if !ok {
				report.Skipped = append(report.Skipped, Skip{Path: p, Reason: "unknown camera"})
				continue
			}
			destRoot = filepath.Join(o.Root, camera)
		}

		ts, ok := catalog.ParseStamp(name)
		if !ok {
			report.Skipped = append(report.Skipped, Skip{Path: p, Reason: "no timestamp in name"})
			continue
		}

		destDir := FolderFor(destRoot, ts, o.TZ)
		if sameDir(p, destDir) {
			report.Unchanged = append(report.Unchanged, p)
			continue
		}

		if err := util.EnsureDirectory(destDir); err != nil {
			report.Skipped = append(report.Skipped, Skip{Path: p, Reason: err.Error()})
			continue
		}
		dest := util.UniquePath(destDir, name)
		if err := moveFile(p, dest); err != nil {
			report.Skipped = append(report.Skipped, Skip{Path: p, Reason: err.Error()})
			continue
		}
		report.Moved = append(report.Moved, Move{From: p, To: dest})
	}

	return report, nil
}

// gather collects the deduplicated, sorted image files under the sources.
func (o *Organizer) gather(sources []string) []string {
	seen := make(map[string]string)
	for _, root := range sources {
		if !util.DirectoryExists(root) {
			continue
		}
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if o.excluded(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !util.HasImageExtension(d.Name()) {
				return nil
			}
			abs, aerr := filepath.Abs(path)
			if aerr != nil {
				abs = path
			}
			seen[abs] = path
			return nil
		})
	}

	files := make([]string, 0, len(seen))
	for _, p := range seen {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}

// excluded reports whether a directory base name is off limits to the
// sweep. Version control metadata and the timelapse output folder never
// hold source frames.
func (o *Organizer) excluded(base string) bool {
	if base == ".git" || base == "timelapses" {
		return true
	}
	for _, e := range o.Exclude {
		if e != "" && e != "." && base == e {
			return true
		}
	}
	return false
}

// route resolves a filename to its camera by prefix, case-insensitively.
func (o *Organizer) route(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, r := range o.Routes {
		for _, prefix := range r.Prefixes {
			if strings.HasPrefix(lower, strings.ToLower(prefix)) {
				return r.Name, true
			}
		}
	}
	return "", false
}

func sameDir(path, dir string) bool {
	a, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return false
	}
	b, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return a == b
}

// moveFile renames src to dst, copying across filesystems when rename is
// not possible.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// WriteAudit writes a plain text report of the pass into dir and returns
// the report path.
func (r *Report) WriteAudit(dir string) (string, error) {
	stamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("organize_report_%s.txt", stamp))

	var b strings.Builder
	b.WriteString("ORGANIZE IMAGES BY WEEK\n")
	fmt.Fprintf(&b, "Run (UTC): %s\n\n", stamp)
	fmt.Fprintf(&b, "Total scanned: %d\n", r.Scanned)
	fmt.Fprintf(&b, "Moved: %d\n", len(r.Moved))
	fmt.Fprintf(&b, "Unchanged (already correct): %d\n", len(r.Unchanged))
	fmt.Fprintf(&b, "Skipped: %d\n\n", len(r.Skipped))

	if len(r.Moved) > 0 {
		b.WriteString("== MOVED ==\n")
		for i, m := range r.Moved {
			if i >= maxAuditEntries {
				break
			}
			fmt.Fprintf(&b, "%s -> %s\n", m.From, m.To)
		}
		b.WriteString("\n")
	}
	if len(r.Unchanged) > 0 {
		b.WriteString("== UNCHANGED ==\n")
		for i, u := range r.Unchanged {
			if i >= maxAuditEntries {
				break
			}
			fmt.Fprintf(&b, "%s\n", u)
		}
		b.WriteString("\n")
	}
	if len(r.Skipped) > 0 {
		b.WriteString("== SKIPPED ==\n")
		for i, s := range r.Skipped {
			if i >= maxAuditEntries {
				break
			}
			fmt.Fprintf(&b, "%s  (%s)\n", s.Path, s.Reason)
		}
	}

	if err := util.WriteFileAtomic(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}
