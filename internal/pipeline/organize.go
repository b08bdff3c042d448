package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/errors"
	"github.com/sierracams/snowlapse/internal/logging"
	"github.com/sierracams/snowlapse/internal/reporter"
	"github.com/sierracams/snowlapse/internal/weekly"
)

// Organize files timestamped images from the source folders into weekly
// folders under the first frame root and writes an audit report next to
// them. With no sources given, the root itself is tidied in place.
func Organize(ctx context.Context, cfg *config.Config, sources []string, rep reporter.Reporter, logger *logging.Logger) (*weekly.Report, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if len(cfg.FrameRoots) == 0 {
		return nil, errors.NewConfigError("no frame root configured to organize into")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	root := cfg.FrameRoots[0]
	if len(sources) == 0 {
		sources = []string{root}
	}

	org := &weekly.Organizer{Root: root, Routes: cfg.Cameras, TZ: loc}
	if cfg.OutputDir != "" {
		org.Exclude = []string{filepath.Base(cfg.OutputDir)}
	}
	report, err := org.Organize(ctx, sources)
	if err != nil {
		if errors.IsCancelled(err) {
			rep.Warning("Organize cancelled")
		}
		return report, err
	}

	auditPath := ""
	if !cfg.NoAudit {
		auditPath, err = report.WriteAudit(root)
		if err != nil {
			rep.Warning(fmt.Sprintf("Could not write the audit report: %v", err))
			auditPath = ""
		}
	}

	logger.Info("Organize pass scanned %d, moved %d, unchanged %d, skipped %d",
		report.Scanned, len(report.Moved), len(report.Unchanged), len(report.Skipped))
	rep.OrganizeComplete(reporter.OrganizeSummary{
		Scanned:   report.Scanned,
		Moved:     len(report.Moved),
		Unchanged: len(report.Unchanged),
		Skipped:   len(report.Skipped),
		AuditPath: auditPath,
	})
	rep.OperationComplete(fmt.Sprintf("Organized %d files into weekly folders", len(report.Moved)))

	return report, nil
}
