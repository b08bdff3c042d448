package pipeline

import (
	"context"
	"fmt"

	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/errors"
	"github.com/sierracams/snowlapse/internal/fetch"
	"github.com/sierracams/snowlapse/internal/logging"
	"github.com/sierracams/snowlapse/internal/reporter"
)

// Fetch downloads one webcam snapshot into the weekly folder tree under the
// first frame root.
func Fetch(ctx context.Context, cfg *config.Config, rep reporter.Reporter, logger *logging.Logger) (*fetch.Result, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if len(cfg.FrameRoots) == 0 {
		return nil, errors.NewConfigError("no frame root configured for snapshots")
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(cfg.SnapshotURL, cfg.FrameRoots[0], loc, cfg.FetchTimeout())
	client.MirrorDir = cfg.MirrorDir
	client.Prefix = cfg.FilePrefix

	result, err := client.Snap(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("Snapshot saved to %s, %d bytes", result.Path, result.Size)
	rep.FetchComplete(reporter.FetchOutcome{
		Path:       result.Path,
		MirrorPath: result.MirrorPath,
		Size:       result.Size,
		CapturedAt: result.CapturedAt,
	})
	rep.OperationComplete(fmt.Sprintf("Snapshot saved to %s", result.Path))

	return result, nil
}
