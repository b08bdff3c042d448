// Package main provides the CLI entry point for snowlapse.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sierracams/snowlapse/internal/config"
	"github.com/sierracams/snowlapse/internal/logging"
	"github.com/sierracams/snowlapse/internal/pipeline"
	"github.com/sierracams/snowlapse/internal/reporter"
)

const (
	appName    = "snowlapse"
	appVersion = "0.3.0"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	frames  []string
	output  string
	logDir  string
	verbose bool
	jsonOut bool
	noLog   bool
}

var rootOpts rootOptions

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Webcam snapshot archive and timelapse builder",
		Long:          "Snowlapse downloads webcam snapshots, files them into weekly folders\nand assembles the recent ones into MP4 timelapses with ffmpeg.",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetVersionTemplate(fmt.Sprintf("%s version {{.Version}}\n", appName))

	pf := root.PersistentFlags()
	pf.StringSliceVarP(&rootOpts.frames, "frames", "f", []string{"frames"}, "Frame folders to read")
	pf.StringVarP(&rootOpts.output, "output", "o", "timelapses", "Output directory for videos")
	pf.StringVarP(&rootOpts.logDir, "log-dir", "l", "", "Log directory (defaults to OUTPUT/logs)")
	pf.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVar(&rootOpts.jsonOut, "json", false, "Emit newline-delimited JSON events instead of terminal output")
	pf.BoolVar(&rootOpts.noLog, "no-log", false, "Disable log file creation")
	pf.String("timezone", config.DefaultTimezone, "IANA timezone of the camera site")

	root.AddCommand(newFetchCmd())
	root.AddCommand(newOrganizeCmd())
	root.AddCommand(newBuildCmd())

	return root
}

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download one webcam snapshot into the weekly folder tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			fl := cmd.Flags()
			if fl.Changed("url") {
				cfg.SnapshotURL, _ = fl.GetString("url")
			}
			if fl.Changed("prefix") {
				cfg.FilePrefix, _ = fl.GetString("prefix")
			}
			if fl.Changed("mirror-dir") {
				cfg.MirrorDir, _ = fl.GetString("mirror-dir")
			}
			if fl.Changed("timeout-secs") {
				cfg.FetchTimeoutSecs, _ = fl.GetUint("timeout-secs")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runOperation(cfg, "fetch", func(ctx context.Context, rep reporter.Reporter, logger *logging.Logger) error {
				_, err := pipeline.Fetch(ctx, cfg, rep, logger)
				return err
			})
		},
	}

	fl := cmd.Flags()
	fl.String("url", config.DefaultSnapshotURL, "Snapshot endpoint URL")
	fl.String("prefix", config.DefaultFilePrefix, "Filename prefix for downloaded snapshots")
	fl.String("mirror-dir", "", "Also copy each snapshot into this flat directory")
	fl.Uint("timeout-secs", config.DefaultFetchTimeoutSecs, "HTTP timeout in seconds")

	return cmd
}

func newOrganizeCmd() *cobra.Command {
	var sources []string
	var cameras []string

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "File timestamped images into weekly folders",
		Long: "Organize moves every timestamped image from the source folders into\n" +
			"Week NN - DD-DDMon folders under the first frame root and writes an\n" +
			"audit report next to them. Without sources, the frame root itself is\n" +
			"tidied in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			for _, route := range cameras {
				parsed, err := config.ParseCameraRoute(route)
				if err != nil {
					return err
				}
				cfg.Cameras = append(cfg.Cameras, parsed)
			}
			if fl := cmd.Flags(); fl.Changed("no-audit") {
				cfg.NoAudit, _ = fl.GetBool("no-audit")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runOperation(cfg, "organize", func(ctx context.Context, rep reporter.Reporter, logger *logging.Logger) error {
				_, err := pipeline.Organize(ctx, cfg, sources, rep, logger)
				return err
			})
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&sources, "source", "s", nil, "Folder to gather images from (repeatable)")
	fl.StringArrayVar(&cameras, "camera", nil, "Camera route as NAME=PREFIX[,PREFIX...] (repeatable)")
	fl.Bool("no-audit", false, "Skip the audit report")

	return cmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble a timelapse from the cataloged frames",
		Long: "Build catalogs the timestamped snapshots, picks frames on a fixed\n" +
			"time grid inside the sunrise-anchored capture window, screens out\n" +
			"broken captures and pipes the rest into one ffmpeg encode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			fl := cmd.Flags()
			if fl.Changed("mode") {
				raw, _ := fl.GetString("mode")
				mode, err := config.ParseMode(raw)
				if err != nil {
					return err
				}
				cfg.Mode = mode
			}
			if v, _ := fl.GetBool("all-frames"); v {
				cfg.Mode = config.ModeAllFrames
			}
			if v, _ := fl.GetBool("composite"); v {
				cfg.Mode = config.ModeComposite
			}
			if fl.Changed("step-mins") {
				cfg.StepMinutes, _ = fl.GetUint("step-mins")
			}
			if fl.Changed("tolerance-secs") {
				cfg.ToleranceSecs, _ = fl.GetUint("tolerance-secs")
			}
			if fl.Changed("fps") {
				cfg.FPS, _ = fl.GetUint("fps")
			}
			if fl.Changed("days") {
				cfg.WindowDays, _ = fl.GetUint("days")
			}
			if fl.Changed("lead-mins") {
				cfg.SunriseLeadMins, _ = fl.GetUint("lead-mins")
			}
			if fl.Changed("latitude") {
				cfg.Latitude, _ = fl.GetFloat64("latitude")
			}
			if fl.Changed("longitude") {
				cfg.Longitude, _ = fl.GetFloat64("longitude")
			}
			if fl.Changed("day-start") {
				cfg.DayStart, _ = fl.GetString("day-start")
			}
			if fl.Changed("from") {
				cfg.FromOverride, _ = fl.GetString("from")
			}
			if fl.Changed("to") {
				cfg.ToOverride, _ = fl.GetString("to")
			}
			if fl.Changed("allow-repeat-day") {
				allow, _ := fl.GetBool("allow-repeat-day")
				cfg.ForbidRepeatDay = !allow
			}
			if fl.Changed("keep-stale") {
				cfg.KeepStale, _ = fl.GetBool("keep-stale")
			}
			if fl.Changed("flat") {
				flat, _ := fl.GetBool("flat")
				cfg.Recursive = !flat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runOperation(cfg, "build", func(ctx context.Context, rep reporter.Reporter, logger *logging.Logger) error {
				_, err := pipeline.Build(ctx, cfg, rep, logger)
				return err
			})
		},
	}

	fl := cmd.Flags()
	fl.String("mode", config.ModeWindow.String(), "Frame selection mode (window, all-frames, composite)")
	fl.Bool("all-frames", false, "Keep every in-window frame instead of grid sampling")
	fl.Bool("composite", false, "Fold all cataloged days onto one synthetic day")
	fl.Uint("step-mins", config.DefaultStepMinutes, "Grid spacing in minutes")
	fl.Uint("tolerance-secs", 0, "Matching tolerance in seconds (0 = half the step)")
	fl.Uint("fps", config.DefaultFPS, "Playback frame rate")
	fl.Uint("days", config.DefaultWindowDays, "How many days back the capture window opens")
	fl.Uint("lead-mins", config.DefaultSunriseLeadMins, "Minutes before sunrise the window starts")
	fl.Float64("latitude", config.DefaultLatitude, "Camera latitude for sunrise computation")
	fl.Float64("longitude", config.DefaultLongitude, "Camera longitude for sunrise computation")
	fl.String("day-start", config.DefaultDayStart, "Local HH:MM where the composite day begins")
	fl.String("from", "", "RFC 3339 instant overriding the computed window start")
	fl.String("to", "", "RFC 3339 instant overriding the newest-frame window end")
	fl.Bool("allow-repeat-day", false, "Let consecutive composite slots share a calendar day")
	fl.Bool("keep-stale", false, "Keep prior outputs with the same name prefix")
	fl.Bool("flat", false, "Do not descend into subfolders when scanning frames")
	cmd.MarkFlagsMutuallyExclusive("mode", "all-frames", "composite")

	return cmd
}

// loadConfig builds the effective configuration: defaults, then
// SNOWLAPSE_ environment overrides, then explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig(rootOpts.frames, rootOpts.output, rootOpts.logDir)

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	pf := cmd.Root().PersistentFlags()
	if pf.Changed("frames") {
		cfg.FrameRoots = rootOpts.frames
	}
	if pf.Changed("output") {
		cfg.OutputDir = rootOpts.output
	}
	if pf.Changed("log-dir") {
		cfg.LogDir = rootOpts.logDir
	}
	if pf.Changed("timezone") {
		cfg.Timezone, _ = pf.GetString("timezone")
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.OutputDir, "logs")
	}

	return cfg, nil
}

// runOperation wires up logging, the reporter and signal handling around
// one pipeline operation.
func runOperation(cfg *config.Config, operation string, op func(context.Context, reporter.Reporter, *logging.Logger) error) error {
	logger, err := logging.Setup(cfg.LogDir, operation, rootOpts.verbose, rootOpts.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	var rep reporter.Reporter
	if rootOpts.jsonOut {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter(rootOpts.verbose)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return op(ctx, rep, logger)
}
