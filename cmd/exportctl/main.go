// Command exportctl is the CLI front end for the export pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	export "github.com/clipforge/exporter"
	"github.com/clipforge/exporter/internal/config"
	"github.com/clipforge/exporter/internal/logging"
	"github.com/clipforge/exporter/internal/probe"
	"github.com/clipforge/exporter/internal/reporter"
)

const (
	appName    = "exportctl"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Export screen recordings through the staged video export pipeline",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
			return nil
		},
	}
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print container, codec, and track information for a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			info, err := probe.Probe(ctx, args[0])
			if err != nil {
				return fmt.Errorf("probe failed: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func newRunCmd() *cobra.Command {
	var planPath string
	var format string
	var logDir string
	var verbose bool
	var noLog bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one export plan end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			if planPath == "" {
				return fmt.Errorf("--plan is required")
			}
			if format != "json" && format != "term" {
				return fmt.Errorf("--format must be json or term, got %q", format)
			}
			return runExport(cmd.Context(), planPath, format, logDir, verbose, noLog)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to a JSON export plan file")
	cmd.Flags().StringVar(&format, "format", "term", "Progress output format: term or json")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Log directory (defaults to ~/.local/state/exportctl/logs)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose run-log output")
	cmd.Flags().BoolVar(&noLog, "no-log", false, "Disable run-log file creation")
	return cmd
}

func loadPlan(path string) (*config.ExportPlan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	var plan config.ExportPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	plan.Normalize()
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return &plan, nil
}

func runExport(ctx context.Context, planPath, format, logDir string, verbose, noLog bool) error {
	plan, err := loadPlan(planPath)
	if err != nil {
		return err
	}

	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".local", "state", appName, "logs")
	}
	runLog, err := logging.SetupRunLog(logDir, verbose, noLog)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	if runLog != nil {
		defer func() { _ = runLog.Close() }()
		runLog.Info("exporting %s -> %s", plan.VideoURL, plan.OutputPath)
	}

	var rep reporter.Reporter
	if format == "json" {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		if runLog != nil {
			runLog.Info("received interrupt, aborting export")
		}
		cancel()
	}()

	job, err := export.New(plan.VideoURL, plan.OutputPath, plan.Target,
		withPlanOptions(plan)...)
	if err != nil {
		return err
	}

	summary, err := job.Run(runCtx, rep)
	if err != nil {
		if runLog != nil {
			runLog.Error("export failed: %v", err)
		}
		return err
	}
	if runLog != nil {
		runLog.Info("export %s complete: %s (%d bytes)", summary.RunID, summary.OutputPath, summary.OutputBytes)
	}
	return nil
}

// withPlanOptions adapts a fully-populated ExportPlan (as decoded from
// JSON) into export.Options, so CLI-loaded plans and SDK callers share the
// same construction path through export.New rather than bypassing its
// validation.
func withPlanOptions(plan *config.ExportPlan) []export.Option {
	opts := []export.Option{
		export.WithFormat(plan.Format),
		export.WithTrimRegions(plan.TrimRegions),
		export.WithRenderPlan(plan.RenderPlan),
		export.WithParallelRendering(plan.ParallelRendering),
		export.WithRenderWorkers(plan.RenderWorkers),
		export.WithWorkerErrorThreshold(plan.WorkerErrorThreshold),
	}
	for _, a := range plan.AudioInputs {
		opts = append(opts, export.WithAudioInput(a))
	}
	if plan.CameraPip != nil {
		opts = append(opts, export.WithCameraPip(*plan.CameraPip))
	}
	return opts
}
