package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/clipforge/exporter/internal/util"
)

// TerminalReporter outputs human-friendly text and a live progress bar to
// the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent float64
	lastPhase  Phase
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter() *TerminalReporter {
	return &TerminalReporter{
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
	}
}

func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	r.printLabel(10, "CPU cores:", fmt.Sprintf("%d", summary.CPUCores))
}

func (r *TerminalReporter) Initialization(summary InitializationSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("EXPORT")
	r.printLabel(12, "Input:", summary.InputFile)
	r.printLabel(12, "Output:", summary.OutputFile)
	r.printLabel(12, "Duration:", util.FormatDuration(summary.SourceDuration.Seconds()))
	r.printLabel(12, "Source res:", summary.SourceRes)
	r.printLabel(12, "Target res:", fmt.Sprintf("%s @ %dfps", summary.TargetRes, summary.FrameRate))
	r.printLabel(12, "Frames:", fmt.Sprintf("%d", summary.FrameCount))
	if summary.AudioTracks > 0 {
		r.printLabel(12, "Audio:", fmt.Sprintf("%d track(s)", summary.AudioTracks))
	}
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	fmt.Printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

func (r *TerminalReporter) ensureBar(total int) {
	if r.progress != nil {
		return
	}
	r.progress = progressbar.NewOptions(
		total,
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
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) PhaseChanged(phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if phase == r.lastPhase {
		return
	}
	r.lastPhase = phase

	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
		r.maxPercent = 0
	}

	fmt.Println()
	_, _ = r.cyan.Println(strings.ToUpper(string(phase)))
}

func (r *TerminalReporter) FrameProgress(p FrameProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureBar(p.TotalFrames)

	pct := p.Percent()
	if pct >= r.maxPercent {
		r.maxPercent = pct
		_ = r.progress.Set(p.CurrentFrame)
	}

	desc := fmt.Sprintf("%s, %d/%d frames, %.1ffps, %.1fx, eta %s",
		p.Mode, p.CurrentFrame, p.TotalFrames, p.FPS, p.Speed,
		util.FormatDurationFromSecs(int64(p.ETA.Seconds())))
	r.progress.Describe(desc)
}

func (r *TerminalReporter) Tick(p FrameProgress) {
	// A heartbeat during long seeks; the bar already reflects last known
	// progress, so just refresh the description.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		r.progress.Describe(fmt.Sprintf("%s, waiting… %d/%d frames", p.Mode, p.CurrentFrame, p.TotalFrames))
	}
}

func (r *TerminalReporter) FallbackStats(stats FallbackStats) {
	fmt.Printf("  %s seeks=%d hits=%d misses=%d hit_rate=%.1f%%\n",
		r.bold.Sprint("Fallback source:"), stats.Seeks, stats.Hits, stats.Misses, stats.HitRate*100)
}

func (r *TerminalReporter) CameraPipStats(stats CameraPipStats) {
	fmt.Printf("  %s composited=%d skipped=%d\n",
		r.bold.Sprint("Camera PiP:"), stats.FramesComposited, stats.FramesSkipped)
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	fmt.Println()
	_, _ = r.cyan.Println("VALIDATION")

	if summary.Passed {
		fmt.Printf("  %s\n", r.green.Add(color.Bold).Sprint("All checks passed"))
	} else {
		fmt.Printf("  %s\n", r.red.Sprint("Validation failed"))
	}

	maxLen := 0
	for _, step := range summary.Steps {
		if len(step.Name) > maxLen {
			maxLen = len(step.Name)
		}
	}

	for _, step := range summary.Steps {
		status := r.green.Sprint("✓")
		if !step.Passed {
			status = r.red.Sprint("✗")
		}
		paddedName := fmt.Sprintf("%-*s", maxLen, step.Name)
		fmt.Printf("  - %s: %s (%s)\n", paddedName, status, step.Details)
	}

	if summary.QualityScored {
		fmt.Printf("  %s %.3f\n", r.bold.Sprint("SSIMULACRA2:"), summary.QualityScore)
	}
}

func (r *TerminalReporter) ExportComplete(summary ExportOutcome) {
	fmt.Println()
	_, _ = r.cyan.Println("RESULTS")
	fmt.Printf("  %s %s\n", r.bold.Sprint("Output:"), r.bold.Sprint(summary.OutputPath))
	fmt.Printf("  %s %s\n", r.bold.Sprint("Size:"), util.FormatBytesReadable(summary.OutputBytes))
	if summary.InputBytes > 0 {
		reduction := util.CalculateSizeReduction(summary.InputBytes, summary.OutputBytes)
		fmt.Printf("  %s %s -> %s (%.1f%% smaller)\n", r.bold.Sprint("Source:"),
			util.FormatBytes(summary.InputBytes), util.FormatBytes(summary.OutputBytes), reduction)
	}
	fmt.Printf("  %s %d frames (%s)\n", r.bold.Sprint("Frames:"), summary.FrameCount, summary.Mode)
	fmt.Printf("  %s %s (avg speed %.1fx)\n",
		r.bold.Sprint("Time:"),
		util.FormatDurationFromSecs(int64(summary.Duration.Seconds())),
		summary.AverageSpeed)
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR [%s] %s\n", err.Kind, err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}
