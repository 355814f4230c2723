package reporter

// Reporter defines the interface for export progress and event reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	Initialization(summary InitializationSummary)
	StageProgress(update StageProgress)
	PhaseChanged(phase Phase)
	FrameProgress(progress FrameProgress)
	Tick(progress FrameProgress)
	FallbackStats(stats FallbackStats)
	CameraPipStats(stats CameraPipStats)
	ValidationComplete(summary ValidationSummary)
	ExportComplete(summary ExportOutcome)
	Warning(message string)
	Error(err ReporterError)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)             {}
func (NullReporter) Initialization(InitializationSummary) {}
func (NullReporter) StageProgress(StageProgress)          {}
func (NullReporter) PhaseChanged(Phase)                   {}
func (NullReporter) FrameProgress(FrameProgress)          {}
func (NullReporter) Tick(FrameProgress)                   {}
func (NullReporter) FallbackStats(FallbackStats)          {}
func (NullReporter) CameraPipStats(CameraPipStats)        {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) ExportComplete(ExportOutcome)         {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
