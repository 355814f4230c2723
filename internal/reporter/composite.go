package reporter

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) Hardware(summary HardwareSummary) {
	for _, r := range c.reporters {
		r.Hardware(summary)
	}
}

func (c *CompositeReporter) Initialization(summary InitializationSummary) {
	for _, r := range c.reporters {
		r.Initialization(summary)
	}
}

func (c *CompositeReporter) StageProgress(update StageProgress) {
	for _, r := range c.reporters {
		r.StageProgress(update)
	}
}

func (c *CompositeReporter) PhaseChanged(phase Phase) {
	for _, r := range c.reporters {
		r.PhaseChanged(phase)
	}
}

func (c *CompositeReporter) FrameProgress(progress FrameProgress) {
	for _, r := range c.reporters {
		r.FrameProgress(progress)
	}
}

func (c *CompositeReporter) Tick(progress FrameProgress) {
	for _, r := range c.reporters {
		r.Tick(progress)
	}
}

func (c *CompositeReporter) FallbackStats(stats FallbackStats) {
	for _, r := range c.reporters {
		r.FallbackStats(stats)
	}
}

func (c *CompositeReporter) CameraPipStats(stats CameraPipStats) {
	for _, r := range c.reporters {
		r.CameraPipStats(stats)
	}
}

func (c *CompositeReporter) ValidationComplete(summary ValidationSummary) {
	for _, r := range c.reporters {
		r.ValidationComplete(summary)
	}
}

func (c *CompositeReporter) ExportComplete(summary ExportOutcome) {
	for _, r := range c.reporters {
		r.ExportComplete(summary)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReporterError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}
