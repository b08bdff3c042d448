package reporter

// CompositeReporter forwards every event to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a reporter that fans out to all given reporters.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) Hardware(summary HardwareSummary) {
	for _, r := range c.reporters {
		r.Hardware(summary)
	}
}

func (c *CompositeReporter) ScanComplete(summary ScanSummary) {
	for _, r := range c.reporters {
		r.ScanComplete(summary)
	}
}

func (c *CompositeReporter) WindowComputed(summary WindowSummary) {
	for _, r := range c.reporters {
		r.WindowComputed(summary)
	}
}

func (c *CompositeReporter) SelectionComplete(summary SelectionSummary) {
	for _, r := range c.reporters {
		r.SelectionComplete(summary)
	}
}

func (c *CompositeReporter) EncodingStarted(totalFrames int) {
	for _, r := range c.reporters {
		r.EncodingStarted(totalFrames)
	}
}

func (c *CompositeReporter) EncodingProgress(done, total int) {
	for _, r := range c.reporters {
		r.EncodingProgress(done, total)
	}
}

func (c *CompositeReporter) FrameSkipped(path, reason string) {
	for _, r := range c.reporters {
		r.FrameSkipped(path, reason)
	}
}

func (c *CompositeReporter) BuildComplete(summary BuildOutcome) {
	for _, r := range c.reporters {
		r.BuildComplete(summary)
	}
}

func (c *CompositeReporter) FetchComplete(summary FetchOutcome) {
	for _, r := range c.reporters {
		r.FetchComplete(summary)
	}
}

func (c *CompositeReporter) OrganizeComplete(summary OrganizeSummary) {
	for _, r := range c.reporters {
		r.OrganizeComplete(summary)
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

func (c *CompositeReporter) OperationComplete(message string) {
	for _, r := range c.reporters {
		r.OperationComplete(message)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
