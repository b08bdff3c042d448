package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	ScanComplete(summary ScanSummary)
	WindowComputed(summary WindowSummary)
	SelectionComplete(summary SelectionSummary)
	EncodingStarted(totalFrames int)
	EncodingProgress(done, total int)
	FrameSkipped(path, reason string)
	BuildComplete(summary BuildOutcome)
	FetchComplete(summary FetchOutcome)
	OrganizeComplete(summary OrganizeSummary)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)           {}
func (NullReporter) ScanComplete(ScanSummary)           {}
func (NullReporter) WindowComputed(WindowSummary)       {}
func (NullReporter) SelectionComplete(SelectionSummary) {}
func (NullReporter) EncodingStarted(int)                {}
func (NullReporter) EncodingProgress(int, int)          {}
func (NullReporter) FrameSkipped(string, string)        {}
func (NullReporter) BuildComplete(BuildOutcome)         {}
func (NullReporter) FetchComplete(FetchOutcome)         {}
func (NullReporter) OrganizeComplete(OrganizeSummary)   {}
func (NullReporter) Warning(string)                     {}
func (NullReporter) Error(ReporterError)                {}
func (NullReporter) OperationComplete(string)           {}
func (NullReporter) Verbose(string)                     {}
