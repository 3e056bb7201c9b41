package core

// LogLevel tags a diagnostic log line emitted by a backend.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// ProgressSink receives incremental progress and diagnostic log lines during
// a long-running generation. It is best-effort telemetry, never
// correctness-affecting: adapters must not block on it, and a sink that is
// absent or fails must not fail the generation.
//
// Sinks never receive API keys. Preview bytes and log lines may contain
// prompt-derived content; callers that persist them are responsible for any
// redaction.
type ProgressSink interface {
	// ReportProgress reports a completion fraction in [0,1]. etaSeconds is
	// zero when unknown; preview is an optional partial image and may be nil.
	ReportProgress(fraction float64, etaSeconds float64, preview []byte)

	// Log reports a free-text diagnostic line.
	Log(level LogLevel, message string)
}

// NopSink is a ProgressSink that discards everything.
type NopSink struct{}

func (NopSink) ReportProgress(float64, float64, []byte) {}
func (NopSink) Log(LogLevel, string)                    {}

// LogFunc adapts a function to a ProgressSink that only cares about log
// lines. Progress reports are dropped.
type LogFunc func(level LogLevel, message string)

func (f LogFunc) ReportProgress(float64, float64, []byte) {}
func (f LogFunc) Log(level LogLevel, message string)      { f(level, message) }

// EmitProgress forwards a progress report to sink, tolerating a nil sink and
// recovering from a panicking implementation.
func EmitProgress(sink ProgressSink, fraction, etaSeconds float64, preview []byte) {
	if sink == nil {
		return
	}
	defer func() { _ = recover() }()
	sink.ReportProgress(fraction, etaSeconds, preview)
}

// EmitLog forwards a log line to sink, tolerating a nil sink and recovering
// from a panicking implementation.
func EmitLog(sink ProgressSink, level LogLevel, message string) {
	if sink == nil {
		return
	}
	defer func() { _ = recover() }()
	sink.Log(level, message)
}
