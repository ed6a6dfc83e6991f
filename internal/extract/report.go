package extract

import "log/slog"

// Reporter receives the extractor's anomaly diagnostics. Extraction never
// fails; everything from a malformed namespace to a dropped attribute is
// reported here and processing continues. Implementations must not panic.
type Reporter interface {
	Warn(tag, msg string)
	Error(tag, msg string)
}

// NewSlogReporter adapts a slog logger to the Reporter interface. A nil
// logger uses slog.Default.
func NewSlogReporter(l *slog.Logger) Reporter {
	if l == nil {
		l = slog.Default()
	}
	return &slogReporter{l: l}
}

type slogReporter struct {
	l *slog.Logger
}

func (r *slogReporter) Warn(tag, msg string)  { r.l.Warn(msg, "tag", tag) }
func (r *slogReporter) Error(tag, msg string) { r.l.Error(msg, "tag", tag) }

// NopReporter discards all diagnostics.
type NopReporter struct{}

func (NopReporter) Warn(tag, msg string)  {}
func (NopReporter) Error(tag, msg string) {}
