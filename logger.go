package pil

import "context"

// Logger is the minimal logging seam a Writer reports progress through,
// mirroring the teacher's internal/base.LoggerAndTracer split (see
// sstable/table.go's logger.Eventf/IsTracingEnabled calls around slow
// footer reads): a plain Infof sink for ordinary progress, plus an
// Eventf call gated by IsTracingEnabled so an embedder without tracing
// wired up never pays for formatting a message nobody will see.
type Logger interface {
	Infof(format string, args ...interface{})
	IsTracingEnabled(ctx context.Context) bool
	Eventf(ctx context.Context, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...interface{})                   {}
func (noopLogger) IsTracingEnabled(context.Context) bool          { return false }
func (noopLogger) Eventf(context.Context, string, ...interface{}) {}

// NopLogger discards everything. It is the default a Writer falls back
// to when WriterOptions.Logger is nil, so embedding applications aren't
// forced to wire a logger just to construct a Writer.
var NopLogger Logger = noopLogger{}
