package logger

import (
	"go.uber.org/zap/zapcore"
)

// DiagnosticCore is a custom Zap Core that tees automation-scoped log
// entries into the diagnostics collection while still writing to the
// underlying console/JSON core.
type DiagnosticCore struct {
	zapcore.Core
	writer *DiagnosticWriter
}

// NewDiagnosticCore wraps an existing core and adds diagnostic persistence
func NewDiagnosticCore(baseCore zapcore.Core, writer *DiagnosticWriter) zapcore.Core {
	return &DiagnosticCore{
		Core:   baseCore,
		writer: writer,
	}
}

// Write is called for every log entry
func (c *DiagnosticCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var automationID, runID, pubID, kind string

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
		switch f.Key {
		case "automationId":
			automationID = f.String
		case "runId":
			runID = f.String
		case "pubId":
			pubID = f.String
		case "diagnostic":
			kind = f.String
		}
	}

	// Only automation-scoped entries become diagnostics
	if automationID != "" {
		c.writer.Add(DiagnosticEntry{
			Level:        entry.Level,
			Message:      entry.Message,
			Kind:         kind,
			AutomationID: automationID,
			RunID:        runID,
			PubID:        pubID,
		})
	}

	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *DiagnosticCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
