package logger

import (
	"context"
	"fmt"
	"time"

	"go-pubflow/internal/config"
	"go-pubflow/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// DiagnosticEntry holds the data passed from Zap to the worker
type DiagnosticEntry struct {
	Level        zapcore.Level
	Message      string
	Kind         string // evaluation_error, invalid_configuration, ...
	AutomationID string
	RunID        string
	PubID        string
}

// DiagnosticWriter handles the async persistence of diagnostics
type DiagnosticWriter struct {
	db       *mongo.Database
	diagChan chan DiagnosticEntry
	appId    string
}

// NewDiagnosticWriter initializes the worker
func NewDiagnosticWriter(mongodb *database.MongodbDB, cfg *config.Config) *DiagnosticWriter {
	writer := &DiagnosticWriter{
		db:       mongodb.DB,
		diagChan: make(chan DiagnosticEntry, 1000),
		appId:    cfg.AppId,
	}

	// Start the background worker immediately
	go writer.processDiagnostics()

	return writer
}

// Add is called by the Zap hook
func (w *DiagnosticWriter) Add(entry DiagnosticEntry) {
	select {
	case w.diagChan <- entry:
	default:
		// Channel full: drop rather than block the event pipeline
		fmt.Println("Diagnostic channel full! Dropping:", entry.Message)
	}
}

func (w *DiagnosticWriter) processDiagnostics() {
	for entry := range w.diagChan {
		record := map[string]interface{}{
			"app_id":        w.appId,
			"level":         entry.Level.String(),
			"kind":          entry.Kind,
			"message":       entry.Message,
			"automation_id": entry.AutomationID,
			"run_id":        entry.RunID,
			"pub_id":        entry.PubID,
			"created_at":    time.Now().UTC(),
		}

		// Insert errors are swallowed to keep the app running
		w.db.Collection("diagnostics").InsertOne(context.Background(), record)
	}
}
