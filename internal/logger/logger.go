package logger

import (
	"go-pubflow/internal/config"
	"go-pubflow/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the application logger. Log entries that carry an
// automationId field are additionally persisted as author-visible
// diagnostics (evaluation errors, invalid configurations).
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	writer := NewDiagnosticWriter(mongodb, cfg)

	finalCore := NewDiagnosticCore(baseLogger.Core(), writer)

	return zap.New(finalCore, zap.AddCaller()), nil
}
