package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "marketplace-api"

// New builds the logger for the given runtime environment. Production
// and staging emit JSON at info level; every other environment gets a
// colored console encoder at debug level for local work. Output always
// goes to stdout so container runtimes capture the stream.
func New(env string) (*zap.Logger, error) {
	var config zap.Config

	switch env {
	case "production", "staging":
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	log, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return log.With(zap.String("service", serviceName)), nil
}
