package worker

import (
	"log/slog"

	"go.temporal.io/sdk/log"
)

// sdkLogger adapts slog to the Temporal SDK logger interface.
type sdkLogger struct {
	logger *slog.Logger
}

var _ log.Logger = (*sdkLogger)(nil)

func newSDKLogger(logger *slog.Logger) *sdkLogger {
	return &sdkLogger{logger: logger}
}

func (l *sdkLogger) Debug(msg string, keyvals ...any) { l.logger.Debug(msg, keyvals...) }
func (l *sdkLogger) Info(msg string, keyvals ...any)  { l.logger.Info(msg, keyvals...) }
func (l *sdkLogger) Warn(msg string, keyvals ...any)  { l.logger.Warn(msg, keyvals...) }
func (l *sdkLogger) Error(msg string, keyvals ...any) { l.logger.Error(msg, keyvals...) }
