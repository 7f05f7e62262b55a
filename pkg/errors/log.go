package errors

import (
	"go.uber.org/zap"
)

// LogHandler is an ErrorHandler that logs through zap.
type LogHandler struct {
	// Verbose adds stack traces to log entries.
	Verbose bool

	logger *zap.Logger
}

// NewLogHandler returns a LogHandler writing to logger. A nil logger falls
// back to zap.NewProduction, or a no-op logger if that cannot be built.
func NewLogHandler(logger *zap.Logger) *LogHandler {
	if logger == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	}
	return &LogHandler{logger: logger.Named("nativekit")}
}

// HandleError logs a KitError at error level.
func (h *LogHandler) HandleError(err *KitError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Stringer("kind", err.Kind),
		zap.Error(err.Err),
	}
	if err.Event != "" {
		fields = append(fields, zap.String("event", err.Event))
	}
	if err.Channel != "" {
		fields = append(fields, zap.String("channel", err.Channel))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger.Error("nativekit error", fields...)
}

// HandlePanic logs a PanicError at error level.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("op", err.Op),
		zap.Any("value", err.Value),
	}
	if err.Event != "" {
		fields = append(fields, zap.String("event", err.Event))
	}
	if h.Verbose && err.StackTrace != "" {
		fields = append(fields, zap.String("stack", err.StackTrace))
	}
	h.logger.Error("nativekit panic", fields...)
}
