package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter is a zapcore.Core that forwards entries to a Logger, so code
// written against *zap.Logger ends up in the same stream as everything else.
type ZapAdapter struct {
	logger *Logger
}

// NewZapAdapter creates a new zapcore.Core that forwards logs to our Logger
func NewZapAdapter(logger *Logger) *ZapAdapter {
	return &ZapAdapter{
		logger: logger,
	}
}

func levelOf(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.FatalLevel:
		return FatalLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// fieldsOf decodes zap fields through a map encoder, which understands every
// field type including floats, durations and errors.
func fieldsOf(fields []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

// Enabled implements zapcore.Core
func (a *ZapAdapter) Enabled(level zapcore.Level) bool {
	return a.logger.shouldLog(levelOf(level))
}

// With implements zapcore.Core
func (a *ZapAdapter) With(fields []zapcore.Field) zapcore.Core {
	return &ZapAdapter{
		logger: a.logger.WithFields(fieldsOf(fields)),
	}
}

// Check implements zapcore.Core
func (a *ZapAdapter) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if a.Enabled(ent.Level) {
		return ce.AddCore(ent, a)
	}
	return ce
}

// Write implements zapcore.Core. Fatal entries exit through Logger.
func (a *ZapAdapter) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := fieldsOf(fields)
	if ent.Caller.Defined {
		f["caller"] = ent.Caller.TrimmedPath()
	}
	if ent.LoggerName != "" {
		f["logger"] = ent.LoggerName
	}
	a.logger.log(levelOf(ent.Level), ent.Message, f)
	return nil
}

// Sync implements zapcore.Core
func (a *ZapAdapter) Sync() error {
	return nil
}

// NewZapLogger creates a new *zap.Logger that forwards logs to our Logger
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(NewZapAdapter(logger), zap.AddCaller())
}
