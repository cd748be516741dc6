package logger

import (
	"github.com/nulzo/chat-router/internal/security"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// redactingCore masks credentials in messages and fields before they reach
// the wrapped core.
type redactingCore struct {
	zapcore.Core
}

// NewRedactingCore wraps core so that no entry can leak a provider key.
func NewRedactingCore(core zapcore.Core) zapcore.Core {
	return &redactingCore{Core: core}
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = security.Redact(ent.Message)
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zapcore.Field) zapcore.Field {
	if security.IsSensitiveKey(f.Key) {
		return zap.String(f.Key, security.RedactedPlaceholder)
	}
	switch f.Type {
	case zapcore.StringType:
		f.String = security.Redact(f.String)
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			return zap.String(f.Key, security.Redact(err.Error()))
		}
	case zapcore.StringerType:
		if s, ok := f.Interface.(interface{ String() string }); ok {
			return zap.String(f.Key, security.Redact(s.String()))
		}
	}
	return f
}
