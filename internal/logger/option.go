package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelCore narrows a wrapped core to a fixed minimum level.
type levelCore struct {
	zapcore.Core

	level zapcore.Level
}

// Enabled reports whether entries at l pass the fixed level.
func (c *levelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

// Check adds the core to the checked entry when its level is enabled.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With keeps the fixed level on derived cores.
//
//nolint:ireturn // zapcore.Core is the integration point.
func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{c.Core.With(fields), c.level}
}

// WithLevel builds a zap.Option that raises the minimum level of an existing
// logger without touching the shared atomic level. The CLI --quiet flag uses
// it for the publisher so only warnings and failures reach the console.
//
//nolint:ireturn // zap.Option is the integration point.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelCore{core, lvl}
	})
}
