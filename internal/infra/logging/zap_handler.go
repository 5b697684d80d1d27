package logging

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapHandler implements slog.Handler on top of a zap logger. It is used for
// JSON output so that production logs share zap's encoder and field layout.
type ZapHandler struct {
	logger *zap.Logger
	level  slog.Leveler
	fields []zap.Field
	groups []zapGroup
}

// zapGroup is a group opened by WithGroup and the attrs added inside it.
type zapGroup struct {
	name   string
	fields []zap.Field
}

var _ slog.Handler = (*ZapHandler)(nil)

// NewZapHandler creates a ZapHandler writing through the given zap logger.
// Records below level are dropped before they reach zap.
func NewZapHandler(logger *zap.Logger, level slog.Leveler) *ZapHandler {
	return &ZapHandler{logger: logger, level: level}
}

func newZapLogger(output io.Writer) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.MessageKey = "msg"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(output),
		zapcore.DebugLevel,
	)

	return zap.New(core)
}

// Handle implements slog.Handler.
func (h *ZapHandler) Handle(_ context.Context, r slog.Record) error {
	ce := h.logger.Check(zapLevel(r.Level), r.Message)
	if ce == nil {
		return nil
	}

	fields := make([]zap.Field, 0, len(h.fields)+r.NumAttrs()+1)
	fields = append(fields, h.fields...)

	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fields = append(fields, zap.String("source", f.File+":"+strconv.Itoa(f.Line)))
	}

	var attrs []zap.Field

	r.Attrs(func(a slog.Attr) bool {
		if field, ok := zapField(a); ok {
			attrs = append(attrs, field)
		}

		return true
	})

	fields = append(fields, h.nest(attrs)...)

	ce.Write(fields...)

	return nil
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ZapHandler) WithAttrs(attrs []slog.Attr) Handler {
	var converted []zap.Field

	for _, a := range attrs {
		if field, ok := zapField(a); ok {
			converted = append(converted, field)
		}
	}

	clone := &ZapHandler{logger: h.logger, level: h.level, fields: h.fields, groups: h.groups}

	if len(h.groups) == 0 {
		clone.fields = append(append([]zap.Field{}, h.fields...), converted...)

		return clone
	}

	// attrs added after a group belong to that group
	clone.groups = append([]zapGroup{}, h.groups...)
	last := &clone.groups[len(clone.groups)-1]
	last.fields = append(append([]zap.Field{}, last.fields...), converted...)

	return clone
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ZapHandler) WithGroup(name string) Handler {
	if name == "" {
		return h
	}

	return &ZapHandler{
		logger: h.logger,
		level:  h.level,
		fields: h.fields,
		groups: append(append([]zapGroup{}, h.groups...), zapGroup{name: name}),
	}
}

// Enabled implements slog.Handler.Enabled.
func (h *ZapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.level.Level() <= level
}

// nest wraps the record attrs into the open groups, innermost first. Groups
// left without any field are omitted.
func (h *ZapHandler) nest(attrs []zap.Field) []zap.Field {
	for i := len(h.groups) - 1; i >= 0; i-- {
		group := h.groups[i]
		inner := append(append([]zap.Field{}, group.fields...), attrs...)

		if len(inner) == 0 {
			attrs = nil

			continue
		}

		attrs = []zap.Field{zap.Object(group.name, fieldObject(inner))}
	}

	return attrs
}

type fieldObject []zap.Field

func (fo fieldObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, f := range fo {
		f.AddTo(enc)
	}

	return nil
}

//nolint:cyclop
func zapField(a slog.Attr) (zap.Field, bool) {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return zap.Skip(), false
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return zap.String(a.Key, a.Value.String()), true
	case slog.KindInt64:
		return zap.Int64(a.Key, a.Value.Int64()), true
	case slog.KindUint64:
		return zap.Uint64(a.Key, a.Value.Uint64()), true
	case slog.KindFloat64:
		return zap.Float64(a.Key, a.Value.Float64()), true
	case slog.KindBool:
		return zap.Bool(a.Key, a.Value.Bool()), true
	case slog.KindDuration:
		return zap.Duration(a.Key, a.Value.Duration()), true
	case slog.KindTime:
		return zap.Time(a.Key, a.Value.Time()), true
	case slog.KindGroup:
		var group []zap.Field

		for _, ga := range a.Value.Group() {
			if field, ok := zapField(ga); ok {
				group = append(group, field)
			}
		}

		if len(group) == 0 {
			return zap.Skip(), false
		}

		if a.Key == "" {
			return zap.Inline(fieldObject(group)), true
		}

		return zap.Object(a.Key, fieldObject(group)), true
	case slog.KindAny, slog.KindLogValuer:
		fallthrough
	default:
		if err, ok := a.Value.Any().(error); ok {
			return zap.NamedError(a.Key, err), true
		}

		return zap.Any(a.Key, a.Value.Any()), true
	}
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
