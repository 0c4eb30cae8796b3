package log

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to every ss-sync component.
// Keys and values follow the logr convention, see toFields.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	// Error logs at ErrorLevel with a stack trace. err may be nil.
	Error(err error, msg string, keysAndValues ...any)

	WithName(name string) Logger
	WithValues(keysAndValues ...any) Logger

	// Logr exposes the same core to code that expects a logr.Logger.
	Logr() logr.Logger

	// Sync flushes buffered entries.
	Sync() error
}

var _ Logger = (*zapLogger)(nil)

type zapLogger struct {
	core *zap.Logger
}

// NewLogger builds a Logger from opts. A nil opts uses NewOptions().
func NewLogger(opts *Options) Logger {
	if opts == nil {
		opts = NewOptions()
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.Format == FormatConsole && opts.EnableColor {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// stdout belongs to the console notifier.
	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	core, err := (&zap.Config{
		DisableCaller:    opts.DisableCaller,
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         opts.Format,
		EncoderConfig:    enc,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}).Build(zap.AddCallerSkip(opts.CallerSkip), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		panic(fmt.Sprintf("failed to build zap logger: %v", err))
	}

	if opts.Name != "" {
		core = core.Named(opts.Name)
	}
	return &zapLogger{core: core}
}

// NewFromZap wraps an existing zap logger, mainly for tests using zaptest/observer.
func NewFromZap(l *zap.Logger) Logger {
	return &zapLogger{core: l}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &zapLogger{core: zap.NewNop()}
}

func (z *zapLogger) Debug(msg string, kv ...any) { z.core.Debug(msg, toFields(kv...)...) }
func (z *zapLogger) Info(msg string, kv ...any)  { z.core.Info(msg, toFields(kv...)...) }
func (z *zapLogger) Warn(msg string, kv ...any)  { z.core.Warn(msg, toFields(kv...)...) }

func (z *zapLogger) Error(err error, msg string, kv ...any) {
	fields := toFields(kv...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	z.core.Error(msg, fields...)
}

func (z *zapLogger) WithName(name string) Logger { return &zapLogger{core: z.core.Named(name)} }
func (z *zapLogger) WithValues(kv ...any) Logger { return &zapLogger{core: z.core.With(toFields(kv...)...)} }
func (z *zapLogger) Logr() logr.Logger           { return zapr.NewLogger(z.core) }
func (z *zapLogger) Sync() error                 { return z.core.Sync() }

// IntoContext stores l in ctx as a logr.Logger so that handlers further down
// can log with the caller's name and values.
func IntoContext(ctx context.Context, l Logger) context.Context {
	return logr.NewContext(ctx, l.Logr())
}

// FromContext returns the logger stored by IntoContext, or the global logger.
func FromContext(ctx context.Context) Logger {
	lr, err := logr.FromContext(ctx)
	if err != nil {
		return std()
	}
	u, ok := lr.GetSink().(zapr.Underlier)
	if !ok {
		return std()
	}
	// zapr adds a frame of its own.
	return &zapLogger{core: u.GetUnderlying().WithOptions(zap.AddCallerSkip(-1))}
}

var (
	mu     sync.RWMutex
	once   sync.Once
	global Logger = NewNopLogger()
)

// Init installs the global logger. Only the first call has an effect.
func Init(opts *Options) {
	once.Do(func() {
		l := NewLogger(opts)
		mu.Lock()
		global = l
		mu.Unlock()
	})
}

func std() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debug(msg string, kv ...any)            { std().Debug(msg, kv...) }
func Info(msg string, kv ...any)             { std().Info(msg, kv...) }
func Warn(msg string, kv ...any)             { std().Warn(msg, kv...) }
func Error(err error, msg string, kv ...any) { std().Error(err, msg, kv...) }
func WithName(name string) Logger            { return std().WithName(name) }
func WithValues(kv ...any) Logger            { return std().WithValues(kv...) }

// Sync flushes the global logger.
func Sync() error { return std().Sync() }
