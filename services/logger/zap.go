package logsvc

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dtsmedt/PlanOfStudy/core"
)

// ZapLogger writes structured logs. JSON in production, console output in debug mode.
type ZapLogger struct {
	z *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var zconf zap.Config
	if conf.Debug {
		zconf = zap.NewDevelopmentConfig()
		zconf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zconf = zap.NewProductionConfig()
	}
	if conf.TestMode {
		zconf.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	z, err := zconf.Build(
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("app", conf.AppName), zap.String("env", conf.Env), zap.String("build", conf.Build)),
	)
	if err != nil {
		return nil, err
	}
	return &ZapLogger{z: z}, nil
}

// NewNopZapLogger discards everything; used by tests.
func NewNopZapLogger() *ZapLogger {
	return &ZapLogger{z: zap.NewNop()}
}

// Named returns a child logger whose entries carry `name` ("api", "db", ...).
func (l *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{z: l.z.Named(name)}
}

func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

// fields turns logger args into zap fields: key/value pairs, errors and maps are understood.
func fields(args []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case error:
			out = append(out, zap.Error(arg))
		case map[string]interface{}:
			for k, v := range arg {
				out = append(out, zap.Any(k, v))
			}
		case string:
			if i+1 < len(args) {
				out = append(out, zap.Any(arg, args[i+1]))
				i++
			} else {
				out = append(out, zap.String("extra", arg))
			}
		default:
			out = append(out, zap.Any(fmt.Sprintf("arg%d", i), arg))
		}
	}
	return out
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.z.Debug(msg, fields(args)...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.z.Info(msg, fields(args)...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.z.Warn(msg, fields(args)...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.z.Error(msg, fields(args)...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.z.Fatal(msg, fields(args)...)
}
