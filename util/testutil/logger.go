package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func level(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// NewSimpleLogger development logger to the console
func NewSimpleLogger(debug bool, name ...string) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("04:05.000")
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	log = log.WithOptions(zap.IncreaseLevel(level(debug)), zap.AddStacktrace(zapcore.FatalLevel))
	if len(name) > 0 {
		log = log.Named(name[0])
	}
	return log.Sugar()
}

// NewTestLogger logs through t.Log, so the output is shown only for failed tests or with -v
func NewTestLogger(t testing.TB, debug bool) *zap.SugaredLogger {
	return zaptest.NewLogger(t, zaptest.Level(level(debug))).Sugar()
}
