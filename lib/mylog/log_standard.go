package mylog

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newStandardLogger
	}
}

var consoleBase = newConsoleBase()

func newConsoleBase() *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), zapcore.DebugLevel)
	return zap.New(core)
}

type standardLogger struct {
	componentName string
	sugar         *zap.SugaredLogger
}

func newStandardLogger(componentName string) Logger {
	return standardLogger{
		componentName: componentName,
		sugar:         consoleBase.Named(componentName).Sugar(),
	}
}

func (l standardLogger) Log(c context.Context, traceLabel string, severity Severity, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	switch severity {
	case SeverityDebug:
		l.sugar.Debugw(msg, "aggregate", traceLabel)
	case SeverityWarn:
		l.sugar.Warnw(msg, "aggregate", traceLabel)
	case SeverityError:
		l.sugar.Errorw(msg, "aggregate", traceLabel)
	default:
		l.sugar.Infow(msg, "aggregate", traceLabel)
	}
}
