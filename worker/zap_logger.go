package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// zapLogger adapts a zap logger to asynq's Logger interface so queue
// internals log through the same sink as the rest of the worker.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func NewZapLogger(l *zap.Logger) asynq.Logger {
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debug(args ...interface{}) { z.sugar.Debug(args...) }
func (z *zapLogger) Info(args ...interface{})  { z.sugar.Info(args...) }
func (z *zapLogger) Warn(args ...interface{})  { z.sugar.Warn(args...) }
func (z *zapLogger) Error(args ...interface{}) { z.sugar.Error(args...) }
func (z *zapLogger) Fatal(args ...interface{}) { z.sugar.Fatal(args...) }
