package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/gophfeed/internal/logger"
)

// Logging adapts the service logger to the go-grpc-middleware interceptors.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Logger returns the interceptor logger. Interceptor fields become slog
// key/value pairs.
func (l *Logging) Logger() logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.logger.Log(ctx, slog.Level(lvl), "gRPC "+msg, fields...)
	})
}

// Options are the events logged for every call.
func (l *Logging) Options() []logging.Option {
	return []logging.Option{
		logging.WithLogOnEvents(logging.StartCall, logging.FinishCall),
	}
}

// Recover turns a handler panic into an Internal status and logs it.
func (l *Logging) Recover(p any) error {
	l.logger.Error("gRPC handler panicked",
		"panic", fmt.Sprint(p))
	return status.Error(codes.Internal, "internal error")
}

// RecoveryOptions wires Recover into the recovery interceptor.
func (l *Logging) RecoveryOptions() []recovery.Option {
	return []recovery.Option{
		recovery.WithRecoveryHandler(l.Recover),
	}
}
