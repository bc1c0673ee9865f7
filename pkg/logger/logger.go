// pkg/logger/logger.go
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Sugared = *zap.SugaredLogger

// New returns a sugared logger tuned per environment: JSON at info level in
// prod, console at debug otherwise.
func New(env string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		z, _ = cfg.Build()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar().Named("roadbook")
}
