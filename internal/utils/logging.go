package utils

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerOnce sync.Once
	logger     *zap.Logger
)

// GetLogger returns the shared production logger used by components built
// without an injected one.
func GetLogger() *zap.Logger {
	loggerOnce.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
		logger = l
	})
	return logger
}
