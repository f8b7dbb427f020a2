package log

import (
	"github.com/rs/zerolog"

	"github.com/terralith-games/bridge/types"
)

// Loggable exposes the declared dispatch enumerators for logging.
type Loggable interface {
	DeclaredPrimaryKinds() []types.PacketKind
	DeclaredSecondaryKinds() []types.ModuleKind
}

func loadKindsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	kinds := target.DeclaredPrimaryKinds()
	zeroLoggerEvent.Int("total_primary_kinds", len(kinds))
	arrayLogger := zerolog.Arr()
	for _, kind := range kinds {
		arrayLogger = arrayLogger.Int(int(kind))
	}
	return zeroLoggerEvent.Array("primary_kinds", arrayLogger)
}

func loadModulesToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	modules := target.DeclaredSecondaryKinds()
	zeroLoggerEvent.Int("total_module_kinds", len(modules))
	arrayLogger := zerolog.Arr()
	for _, module := range modules {
		arrayLogger = arrayLogger.Int(int(module))
	}
	return zeroLoggerEvent.Array("module_kinds", arrayLogger)
}

// Tables logs every declared dispatch enumerator.
func Tables(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadKindsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = loadModulesToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// CreateHookLogger creates a sub logger with the entry {"hook": hookName}.
func CreateHookLogger(logger *zerolog.Logger, hookName string) *zerolog.Logger {
	newLogger := logger.With().Str("hook", hookName).Logger()
	return &newLogger
}

// CreateTraceLogger creates a trace logger. Using a single id you can use this
// logger to follow and log a data path.
func CreateTraceLogger(logger *zerolog.Logger, traceID string) *zerolog.Logger {
	newLogger := logger.With().Str("trace_id", traceID).Logger()
	return &newLogger
}
