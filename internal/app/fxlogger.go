package app

import (
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx/fxevent"
)

// ZerologFxLogger routes fx lifecycle events into zerolog.
type ZerologFxLogger struct {
	log zerolog.Logger
}

// NewFxLogger creates an fxevent.Logger. Graph construction details go to
// debug; hooks and failures go to info and error.
func NewFxLogger(log zerolog.Logger) fxevent.Logger {
	return &ZerologFxLogger{log: log.With().Str("component", "fx").Logger()}
}

// LogEvent implements fxevent.Logger.
func (l *ZerologFxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("callee", e.FunctionName).Str("caller", e.CallerName).Msg("OnStart hook failed")
			return
		}
		l.log.Debug().Str("callee", e.FunctionName).Dur("runtime", e.Runtime).Msg("OnStart hook executed")
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("callee", e.FunctionName).Str("caller", e.CallerName).Msg("OnStop hook failed")
			return
		}
		l.log.Debug().Str("callee", e.FunctionName).Dur("runtime", e.Runtime).Msg("OnStop hook executed")
	case *fxevent.Supplied:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("type", e.TypeName).Msg("supply failed")
		}
	case *fxevent.Provided:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("constructor", e.ConstructorName).Msg("provide failed")
			return
		}
		l.log.Debug().Str("constructor", e.ConstructorName).Str("types", strings.Join(e.OutputTypeNames, ",")).Msg("provided")
	case *fxevent.Invoked:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Str("function", e.FunctionName).Str("stack", e.Trace).Msg("invoke failed")
		}
	case *fxevent.Stopping:
		l.log.Info().Str("signal", strings.ToUpper(e.Signal.String())).Msg("received signal")
	case *fxevent.RollingBack:
		l.log.Error().Err(e.StartErr).Msg("start failed, rolling back")
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Msg("rollback failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Msg("start failed")
			return
		}
		l.log.Info().Msg("started")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Msg("stop failed")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.log.Error().Err(e.Err).Msg("custom logger initialization failed")
		}
	}
}
