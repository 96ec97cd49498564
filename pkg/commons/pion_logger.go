// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package commons

import (
	"github.com/pion/logging"
)

// pionLoggerFactory routes pion's scoped loggers (ice, dtls, pc, ...) into the
// application logger so WebRTC internals show up next to our own entries.
type pionLoggerFactory struct {
	logger Logger
}

// NewPionLoggerFactory adapts an application Logger to pion's LoggerFactory.
func NewPionLoggerFactory(logger Logger) logging.LoggerFactory {
	return &pionLoggerFactory{logger: logger}
}

func (f *pionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{logger: f.logger.With("pion", scope)}
}

type pionLogger struct {
	logger Logger
}

// pion traces at packet granularity; those entries are folded into debug.
func (l *pionLogger) Trace(msg string)                          { l.logger.Debug(msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *pionLogger) Debug(msg string)                          { l.logger.Debug(msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) { l.logger.Debugf(format, args...) }
func (l *pionLogger) Info(msg string)                           { l.logger.Info(msg) }
func (l *pionLogger) Infof(format string, args ...interface{})  { l.logger.Infof(format, args...) }
func (l *pionLogger) Warn(msg string)                           { l.logger.Warn(msg) }
func (l *pionLogger) Warnf(format string, args ...interface{})  { l.logger.Warnf(format, args...) }
func (l *pionLogger) Error(msg string)                          { l.logger.Error(msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) { l.logger.Errorf(format, args...) }
