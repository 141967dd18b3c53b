// Package dlog provides leveled, structured logging for the decomposition
// engine, gated by a FastV verbosity check so that callers never pay for
// formatting a log line nobody will see.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package dlog

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	logger    = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	verbosity int32
)

// SetVerbosity sets the process-wide verbosity threshold consumed by FastV.
// Unlike aistore's cmn.Rom, this is deliberate mutable global state (as
// are group's package-level Prometheus metrics): a log-verbosity knob, not
// decomposition state, so it carries no handle-visible mutable state.
func SetVerbosity(v int) { atomic.StoreInt32(&verbosity, int32(v)) }

// FastV reports whether logging at level should proceed for module. Callers
// are expected to guard expensive Sprintf-style formatting behind it, the
// way aistore guards nlog.Infof behind config.FastV(5, cos.SmoduleMirror).
// module is accepted for future per-module filtering; the current
// implementation is level-only.
func FastV(level int, module string) bool {
	_ = module
	return int32(level) <= atomic.LoadInt32(&verbosity)
}

func Infoln(v ...any)              { logger.Info().Msg(fmt.Sprint(v...)) }
func Errorln(v ...any)             { logger.Error().Msg(fmt.Sprint(v...)) }
func Infof(format string, v ...any) { logger.Info().Msgf(format, v...) }
func Errorf(format string, v ...any) { logger.Error().Msgf(format, v...) }
