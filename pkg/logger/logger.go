// Package logger provides the package-level logger used by pkg/jet to
// report per-row recoverable decode failures without threading a
// logger through every call in the decode path.
package logger

import (
	"go.uber.org/zap"
)

// Logger is the sink used for RecordSkipped and other non-fatal decode
// warnings. Callers that want a different sink (or a silent one in
// tests) should call SetLogger before constructing a jet.Parser.
var Logger *zap.Logger

func init() {
	lc := zap.NewDevelopmentConfig()
	lc.EncoderConfig.TimeKey = ""
	Logger, _ = lc.Build()
}

// SetLogger replaces the package-level logger. Passing nil restores
// the default development logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		lc := zap.NewDevelopmentConfig()
		lc.EncoderConfig.TimeKey = ""
		Logger, _ = lc.Build()
		return
	}
	Logger = l
}
