package pubsub

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/flexprice/planshift/internal/logger"
)

// watermillLogger routes watermill logs through the service logger
type watermillLogger struct {
	log    *logger.Logger
	fields watermill.LogFields
}

// NewWatermillLogger adapts the service logger to watermill.LoggerAdapter
func NewWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (w *watermillLogger) args(fields watermill.LogFields) []interface{} {
	all := w.fields.Add(fields)
	out := make([]interface{}, 0, len(all)*2)
	for k, v := range all {
		out = append(out, k, v)
	}
	return out
}

func (w *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log.Errorw(msg, append(w.args(fields), "error", err)...)
}

func (w *watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Infow(msg, w.args(fields)...)
}

func (w *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debugw(msg, w.args(fields)...)
}

func (w *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log.Debugw(msg, w.args(fields)...)
}

func (w *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: w.log, fields: w.fields.Add(fields)}
}
