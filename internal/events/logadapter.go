package events

import (
	"workshop/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
)

// logAdapter routes watermill's internal logging into zap.
type logAdapter struct {
	log *logger.Logger
}

func newLogAdapter(log *logger.Logger) watermill.LoggerAdapter {
	return &logAdapter{log: log.With("component", "events")}
}

func (a *logAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Errorw(msg, append(flatten(fields), "error", err)...)
}

func (a *logAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Infow(msg, flatten(fields)...)
}

func (a *logAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debugw(msg, flatten(fields)...)
}

func (a *logAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debugw(msg, flatten(fields)...)
}

func (a *logAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &logAdapter{log: a.log.With(flatten(fields)...)}
}

func flatten(fields watermill.LogFields) []interface{} {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return kv
}
