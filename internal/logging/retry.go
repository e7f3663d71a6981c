package logging

import (
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// RetryLogger implements the retryablehttp.LeveledLogger interface on top of Logger.
// Info and debug chatter from the retry client is dropped; retries surface as warnings.
type RetryLogger struct {
	logger *Logger
}

// NewRetryLogger adapts l for use as retryablehttp.Client.Logger.
func NewRetryLogger(l *Logger) *RetryLogger {
	if l == nil {
		l = Nop()
	}
	return &RetryLogger{logger: l}
}

// Error logs a retry client error.
func (r *RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(r.logger.Error(), keysAndValues).Msg(msg)
}

// Info is ignored; the retry client logs every request at info level.
func (r *RetryLogger) Info(msg string, keysAndValues ...interface{}) {}

// Debug logs at debug level.
func (r *RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(r.logger.Debug(), keysAndValues).Msg(msg)
}

// Warn logs a retry attempt.
func (r *RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(r.logger.Warn(), keysAndValues).Msg(msg)
}

func withFields(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}

var _ retryablehttp.LeveledLogger = (*RetryLogger)(nil)
