package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldCommand is the structured log field key for the CLI command being run.
	FieldCommand = "command"
	// FieldTerm is the structured log field key for the registry search term.
	FieldTerm = "term"
	// FieldRunID is the structured log field key that ties together the logs of one run.
	FieldRunID = "run_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the fields that describe one run. Empty values are skipped.
func CommonFields(command, term, runID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldCommand, Value: command},
		StringField{Key: FieldTerm, Value: term},
		StringField{Key: FieldRunID, Value: runID},
	)
}

// WithCommonFields attaches the run fields to the provided logger.
func WithCommonFields(logger *zap.Logger, command, term, runID string) *zap.Logger {
	return WithFields(logger, CommonFields(command, term, runID)...)
}

// WithTerm returns base with the search term attached. Pass the run logger, not a logger that
// already carries a term, so repeated searches of one run log a single term each.
func WithTerm(base *zap.Logger, term string) *zap.Logger {
	return WithFields(base, StringFields(StringField{Key: FieldTerm, Value: term})...)
}
