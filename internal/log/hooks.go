package log

import "context"

// Hook derives extra fields from the entry context.
type Hook interface {
	Apply(ctx context.Context, msg string, fields ...Field) []Field
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, msg string, fields ...Field) []Field

func (f HookFunc) Apply(ctx context.Context, msg string, fields ...Field) []Field {
	return f(ctx, msg, fields...)
}

type fieldsKey struct{}

// WithFields returns a context whose log entries carry fields.
func WithFields(ctx context.Context, fields ...Field) context.Context {
	existing, _ := ctx.Value(fieldsKey{}).([]Field)

	merged := make([]Field, 0, len(existing)+len(fields))
	merged = append(merged, existing...)
	merged = append(merged, fields...)

	return context.WithValue(ctx, fieldsKey{}, merged)
}

// contextFields appends fields stored by WithFields.
func contextFields(ctx context.Context, _ string, fields ...Field) []Field {
	if ctx == nil {
		return fields
	}

	if extra, ok := ctx.Value(fieldsKey{}).([]Field); ok {
		fields = append(fields, extra...)
	}

	return fields
}
