// Package xmap converts between vendor document maps and typed values.
package xmap

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/samber/lo"
)

// Decode converts input (usually a map[string]any from a snapshot) into T,
// matching keys against the given struct tag.
func Decode[T any](input any, tag string) (T, error) {
	var out T

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: tag,
		Squash:  true,
		Result:  &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		),
	})
	if err != nil {
		return out, err
	}

	if err := dec.Decode(input); err != nil {
		return out, fmt.Errorf("decode into %T: %w", out, err)
	}

	return out, nil
}

// ToMap renders v as a one-level map keyed by tag names. Nested values,
// including structs such as time.Time, are kept as is; embedded structs are
// flattened.
func ToMap(v any, tag string) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}

	if m, ok := v.(map[string]any); ok {
		return lo.Assign(m), nil
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("encode %T: want struct or map[string]any", v)
	}

	out := map[string]any{}
	structFields(rv, tag, out)

	return out, nil
}

func structFields(rv reflect.Value, tag string, out map[string]any) {
	rt := rv.Type()

	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name == "-" {
			continue
		}

		if field.Anonymous && name == "" && field.Type.Kind() == reflect.Struct {
			structFields(rv.Field(i), tag, out)
			continue
		}

		if name == "" {
			name = field.Name
		}

		out[name] = rv.Field(i).Interface()
	}
}

// Inject returns a copy of data with key set to value. An empty key leaves
// data unchanged. A nil data map is treated as empty.
func Inject(data map[string]any, key string, value any) map[string]any {
	out := lo.Assign(data)
	if key != "" {
		out[key] = value
	}

	return out
}

// MergeShallow overlays partial on base, one level deep, and decodes the
// result back into T. base may be nil.
func MergeShallow[T any](base *T, partial map[string]any, tag string) (*T, error) {
	var (
		current map[string]any
		err     error
	)

	if base != nil {
		current, err = ToMap(*base, tag)
		if err != nil {
			return nil, err
		}
	}

	merged, err := Decode[T](lo.Assign(current, partial), tag)
	if err != nil {
		return nil, err
	}

	return &merged, nil
}
