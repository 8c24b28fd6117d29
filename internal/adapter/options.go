package adapter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"onager/internal/engine"
)

// OptionSeparator joins key=value pairs in an encoded option string.
const OptionSeparator = ";"

// DecodeOptions turns an option string such as "damping=0.9;directed=false"
// into the positional and named arguments BindParams expects. Keys that are
// absent stay absent, so positional ones come back as nil and named ones keep
// their defaults.
func DecodeOptions(fn *engine.Algorithm, s string) ([]any, map[string]any, error) {
	raw := map[string]string{}
	for _, pair := range strings.Split(s, OptionSeparator) {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, nil, fmt.Errorf("%s: malformed option %q", fn.SQLName(), pair)
		}
		k = strings.TrimSpace(k)
		if _, known := fn.Param(k); !known {
			return nil, nil, fmt.Errorf("%s: unknown named argument %q", fn.SQLName(), k)
		}
		if _, dup := raw[k]; dup {
			return nil, nil, fmt.Errorf("%s: argument %s given twice", fn.SQLName(), k)
		}
		raw[k] = strings.TrimSpace(v)
	}

	var positional []any
	named := map[string]any{}
	for _, ps := range fn.Params {
		text, ok := raw[ps.Name]
		var v any
		if ok {
			parsed, err := parseOption(ps, text)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", fn.SQLName(), err)
			}
			v = parsed
		}
		switch {
		case ps.Positional:
			positional = append(positional, v)
		case ok:
			named[ps.Name] = v
		}
	}
	return positional, named, nil
}

func parseOption(ps engine.ParamSpec, text string) (any, error) {
	switch ps.Type {
	case engine.ParamInt:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i, nil
		}
		// DOUBLE literals with an integral value, e.g. 10.0.
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %s must be BIGINT, got %q", engine.ErrInvalidParameter, ps.Name, text)
		}
		return int64(f), nil
	case engine.ParamFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be DOUBLE, got %q", engine.ErrInvalidParameter, ps.Name, text)
		}
		return f, nil
	default:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be BOOLEAN, got %q", engine.ErrInvalidParameter, ps.Name, text)
		}
		return b, nil
	}
}
