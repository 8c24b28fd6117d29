package adapter

import (
	"fmt"
	"slices"

	"onager/internal/engine"
)

// BindParams builds an algorithm's parameters from host arguments: its
// defaults, then positional arguments in declaration order, then named ones.
// A named argument that is absent or NULL keeps its default.
func BindParams(fn *engine.Algorithm, positional []any, named map[string]any) (engine.Params, error) {
	p := fn.Defaults

	var pos []engine.ParamSpec
	for _, ps := range fn.Params {
		if ps.Positional {
			pos = append(pos, ps)
		}
	}
	if len(positional) != len(pos) {
		return p, fmt.Errorf("%s: expected %d positional arguments, got %d", fn.SQLName(), len(pos), len(positional))
	}
	for i, ps := range pos {
		if positional[i] == nil {
			return p, fmt.Errorf("%s: argument %s must not be NULL", fn.SQLName(), ps.Name)
		}
		if err := p.Set(ps.Name, positional[i]); err != nil {
			return p, fmt.Errorf("%s: %w", fn.SQLName(), err)
		}
	}

	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if ps, ok := fn.Param(k); !ok || ps.Positional {
			return p, fmt.Errorf("%s: unknown named argument %q", fn.SQLName(), k)
		}
	}

	for _, ps := range fn.Params {
		if ps.Positional {
			continue
		}
		v, ok := named[ps.Name]
		if !ok || v == nil {
			if ps.Required {
				return p, fmt.Errorf("%s: missing required argument %s", fn.SQLName(), ps.Name)
			}
			continue
		}
		if err := p.Set(ps.Name, v); err != nil {
			return p, fmt.Errorf("%s: %w", fn.SQLName(), err)
		}
	}
	return p, nil
}
