package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
)

// typedConst is one stored fact argument.
type typedConst struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

// encodeJSON marshals v without HTML escaping and without the encoder's
// trailing newline, so Arabic text and operators are stored verbatim.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// marshalArgs stores ground predicate arguments.
func marshalArgs(p *logic.Predicate) (string, error) {
	out := make([]typedConst, len(p.Args))
	for i, a := range p.Args {
		c, ok := logic.Deref(a).(logic.Const)
		if !ok {
			return "", fmt.Errorf("marshal args: %s: argument %d is not ground", p.Key(), i)
		}
		var tc typedConst
		switch v := c.Value.(type) {
		case nil:
			tc.T = "none"
		case string:
			tc.T = "str"
		case int64:
			tc.T = "int"
		case float64:
			tc.T = "float"
		case bool:
			tc.T = "bool"
		default:
			return "", fmt.Errorf("marshal args: %s: unsupported constant %T", p.Key(), v)
		}
		if c.Value != nil {
			raw, err := encodeJSON(c.Value)
			if err != nil {
				return "", fmt.Errorf("marshal args: %w", err)
			}
			tc.V = json.RawMessage(raw)
		}
		out[i] = tc
	}
	s, err := encodeJSON(out)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return s, nil
}

// unmarshalArgs rebuilds a fact from its stored name and arguments.
func unmarshalArgs(name, data string) (*logic.Predicate, error) {
	var tcs []typedConst
	if err := json.Unmarshal([]byte(data), &tcs); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	args := make([]any, len(tcs))
	for i, tc := range tcs {
		var err error
		switch tc.T {
		case "none":
			args[i] = nil
		case "str":
			var s string
			err = json.Unmarshal(tc.V, &s)
			args[i] = s
		case "int":
			var n int64
			err = json.Unmarshal(tc.V, &n)
			args[i] = n
		case "float":
			var f float64
			err = json.Unmarshal(tc.V, &f)
			args[i] = f
		case "bool":
			var b bool
			err = json.Unmarshal(tc.V, &b)
			args[i] = b
		default:
			err = fmt.Errorf("unknown constant type %q", tc.T)
		}
		if err != nil {
			return nil, fmt.Errorf("unmarshal args: %s argument %d: %w", name, i, err)
		}
	}
	return logic.NewPredicate(name, args...), nil
}

type changeJSON struct {
	Key string  `json:"key"`
	Old float64 `json:"old"`
	New float64 `json:"new"`
}

func marshalChanges(changes []entity.Change) (string, error) {
	out := make([]changeJSON, len(changes))
	for i, c := range changes {
		out[i] = changeJSON(c)
	}
	s, err := encodeJSON(out)
	if err != nil {
		return "", fmt.Errorf("marshal changes: %w", err)
	}
	return s, nil
}

func unmarshalChanges(data string) ([]entity.Change, error) {
	var in []changeJSON
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	out := make([]entity.Change, len(in))
	for i, c := range in {
		out[i] = entity.Change(c)
	}
	return out, nil
}
