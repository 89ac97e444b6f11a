package goenv

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// bindingDecl renders a dependency value as a Go declaration the
// interpreter can evaluate before the command runs. Values cross target
// boundaries as JSON, so the declared types are the JSON shapes: float64
// or int for numbers, string, bool, []any and map[string]any.
func bindingDecl(name string, value json.RawMessage) (string, error) {
	var decoded any
	dec := json.NewDecoder(strings.NewReader(string(value)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to decode dependency value"), "name", name)
	}

	if decoded == nil {
		return "var " + name + " any", nil
	}

	var b strings.Builder
	b.WriteString(name)
	b.WriteString(" := ")
	if err := writeLiteral(&b, decoded); err != nil {
		return "", zerr.With(err, "name", name)
	}
	return b.String(), nil
}

func writeLiteral(b *strings.Builder, v any) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("any(nil)")
	case bool:
		b.WriteString(strconv.FormatBool(val))
	case string:
		b.WriteString(strconv.Quote(val))
	case json.Number:
		// An integral literal stays an int so arithmetic against other
		// ints keeps working; anything with a fraction or exponent
		// becomes a float64.
		s := val.String()
		if strings.ContainsAny(s, ".eE") {
			b.WriteString("float64(" + s + ")")
		} else {
			b.WriteString(s)
		}
	case []any:
		b.WriteString("[]any{")
		for i, elem := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeLiteral(b, elem); err != nil {
				return err
			}
		}
		b.WriteString("}")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		b.WriteString("map[string]any{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(k))
			b.WriteString(": ")
			if err := writeLiteral(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteString("}")
	default:
		return zerr.New("unsupported dependency value shape")
	}
	return nil
}
