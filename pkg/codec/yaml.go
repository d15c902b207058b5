package codec

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/sandrolain/gojaq/pkg/value"
)

type yamlDecoder struct {
	dec *yaml.Decoder
}

// NewYAMLDecoder returns a decoder for a multi-document YAML stream.
func NewYAMLDecoder(r io.Reader) Decoder {
	return &yamlDecoder{dec: yaml.NewDecoder(r, yaml.UseOrderedMap())}
}

func (d *yamlDecoder) Decode() (value.Value, error) {
	var doc any
	if err := d.dec.Decode(&doc); err != nil {
		return nil, err
	}
	return fromYAML(doc)
}

func fromYAML(x any) (value.Value, error) {
	switch x := x.(type) {
	case yaml.MapSlice:
		entries := make([]value.Entry, 0, len(x))
		seen := make(map[string]int, len(x))
		for _, item := range x {
			key, ok := item.Key.(string)
			if !ok {
				key = fmt.Sprint(item.Key)
			}
			v, err := fromYAML(item.Value)
			if err != nil {
				return nil, err
			}
			if i, dup := seen[key]; dup {
				entries[i].Value = v
				continue
			}
			seen[key] = len(entries)
			entries = append(entries, value.Entry{Key: key, Value: v})
		}
		return value.NewObject(entries...), nil
	case []any:
		arr := make(value.Array, len(x))
		for i, e := range x {
			v, err := fromYAML(e)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case time.Time:
		return value.String(x.Format(time.RFC3339Nano)), nil
	case []byte:
		return value.String(x), nil
	}
	return value.FromGo(x)
}

// toOrdered converts v into Go values whose objects keep their key order
// when marshaled to YAML.
func toOrdered(v value.Value, sortKeys bool) any {
	switch v := v.(type) {
	case value.Array:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = toOrdered(e, sortKeys)
		}
		return out
	case *value.Object:
		keys := v.Keys()
		if sortKeys {
			keys = v.SortedKeys()
		}
		out := make(yaml.MapSlice, len(keys))
		for i, k := range keys {
			e, _ := v.Get(k)
			out[i] = yaml.MapItem{Key: k, Value: toOrdered(e, sortKeys)}
		}
		return out
	}
	return value.ToGo(v)
}

// MarshalYAML returns the YAML document of v.
func MarshalYAML(v value.Value, indent int, sortKeys bool) ([]byte, error) {
	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf, yaml.Indent(indent), yaml.UseLiteralStyleIfMultiline(true))
	if err := enc.Encode(toOrdered(v, sortKeys)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
