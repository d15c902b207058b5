package codec

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sandrolain/gojaq/pkg/value"
)

// tomlDecoder yields the single document of a TOML input.
type tomlDecoder struct {
	r    io.Reader
	done bool
}

// NewTOMLDecoder returns a decoder for a TOML document. TOML has no stream
// syntax; the decoder yields one object.
func NewTOMLDecoder(r io.Reader) Decoder {
	return &tomlDecoder{r: r}
}

func (d *tomlDecoder) Decode() (value.Value, error) {
	if d.done {
		return nil, io.EOF
	}
	d.done = true
	var doc map[string]any
	md, err := toml.NewDecoder(d.r).Decode(&doc)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int)
	for i, k := range md.Keys() {
		if _, ok := rank[k.String()]; !ok {
			rank[k.String()] = i
		}
	}
	t := tomlOrder{rank: rank}
	return t.value("", doc)
}

// tomlOrder restores the key order of a document from its metadata.
type tomlOrder struct {
	rank map[string]int
}

func (t tomlOrder) value(prefix string, x any) (value.Value, error) {
	switch x := x.(type) {
	case map[string]any:
		return t.object(prefix, x)
	case []map[string]any:
		arr := make(value.Array, len(x))
		for i, m := range x {
			v, err := t.object(prefix, m)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case []any:
		arr := make(value.Array, len(x))
		for i, e := range x {
			v, err := t.value(prefix, e)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case time.Time:
		return value.String(x.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		return value.String(x.String()), nil
	}
	return value.FromGo(x)
}

func (t tomlOrder) object(prefix string, m map[string]any) (value.Value, error) {
	path := func(k string) string {
		key := toml.Key{k}
		if prefix == "" {
			return key.String()
		}
		return prefix + "." + key.String()
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		ra, oka := t.rank[path(a)]
		rb, okb := t.rank[path(b)]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		}
		return strings.Compare(a, b)
	})
	entries := make([]value.Entry, len(keys))
	for i, k := range keys {
		v, err := t.value(path(k), m[k])
		if err != nil {
			return nil, err
		}
		entries[i] = value.Entry{Key: k, Value: v}
	}
	return value.NewObject(entries...), nil
}

// MarshalTOML returns the TOML document of v, which must be an object.
func MarshalTOML(v value.Value) ([]byte, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("cannot encode %s as a TOML document", value.TypeName(v))
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(value.ToGo(obj)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
