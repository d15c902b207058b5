// Package codec reads and writes gojaq values in the data formats supported by
// the command line: JSON, YAML and TOML.
//
// All decoders preserve the key order of objects as it appears in the source.
// Values are streamed one document at a time through the Decoder interface:
//
//	dec := codec.NewDecoder(codec.JSON, os.Stdin)
//	for {
//	    v, err := dec.Decode()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sandrolain/gojaq/pkg/value"
)

// Decoder yields the documents of an input one at a time. Decode returns
// io.EOF once the input is exhausted.
type Decoder interface {
	Decode() (value.Value, error)
}

// jsonDecoder decodes a stream of whitespace-separated JSON values.
type jsonDecoder struct {
	dec *json.Decoder
}

// NewJSONDecoder returns a decoder for a stream of JSON values.
func NewJSONDecoder(r io.Reader) Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonDecoder{dec: dec}
}

func (d *jsonDecoder) Decode() (value.Value, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return nil, err
	}
	v, err := d.value(tok)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return v, err
}

func (d *jsonDecoder) value(tok json.Token) (value.Value, error) {
	switch tok := tok.(type) {
	case nil:
		return value.NullValue, nil
	case bool:
		return value.Bool(tok), nil
	case json.Number:
		return value.ParseNumber(string(tok))
	case string:
		return value.String(tok), nil
	case json.Delim:
		switch tok {
		case '[':
			return d.array()
		case '{':
			return d.object()
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func (d *jsonDecoder) array() (value.Value, error) {
	arr := value.Array{}
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim(']') {
			return arr, nil
		}
		v, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
}

func (d *jsonDecoder) object() (value.Value, error) {
	var entries []value.Entry
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim('}') {
			return value.NewObject(entries...), nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", tok)
		}
		tok, err = d.dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		entries = append(entries, value.Entry{Key: key, Value: v})
	}
}

// ParseJSON parses exactly one JSON value from s.
func ParseJSON(s string) (value.Value, error) {
	return parseOne(NewJSONDecoder(strings.NewReader(s)))
}

// ParseJSONBytes is ParseJSON for a byte slice.
func ParseJSONBytes(b []byte) (value.Value, error) {
	return parseOne(NewJSONDecoder(bytes.NewReader(b)))
}

func parseOne(dec Decoder) (value.Value, error) {
	v, err := dec.Decode()
	if err == io.EOF {
		return nil, errors.New("unexpected end of input")
	}
	if err != nil {
		return nil, err
	}
	if _, err := dec.Decode(); err != io.EOF {
		if err == nil {
			return nil, errors.New("unexpected extra JSON values")
		}
		return nil, err
	}
	return v, nil
}

// DecodeAll reads every document of dec.
func DecodeAll(dec Decoder) ([]value.Value, error) {
	var out []value.Value
	for {
		v, err := dec.Decode()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
