package codec

import (
	"fmt"
	"io"
	"strings"
)

// Format names a data format.
type Format int

const (
	JSON Format = iota
	YAML
	TOML
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case TOML:
		return "toml"
	}
	return "json"
}

// ParseFormat returns the format called name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	}
	return JSON, fmt.Errorf("unknown format %q", name)
}

// NewDecoder returns a decoder of format f reading from r.
func NewDecoder(f Format, r io.Reader) Decoder {
	switch f {
	case YAML:
		return NewYAMLDecoder(r)
	case TOML:
		return NewTOMLDecoder(r)
	}
	return NewJSONDecoder(r)
}
