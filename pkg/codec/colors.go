package codec

import (
	"github.com/fatih/color"

	"github.com/sandrolain/gojaq/pkg/value"
)

// ColorAttr selects the part of a value being colored.
type ColorAttr int

const (
	ValueColor ColorAttr = iota
	FieldColor
	SepColor
)

type Colorable struct {
	Kind value.Kind
	Attr ColorAttr
}

// Colors maps value kinds to SGR wrappers.
type Colors struct {
	Default func(a ...any) string
	Map     map[Colorable]func(a ...any) string
}

// NewColors returns the default jq palette.
func NewColors() *Colors {
	colors := &Colors{
		Default: colorDefault,
		Map:     map[Colorable]func(a ...any) string{},
	}
	colors.Map[Colorable{Kind: value.KindNull, Attr: ValueColor}] = color.New(color.FgHiBlack).SprintFunc()
	colors.Map[Colorable{Kind: value.KindBoolean, Attr: ValueColor}] = color.New(color.Reset).SprintFunc()
	colors.Map[Colorable{Kind: value.KindNumber, Attr: ValueColor}] = color.New(color.Reset).SprintFunc()
	colors.Map[Colorable{Kind: value.KindString, Attr: ValueColor}] = color.New(color.FgGreen).SprintFunc()
	colors.Map[Colorable{Kind: value.KindArray, Attr: SepColor}] = color.New(color.Bold).SprintFunc()
	colors.Map[Colorable{Kind: value.KindObject, Attr: SepColor}] = color.New(color.Bold).SprintFunc()
	colors.Map[Colorable{Kind: value.KindObject, Attr: FieldColor}] = color.New(color.FgBlue, color.Bold).SprintFunc()
	return colors
}

func colorDefault(a ...any) string {
	if len(a) == 1 {
		if s, ok := a[0].(string); ok {
			return s
		}
	}
	return ""
}

// Color wraps s in the color of (k, a).
func (c *Colors) Color(k value.Kind, a ColorAttr, s string) string {
	return c.Get(k, a)(s)
}

func (c *Colors) Get(k value.Kind, a ColorAttr) func(a ...any) string {
	f := c.Map[Colorable{Kind: k, Attr: a}]
	if f == nil {
		return c.Default
	}
	return f
}
