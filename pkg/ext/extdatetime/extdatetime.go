// Package extdatetime provides the date builtins of jq: now, mktime,
// gmtime, localtime, strftime, strflocaltime, strptime and the todate
// family.
//
// A broken-down time is an array
// [year, month (0-11), day, hours, minutes, seconds, weekday, yearday]
// where seconds may be fractional. Formats follow strftime(3) and are
// handled by github.com/itchyny/timefmt-go.
package extdatetime

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/itchyny/timefmt-go"

	"github.com/sandrolain/gojaq/pkg/ext/extutil"
	"github.com/sandrolain/gojaq/pkg/functions"
	"github.com/sandrolain/gojaq/pkg/value"
)

// Now is the clock used by now. Tests replace it.
var Now = time.Now

// All returns the Go functions of the package.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		NowFunc(),
		Mktime(),
		Gmtime(),
		Localtime(),
		Strftime(),
		Strflocaltime(),
		Strptime(),
	}
}

// AllEntries returns the Go functions and the definitions built on them.
func AllEntries() []functions.FunctionEntry {
	return append(extutil.Entries(All()...), Definitions())
}

// Definitions returns the builtins written on top of the Go functions.
func Definitions() functions.Definitions {
	return functions.Definitions{Name: "extdatetime", Source: `
def todateiso8601: strftime("%Y-%m-%dT%H:%M:%SZ");
def fromdateiso8601: strptime("%Y-%m-%dT%H:%M:%S%z") | mktime;
def todate: todateiso8601;
def fromdate: fromdateiso8601;
def date: todate;
def dateadd(u; n): . + n;
def datesub(u; n): . - n;
`}
}

var errBrokenDown = errors.New("requires parsed datetime inputs")

// NowFunc returns now: the current time in seconds since the epoch.
func NowFunc() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "now",
		Fn: func(_ context.Context, _ value.Value, _ ...value.Value) (value.Value, error) {
			return value.Float(toEpoch(Now())), nil
		},
	}
}

// Mktime returns mktime: a broken-down UTC time to seconds since the epoch.
func Mktime() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: "mktime",
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			a, ok := in.(value.Array)
			if !ok {
				return nil, value.NewTypeError("mktime requires array of 6 numbers")
			}
			t, err := toTime(a, time.UTC)
			if err != nil {
				return nil, value.NewTypeError("mktime requires array of 6 numbers")
			}
			return value.FloatToNumber(math.Floor(toEpoch(t))), nil
		},
	}
}

// Gmtime returns gmtime: seconds since the epoch to a broken-down UTC time.
func Gmtime() functions.CustomFunctionDef {
	return brokenDown("gmtime", time.UTC)
}

// Localtime returns localtime, gmtime in the local time zone.
func Localtime() functions.CustomFunctionDef {
	return brokenDown("localtime", time.Local)
}

func brokenDown(name string, loc *time.Location) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name: name,
		Fn: func(_ context.Context, in value.Value, _ ...value.Value) (value.Value, error) {
			f, err := extutil.Float(name, in)
			if err != nil {
				return nil, err
			}
			return fromEpoch(f, loc), nil
		},
	}
}

// Strftime returns strftime($fmt). The input is seconds since the epoch or
// a broken-down UTC time.
func Strftime() functions.CustomFunctionDef {
	return formatter("strftime", time.UTC)
}

// Strflocaltime returns strflocaltime($fmt), strftime in the local time zone.
func Strflocaltime() functions.CustomFunctionDef {
	return formatter("strflocaltime", time.Local)
}

func formatter(name string, loc *time.Location) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  name,
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			if f, ok := value.ToFloat(in); ok {
				in = fromEpoch(f, loc)
			}
			a, ok := in.(value.Array)
			if !ok {
				return nil, value.NewTypeError("%s/1 requires parsed datetime inputs", name)
			}
			format, err := extutil.String(name, args[0])
			if err != nil {
				return nil, err
			}
			t, err := toTime(a, loc)
			if err != nil {
				return nil, value.NewTypeError("%s/1 %s", name, err)
			}
			return value.String(timefmt.Format(t, format)), nil
		},
	}
}

// Strptime returns strptime($fmt): a string to a broken-down UTC time.
func Strptime() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:  "strptime",
		Arity: 1,
		Fn: func(_ context.Context, in value.Value, args ...value.Value) (value.Value, error) {
			s, err := extutil.String("strptime/1", in)
			if err != nil {
				return nil, err
			}
			format, err := extutil.String("strptime/1", args[0])
			if err != nil {
				return nil, err
			}
			t, err := timefmt.Parse(s, format)
			if err != nil {
				return nil, value.Thrown(value.String("date \"" + s + "\" does not match format \"" + format + "\""))
			}
			return fromEpoch(toEpoch(t), time.UTC), nil
		},
	}
}

func toEpoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromEpoch(f float64, loc *time.Location) value.Value {
	sec := math.Floor(f)
	t := time.Unix(int64(sec), int64((f-sec)*1e9)).In(loc)
	return value.Array{
		value.Int(t.Year()),
		value.Int(int(t.Month()) - 1),
		value.Int(t.Day()),
		value.Int(t.Hour()),
		value.Int(t.Minute()),
		value.FloatToNumber(float64(t.Second()) + float64(t.Nanosecond())/1e9),
		value.Int(int(t.Weekday())),
		value.Int(t.YearDay() - 1),
	}
}

// toTime reads the first six fields of a broken-down time. Weekday and
// yearday are ignored.
func toTime(a value.Array, loc *time.Location) (time.Time, error) {
	var fields [6]float64
	if len(a) < len(fields) {
		return time.Time{}, errBrokenDown
	}
	for i := range fields {
		f, ok := value.ToFloat(a[i])
		if !ok {
			return time.Time{}, errBrokenDown
		}
		fields[i] = f
	}
	sec := math.Floor(fields[5])
	return time.Date(int(fields[0]), time.Month(int(fields[1])+1), int(fields[2]),
		int(fields[3]), int(fields[4]), int(sec), int((fields[5]-sec)*1e9), loc), nil
}
