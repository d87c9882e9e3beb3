package schema

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"time"
)

// jsonNumber matches encoding/json.Number and decoders that alias it.
type jsonNumber interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

var (
	integerPattern = regexp.MustCompile(`\A-?\d+\z`)
	decimalPattern = regexp.MustCompile(`\A-?\d+(\.\d+)?\z`)
)

const dateLayout = "2006-01-02"

var StringScalar = NewScalar("string").
	SetName("String").
	SetDescription("UTF-8 text.").
	SetValidator(func(v any) bool {
		_, ok := v.(string)
		return ok
	})

var IntegerScalar = NewScalar("integer").
	SetName("Integer").
	SetDescription("A signed whole number.").
	SetValidator(isInteger).
	SetCast(func(v any) any {
		n, _ := toInt64(v)
		return n
	}).
	SetParse(func(v any) (any, error) {
		switch x := v.(type) {
		case string:
			if integerPattern.MatchString(x) {
				if n, err := strconv.ParseInt(x, 10, 64); err == nil {
					return n, nil
				}
			}
		case float64:
			if n, ok := wholeFloat(x); ok {
				return n, nil
			}
		case float32:
			if n, ok := wholeFloat(float64(x)); ok {
				return n, nil
			}
		case jsonNumber:
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
			if f, err := x.Float64(); err == nil {
				if n, ok := wholeFloat(f); ok {
					return n, nil
				}
			}
		default:
			if n, ok := toInt64(v); ok {
				return n, nil
			}
		}
		return nil, &ParseError{Scalar: "integer", Message: "Integer must be provided as an integer or a string only containing digits"}
	})

var BooleanScalar = NewScalar("boolean").
	SetName("Boolean").
	SetDescription("true or false.").
	SetValidator(func(v any) bool {
		_, ok := v.(bool)
		return ok
	}).
	SetParse(func(v any) (any, error) {
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			switch x {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			}
		default:
			if n, ok := toInt64(v); ok && (n == 0 || n == 1) {
				return n == 1, nil
			}
			if f, ok := v.(float64); ok && (f == 0 || f == 1) {
				return f == 1, nil
			}
		}
		return nil, &ParseError{Scalar: "boolean", Message: "Boolean must be true, false, 1 or 0"}
	})

var DecimalScalar = NewScalar("decimal").
	SetName("Decimal").
	SetDescription("A decimal number, emitted as a JSON number.").
	SetValidator(func(v any) bool {
		switch v.(type) {
		case float64, float32:
			return true
		}
		return isInteger(v)
	}).
	SetCast(func(v any) any {
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		}
		n, _ := toInt64(v)
		return float64(n)
	}).
	SetParse(func(v any) (any, error) {
		switch x := v.(type) {
		case string:
			if decimalPattern.MatchString(x) {
				if f, err := strconv.ParseFloat(x, 64); err == nil {
					return f, nil
				}
			}
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case jsonNumber:
			if f, err := x.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
				return f, nil
			}
		default:
			if n, ok := toInt64(v); ok {
				return float64(n), nil
			}
		}
		return nil, &ParseError{Scalar: "decimal", Message: "Decimal must be provided as a decimal, integer or a string only containing numbers"}
	})

var DateScalar = NewScalar("date").
	SetName("Date").
	SetDescription("A calendar date formatted as YYYY-MM-DD.").
	SetValidator(isTime).
	SetCast(func(v any) any {
		return v.(time.Time).Format(dateLayout)
	}).
	SetParse(func(v any) (any, error) {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(dateLayout, s); err == nil {
				return t, nil
			}
		}
		return nil, &ParseError{Scalar: "date", Message: "Date must be a string formatted as YYYY-MM-DD"}
	})

var UnixTimeScalar = NewScalar("unix_time").
	SetName("UnixTime").
	SetDescription("A point in time expressed as seconds since the Unix epoch.").
	SetValidator(isTime).
	SetCast(func(v any) any {
		return v.(time.Time).Unix()
	}).
	SetParse(func(v any) (any, error) {
		n, err := IntegerScalar.Parse(v)
		if err != nil {
			return nil, &ParseError{Scalar: "unix_time", Message: "UnixTime must be an integer number of seconds"}
		}
		return time.Unix(n.(int64), 0).UTC(), nil
	})

// builtinScalars are resolvable by ID from every registry.
var builtinScalars = map[string]*Scalar{
	StringScalar.ID:   StringScalar,
	IntegerScalar.ID:  IntegerScalar,
	BooleanScalar.ID:  BooleanScalar,
	DecimalScalar.ID:  DecimalScalar,
	DateScalar.ID:     DateScalar,
	UnixTimeScalar.ID: UnixTimeScalar,
}

// BuiltinScalar returns the built-in scalar with the given ID.
func BuiltinScalar(id string) (*Scalar, bool) {
	s, ok := builtinScalars[id]
	return s, ok
}

func init() {
	for _, s := range builtinScalars {
		s.seal()
	}
}

func isInteger(v any) bool {
	_, ok := toInt64(v)
	return ok
}

// wholeFloat converts f when it is a whole number within the int64 range.
// 2^63 is exactly representable, so the upper bound is exclusive.
func wholeFloat(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func toInt64(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
