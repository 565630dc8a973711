package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ValueKind enumerates the scalar shapes a result cell can take on the wire.
type ValueKind uint8

const (
	NullKind ValueKind = iota
	BoolKind
	IntKind
	FloatKind
	TextKind
)

func (k ValueKind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case TextKind:
		return "text"
	}
	return "unknown"
}

// TimeLayout renders date and time values.
const TimeLayout = "2006-01-02 15:04:05.999999"

// Value is a JSON-safe result cell.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

func NullValue() Value { return Value{} }
func BoolValue(b bool) Value { return Value{kind: BoolKind, b: b} }
func IntValue(i int64) Value { return Value{kind: IntKind, i: i} }
func FloatValue(f float64) Value { return Value{kind: FloatKind, f: f} }
func TextValue(s string) Value { return Value{kind: TextKind, s: s} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }

// Interface returns the value as nil, bool, int64, float64 or string.
func (v Value) Interface() interface{} {
	switch v.kind {
	case BoolKind:
		return v.b
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case TextKind:
		return v.s
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case BoolKind:
		return strconv.AppendBool(nil, v.b), nil
	case IntKind:
		return strconv.AppendInt(nil, v.i, 10), nil
	case FloatKind:
		return json.Marshal(v.f)
	case TextKind:
		return json.Marshal(v.s)
	}
	return []byte("null"), nil
}

// FromDriver converts whatever a database/sql driver scanned into a Value.
// Anything that is not already a JSON primitive is rendered as text:
// timestamps with TimeLayout, byte slices (ODBC decimals, GUIDs, char data)
// as strings, Stringers through String. Byte slices that are not valid UTF-8
// are binary data and become 0x-prefixed upper-case hex. Non-finite floats
// and unsigned integers beyond int64 also become text.
func FromDriver(src interface{}) Value {
	// A typed nil pointer must not reach its String method.
	if rv := reflect.ValueOf(src); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return NullValue()
	}

	switch x := src.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(x)
	case int64:
		return IntValue(x)
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return TextValue(strconv.FormatUint(x, 10))
		}
		return IntValue(int64(x))
	case uint:
		return FromDriver(uint64(x))
	case uint32:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint8:
		return IntValue(int64(x))
	case float64:
		return floatValue(x, 64)
	case float32:
		// Go through the shortest float32 text so 0.1 stays 0.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(x), 'g', -1, 32), 64)
		return floatValue(f, 32)
	case string:
		return TextValue(x)
	case []byte:
		if !utf8.Valid(x) {
			return TextValue("0x" + strings.ToUpper(hex.EncodeToString(x)))
		}
		return TextValue(string(x))
	case time.Time:
		return TextValue(x.Format(TimeLayout))
	case fmt.Stringer:
		return TextValue(x.String())
	}

	if rv := reflect.ValueOf(src); rv.Kind() == reflect.Ptr {
		return FromDriver(rv.Elem().Interface())
	}
	return TextValue(fmt.Sprint(src))
}

func floatValue(f float64, bits int) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return TextValue(strconv.FormatFloat(f, 'g', -1, bits))
	}
	return FloatValue(f)
}
