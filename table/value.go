package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
)

// TimeLayout is how timestamp values render as text.
const TimeLayout = "2006-01-02 15:04:05"

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "timestamp"
	default:
		return "null"
	}
}

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
}

func Null() Value {
	return Value{}
}

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Time(t time.Time) Value {
	return Value{kind: KindTime, t: t}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Text returns the string payload of a string value, and "" otherwise.
func (v Value) Text() string {
	return v.str
}

func (v Value) Float() float64 {
	return v.num
}

func (v Value) Boolean() bool {
	return v.b
}

func (v Value) Timestamp() time.Time {
	return v.t
}

// Any returns the payload as a plain Go value, nil for null.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// String renders the value as text. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(TimeLayout)
	default:
		return ""
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Key is a comparable identity for the value: equal values have equal keys.
func (v Value) Key() string {
	switch v.kind {
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindTime:
		return "t:" + v.t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%d:%s", v.kind, v.String())
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindTime {
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	}
	return json.Marshal(v.Any())
}

// FromAny converts a decoded JSON or spreadsheet value into a Value.
// Unsupported types are stored as their JSON text.
func FromAny(item any) Value {
	switch val := item.(type) {
	case nil:
		return Null()
	case Value:
		return val
	case string:
		return String(val)
	case *string:
		if val == nil {
			return Null()
		}
		return String(*val)
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case float32:
		return Number(float64(val))
	case int:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case int32:
		return Number(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return String(val.String())
		}
		return Number(f)
	case time.Time:
		return Time(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return String(fmt.Sprint(val))
		}
		return String(string(b))
	}
}
