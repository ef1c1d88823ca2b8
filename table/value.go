package table

import (
	"encoding/json"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindText
	kindNumber
)

// Value is a single cell: text, number or null. The zero value is null.
type Value struct {
	kind valueKind
	text string
	num  float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text wraps s. Empty strings are null.
func Text(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{kind: kindText, text: s}
}

// Number wraps f.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// ParseNumber converts a published numeric cell ("1,234.5") into a number.
// Blank cells are null.
func ParseNumber(s string) (Value, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return Value{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, err
	}
	return Number(f), nil
}

func (v Value) IsNull() bool   { return v.kind == kindNull }
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// Float returns the numeric content of v.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == kindNumber
}

// String renders v the way it is written in CSV output: integral numbers without a
// decimal point, null as the empty string.
func (v Value) String() string {
	switch v.kind {
	case kindText:
		return v.text
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Equal compares kind and content.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.text == o.text && v.num == o.num
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindText:
		return json.Marshal(v.text)
	case kindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}
