package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is a schema-less JSON value. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	obj  map[string]Value
}

// Record is a top-level object as returned by the POS backend list endpoints.
type Record map[string]Value

func Null() Value { return Value{} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }
func Object(fields Record) Value { return Value{kind: KindObject, obj: fields} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Field looks up key on an object. It reports false for absent keys and
// for values that are not objects.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

func (v Value) Fields() Record {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(strconv.FormatFloat(v.num, 'g', -1, 64)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty json value")
	}

	switch data[0] {
	case 'n':
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Value{}
		}
		*v = List(items...)
	case '{':
		var fields Record
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		*v = Object(fields)
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid json number %q: %w", data, err)
		}
		*v = Number(n)
	}
	return nil
}
