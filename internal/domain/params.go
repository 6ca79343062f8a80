package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParamValue is a validated parameter: a closed variant tagged by Kind.
// Only the field matching Kind is meaningful.
type ParamValue struct {
	Kind   ParamKind
	Layer  string
	Number float64
	Int    int
	Bool   bool
	Text   string
	List   []string
}

// LayerValue builds a resolved layer reference.
func LayerValue(id string) ParamValue { return ParamValue{Kind: KindLayer, Layer: id} }

// NumberValue builds a float parameter.
func NumberValue(v float64) ParamValue { return ParamValue{Kind: KindNumber, Number: v} }

// IntValue builds an integer parameter.
func IntValue(v int) ParamValue { return ParamValue{Kind: KindInt, Int: v} }

// EnumValue builds an enum parameter.
func EnumValue(v int) ParamValue { return ParamValue{Kind: KindEnum, Int: v} }

// BoolValue builds a boolean parameter.
func BoolValue(v bool) ParamValue { return ParamValue{Kind: KindBoolean, Bool: v} }

// CRSValue builds a canonical authority:code parameter.
func CRSValue(code string) ParamValue { return ParamValue{Kind: KindCRS, Text: code} }

// FieldValue builds a field-name parameter.
func FieldValue(name string) ParamValue { return ParamValue{Kind: KindField, Text: name} }

// FieldListValue builds a field-name list parameter.
func FieldListValue(names []string) ParamValue {
	return ParamValue{Kind: KindFieldList, List: append([]string(nil), names...)}
}

// StringValue builds a plain string parameter.
func StringValue(s string) ParamValue { return ParamValue{Kind: KindString, Text: s} }

// OutputValue builds an output destination parameter.
func OutputValue(dest string) ParamValue { return ParamValue{Kind: KindOutput, Text: dest} }

// Interface returns the plain Go value handed to the backend.
func (v ParamValue) Interface() interface{} {
	switch v.Kind {
	case KindLayer:
		return v.Layer
	case KindNumber:
		return v.Number
	case KindInt, KindEnum:
		return v.Int
	case KindBoolean:
		return v.Bool
	case KindFieldList:
		return append([]string(nil), v.List...)
	default:
		return v.Text
	}
}

// String renders the value for display and result naming.
func (v ParamValue) String() string {
	switch v.Kind {
	case KindLayer:
		return v.Layer
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindInt, KindEnum:
		return strconv.Itoa(v.Int)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindFieldList:
		return strings.Join(v.List, ",")
	default:
		return v.Text
	}
}

// Params is a validated parameter mapping.
type Params map[string]ParamValue

// Plain converts to an untyped mapping suitable for the executor.
func (p Params) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for name, value := range p {
		out[name] = value.Interface()
	}
	return out
}

// Keys returns sorted parameter names.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NamesOf returns the sorted names of parameters of the given kind.
func (p Params) NamesOf(kind ParamKind) []string {
	var names []string
	for _, name := range p.Keys() {
		if p[name].Kind == kind {
			names = append(names, name)
		}
	}
	return names
}

// Clone copies the mapping including list values.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if v.List != nil {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}

// FormatRaw renders an untyped value compactly.
func FormatRaw(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}
