package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// env carries the collaborators and limits a kind check may consult.
type env struct {
	ctx    context.Context
	layers LayerResolver
	crs    ports.CRSResolver
	limits domain.ValidationSettings
}

// param is the declared contract of one parameter.
type param struct {
	Name       string
	Constraint domain.LayerConstraint
	Options    []domain.EnumOption
}

// checker turns a raw value into a typed one, optionally with a warning.
type checker func(e env, p param, raw interface{}) (domain.ParamValue, string, error)

var checkers = map[domain.ParamKind]checker{
	domain.KindLayer:     checkLayer,
	domain.KindNumber:    checkNumber,
	domain.KindInt:       checkInt,
	domain.KindBoolean:   checkBoolean,
	domain.KindCRS:       checkCRS,
	domain.KindEnum:      checkEnum,
	domain.KindField:     checkField,
	domain.KindFieldList: checkFieldList,
	domain.KindString:    checkString,
	domain.KindOutput:    checkOutput,
}

func checkerFor(kind domain.ParamKind) checker {
	if c, ok := checkers[kind]; ok {
		return c
	}
	return checkString
}

func failf(p param, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", p.Name, fmt.Sprintf(format, args...))
}

func checkLayer(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	ref, ok := raw.(string)
	if !ok {
		return domain.ParamValue{}, "", failf(p, "Layer name must be a string")
	}
	if e.layers == nil {
		return domain.LayerValue(ref), fmt.Sprintf("Could not verify layer '%s' exists", ref), nil
	}
	res := e.layers.ValidateLayer(e.ctx, ref, p.Constraint)
	if !res.Valid || res.Layer == nil {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("Layer '%s' not found", ref)
		}
		return domain.ParamValue{}, "", failf(p, "%s", msg)
	}
	return domain.LayerValue(res.Layer.ID), "", nil
}

// toFloat accepts native numerics, booleans as 1 and 0, and numeric strings
// including "inf". ok is false for non-numeric types.
func toFloat(raw interface{}) (value float64, ok bool, err error) {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, true, nil
		}
		return 0, true, nil
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int32:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case uint:
		return float64(v), true, nil
	case uint64:
		return float64(v), true, nil
	case json.Number:
		f, err := v.Float64()
		return f, true, err
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, true, err
	default:
		return 0, false, nil
	}
}

func checkNumber(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	value, ok, err := toFloat(raw)
	if !ok {
		return domain.ParamValue{}, "", failf(p, "Must be a number")
	}
	if err != nil || math.IsNaN(value) {
		return domain.ParamValue{}, "", failf(p, "Invalid number format")
	}

	if strings.EqualFold(p.Name, "distance") {
		if value < 0 {
			return domain.ParamValue{}, "", failf(p, "Distance cannot be negative")
		}
		if value > e.limits.GetMaxDistance() {
			return domain.NumberValue(value), fmt.Sprintf("%s: Very large distance value (%s)", p.Name, domain.FormatRaw(value)), nil
		}
	}
	return domain.NumberValue(value), "", nil
}

var (
	errFractional = errors.New("fractional")
	errOutOfRange = errors.New("out of range")
)

// toInt accepts integers, integral floats and integer-valued strings that fit in an int.
// Booleans are not integers here even though toFloat takes them.
func toInt(raw interface{}) (value int, ok bool, err error) {
	switch v := raw.(type) {
	case bool:
		return 0, false, nil
	case int:
		return v, true, nil
	case int32:
		return int(v), true, nil
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, true, errOutOfRange
		}
		return int(v), true, nil
	case uint:
		if v > math.MaxInt {
			return 0, true, errOutOfRange
		}
		return int(v), true, nil
	case uint32:
		return wholeFloat(float64(v))
	case uint64:
		if v > math.MaxInt {
			return 0, true, errOutOfRange
		}
		return int(v), true, nil
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, true, fmt.Errorf("not numeric")
		}
		return wholeFloat(f)
	}
	f, ok, err := toFloat(raw)
	if !ok || err != nil {
		return 0, ok, err
	}
	return wholeFloat(f)
}

// wholeFloat converts f when it is integral and within int range; -math.MinInt
// is the first float above it.
func wholeFloat(f float64) (int, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, errOutOfRange
	}
	if f != math.Trunc(f) {
		return 0, true, errFractional
	}
	if f < math.MinInt || f >= -math.MinInt {
		return 0, true, errOutOfRange
	}
	return int(f), true, nil
}

func checkInt(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	value, ok, err := toInt(raw)
	if !ok {
		return domain.ParamValue{}, "", failf(p, "Must be an integer")
	}
	if errors.Is(err, errFractional) {
		return domain.ParamValue{}, "", failf(p, "Must be a whole number")
	}
	if err != nil {
		return domain.ParamValue{}, "", failf(p, "Invalid integer format")
	}

	if strings.EqualFold(p.Name, "segments") {
		if value < 1 {
			return domain.ParamValue{}, "", failf(p, "Segments must be at least 1")
		}
		if value > e.limits.GetMaxSegments() {
			return domain.IntValue(value), fmt.Sprintf("%s: Very high segment count (%d)", p.Name, value), nil
		}
	}
	return domain.IntValue(value), "", nil
}

func checkBoolean(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	switch v := raw.(type) {
	case bool:
		return domain.BoolValue(v), "", nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "on":
			return domain.BoolValue(true), "", nil
		case "false", "no", "0", "off":
			return domain.BoolValue(false), "", nil
		}
		return domain.ParamValue{}, "", failf(p, "Invalid boolean value '%s'", v)
	}
	if f, ok, err := toFloat(raw); ok && err == nil {
		return domain.BoolValue(f != 0), "", nil
	}
	return domain.ParamValue{}, "", failf(p, "Must be a boolean value")
}

func checkCRS(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	s, ok := raw.(string)
	if !ok {
		return domain.ParamValue{}, "", failf(p, "CRS must be a string")
	}
	if e.crs == nil {
		return domain.ParamValue{}, "", failf(p, "Could not parse CRS '%s'", s)
	}
	code, valid := e.crs.Resolve(s)
	if !valid {
		return domain.ParamValue{}, "", failf(p, "Invalid CRS '%s'", s)
	}
	return domain.CRSValue(code), "", nil
}

func checkEnum(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	if s, isString := raw.(string); isString && len(p.Options) > 0 {
		label := strings.ToLower(strings.TrimSpace(s))
		for _, opt := range p.Options {
			if strings.ToLower(opt.Label) == label {
				return domain.EnumValue(opt.Value), "", nil
			}
		}
	}

	value, ok, err := toInt(raw)
	if !ok {
		return domain.ParamValue{}, "", failf(p, "Enum value must be an integer")
	}
	if err != nil {
		return domain.ParamValue{}, "", failf(p, "Invalid enum format")
	}

	if len(p.Options) > 0 {
		for _, opt := range p.Options {
			if opt.Value == value {
				return domain.EnumValue(value), "", nil
			}
		}
		return domain.ParamValue{}, "", failf(p, "Invalid enum value (%d), expected one of %s", value, describeOptions(p.Options))
	}
	if value < 0 || value > 10 {
		return domain.EnumValue(value), fmt.Sprintf("%s: Unusual enum value (%d)", p.Name, value), nil
	}
	return domain.EnumValue(value), "", nil
}

func describeOptions(opts []domain.EnumOption) string {
	parts := make([]string, 0, len(opts))
	for _, opt := range opts {
		if opt.Label != "" {
			parts = append(parts, fmt.Sprintf("%d (%s)", opt.Value, opt.Label))
			continue
		}
		parts = append(parts, strconv.Itoa(opt.Value))
	}
	return strings.Join(parts, ", ")
}

func checkField(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	s, ok := raw.(string)
	if !ok {
		return domain.ParamValue{}, "", failf(p, "Field name must be a string")
	}
	if !fieldNamePattern.MatchString(s) {
		return domain.FieldValue(s), fmt.Sprintf("%s: Field name '%s' may not be valid", p.Name, s), nil
	}
	return domain.FieldValue(s), "", nil
}

func checkFieldList(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	var fields []string
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				fields = append(fields, part)
			}
		}
	case []string:
		fields = append(fields, v...)
	case []interface{}:
		for _, item := range v {
			fields = append(fields, domain.FormatRaw(item))
		}
	default:
		return domain.ParamValue{}, "", failf(p, "Field list must be a string or list")
	}

	var warnings []string
	for _, field := range fields {
		if !fieldNamePattern.MatchString(field) {
			warnings = append(warnings, fmt.Sprintf("Field name '%s' may not be valid", field))
		}
	}
	if fields == nil {
		fields = []string{}
	}
	warning := ""
	if len(warnings) > 0 {
		warning = p.Name + ": " + strings.Join(warnings, "; ")
	}
	return domain.FieldListValue(fields), warning, nil
}

func checkString(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	return domain.StringValue(domain.FormatRaw(raw)), "", nil
}

func checkOutput(e env, p param, raw interface{}) (domain.ParamValue, string, error) {
	return domain.OutputValue(domain.FormatRaw(raw)), "", nil
}
