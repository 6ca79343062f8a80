package domain

import "strings"

// ParamKind is the declared kind of an operation parameter.
type ParamKind string

const (
	KindLayer     ParamKind = "layer"
	KindNumber    ParamKind = "number"
	KindInt       ParamKind = "int"
	KindBoolean   ParamKind = "boolean"
	KindCRS       ParamKind = "crs"
	KindEnum      ParamKind = "enum"
	KindField     ParamKind = "field"
	KindFieldList ParamKind = "field_list"
	KindString    ParamKind = "string"
	KindOutput    ParamKind = "output"
)

// LayerConstraint narrows which layers a layer-kind parameter accepts.
type LayerConstraint string

const (
	LayerAny     LayerConstraint = ""
	LayerVector  LayerConstraint = "vector"
	LayerRaster  LayerConstraint = "raster"
	LayerPoint   LayerConstraint = "point"
	LayerLine    LayerConstraint = "line"
	LayerPolygon LayerConstraint = "polygon"
)

// EnumOption is one legal value of an enum-kind parameter.
type EnumOption struct {
	Value int    `yaml:"value"`
	Label string `yaml:"label"`
}

// CrossCheck is a declarative rule spanning one or more parameters.
//
// Rule "non_zero" fails when the single named parameter equals zero.
// Rule "distinct" fails when all named parameters resolve to the same value.
type CrossCheck struct {
	Rule    string   `yaml:"rule"`
	Params  []string `yaml:"params"`
	Message string   `yaml:"message"`
}

// OperationDescriptor is one catalog entry.
type OperationDescriptor struct {
	Name            string                     `yaml:"name"`
	ExecutionID     string                     `yaml:"execution_id"`
	HumanName       string                     `yaml:"human_name"`
	Description     string                     `yaml:"description"`
	Required        []string                   `yaml:"required"`
	Optional        []string                   `yaml:"optional"`
	Kinds           map[string]ParamKind       `yaml:"kinds"`
	Defaults        map[string]interface{}     `yaml:"defaults"`
	EnumValues      map[string][]EnumOption    `yaml:"enum_values"`
	LayerTypes      map[string]LayerConstraint `yaml:"layer_types"`
	Synonyms        map[string]string          `yaml:"synonyms"`
	CrossFieldRules []CrossCheck               `yaml:"cross_checks"`
}

// KindOf returns the declared kind, defaulting to string for undeclared names.
func (d OperationDescriptor) KindOf(param string) ParamKind {
	if kind, ok := d.Kinds[param]; ok && kind != "" {
		return kind
	}
	return KindString
}

// AllParams returns required followed by optional parameter names.
func (d OperationDescriptor) AllParams() []string {
	out := make([]string, 0, len(d.Required)+len(d.Optional))
	out = append(out, d.Required...)
	return append(out, d.Optional...)
}

// IsRequired reports whether param is in the required list.
func (d OperationDescriptor) IsRequired(param string) bool {
	for _, name := range d.Required {
		if name == param {
			return true
		}
	}
	return false
}

// Default returns the catalog default for param, if declared and non-nil.
func (d OperationDescriptor) Default(param string) (interface{}, bool) {
	value, ok := d.Defaults[param]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// OutputParams returns the parameter names declared with output kind.
func (d OperationDescriptor) OutputParams() []string {
	var out []string
	for _, name := range d.AllParams() {
		if d.KindOf(name) == KindOutput {
			out = append(out, name)
		}
	}
	return out
}

// CanonicalParam maps a model-produced parameter name to the catalog name.
// Unknown names are upper-cased.
func (d OperationDescriptor) CanonicalParam(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := d.Synonyms[lower]; ok {
		return mapped
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	return upper
}

// DisplayName returns the human name, falling back to the operation key.
func (d OperationDescriptor) DisplayName() string {
	if d.HumanName != "" {
		return d.HumanName
	}
	return d.Name
}
