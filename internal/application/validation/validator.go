// Package validation turns loosely typed, model-extracted parameters into
// algorithm-ready typed parameters.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/pkg/metrics"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// Catalog is the read side of the operation registry.
type Catalog interface {
	Get(name string) (domain.OperationDescriptor, bool)
}

// LayerResolver resolves layer references against the workspace.
type LayerResolver interface {
	ValidateLayer(ctx context.Context, ref string, expected domain.LayerConstraint) domain.LayerValidation
	VisibleCandidates(ctx context.Context, constraint domain.LayerConstraint, limit int) []string
}

// Validator is stateless; identical inputs and host state give identical results.
type Validator struct {
	catalog Catalog
	layers  LayerResolver
	crs     ports.CRSResolver
	limits  domain.ValidationSettings
	logger  ports.Logger
}

// New creates a Validator. layers may be nil, in which case layer names pass through with a warning.
func New(catalog Catalog, layers LayerResolver, crs ports.CRSResolver, limits domain.ValidationSettings, logger ports.Logger) *Validator {
	return &Validator{
		catalog: catalog,
		layers:  layers,
		crs:     crs,
		limits:  limits,
		logger:  logger,
	}
}

// Validate produces a ValidationResult. It never panics; internal faults become errors.
func (v *Validator) Validate(ctx context.Context, operation string, raw map[string]interface{}) (result domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("validation panicked", fmt.Errorf("%v", r), map[string]interface{}{"operation": operation})
			result = domain.ValidationResult{
				Operation:  operation,
				Valid:      false,
				Errors:     []string{fmt.Sprintf("Validation error: %v", r)},
				Parameters: domain.Params{},
			}
		}
		metrics.ValidationsTotal.WithLabelValues(result.Operation, strconv.FormatBool(result.Valid)).Inc()
	}()

	desc, ok := v.catalog.Get(operation)
	if !ok {
		return domain.ValidationResult{
			Operation:  operation,
			Valid:      false,
			Errors:     []string{fmt.Sprintf("Unknown algorithm: %s", operation)},
			Parameters: domain.Params{},
		}
	}

	result = domain.ValidationResult{
		Operation:  desc.Name,
		Errors:     []string{},
		Warnings:   []string{},
		Parameters: domain.Params{},
		Descriptor: &desc,
	}
	e := env{ctx: ctx, layers: v.layers, crs: v.crs, limits: v.limits}
	values := canonicalize(desc, raw)

	for _, name := range desc.Required {
		if _, present := values[name]; !present {
			result.MissingRequired = append(result.MissingRequired, name)
			result.Errors = append(result.Errors, fmt.Sprintf("Missing required parameter: %s", name))
		}
	}

	for _, name := range orderedNames(desc, values) {
		value, warning, err := checkerFor(desc.KindOf(name))(e, v.paramFor(desc, name), values[name])
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Parameters[name] = value
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	for _, name := range desc.Optional {
		if _, present := result.Parameters[name]; present {
			continue
		}
		def, ok := desc.Default(name)
		if !ok {
			continue
		}
		value, _, err := checkerFor(desc.KindOf(name))(e, v.paramFor(desc, name), def)
		if err != nil {
			v.logger.Error("catalog default rejected", err, map[string]interface{}{"operation": desc.Name, "parameter": name})
			continue
		}
		result.Parameters[name] = value
		result.Warnings = append(result.Warnings, fmt.Sprintf("Using default value for %s: %s", name, domain.FormatRaw(def)))
	}

	outputs := desc.OutputParams()
	if len(outputs) == 0 {
		outputs = []string{domain.DefaultOutputParam}
	}
	for _, name := range outputs {
		if _, present := result.Parameters[name]; present {
			continue
		}
		dest := v.limits.GetMemoryOutput()
		result.Parameters[name] = domain.OutputValue(dest)
		result.Warnings = append(result.Warnings, fmt.Sprintf("Added temporary output location: %s", dest))
	}

	result.Errors = append(result.Errors, crossCheck(desc, result.Parameters, values)...)
	result.Valid = len(result.Errors) == 0 && len(result.MissingRequired) == 0

	v.logger.Debug("parameters validated", map[string]interface{}{
		"operation": desc.Name,
		"valid":     result.Valid,
		"errors":    len(result.Errors),
		"warnings":  len(result.Warnings),
		"missing":   result.MissingRequired,
	})
	return result
}

func (v *Validator) paramFor(desc domain.OperationDescriptor, name string) param {
	return param{
		Name:       name,
		Constraint: desc.LayerTypes[name],
		Options:    desc.EnumValues[name],
	}
}

// canonicalize maps synonyms to catalog names and drops nulls.
// An exact catalog name wins over a synonym for the same parameter.
func canonicalize(desc domain.OperationDescriptor, raw map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, len(raw))
	exact := map[string]bool{}
	for _, key := range keys {
		value := raw[key]
		if pv, ok := value.(domain.ParamValue); ok {
			value = pv.Interface()
		}
		if value == nil {
			continue
		}
		if desc.KindOf(desc.CanonicalParam(key)) == domain.KindOutput {
			if s, ok := value.(string); ok && s == "" {
				continue
			}
		}
		name := desc.CanonicalParam(key)
		isExact := name == key
		if _, seen := out[name]; seen && exact[name] && !isExact {
			continue
		}
		out[name] = value
		if isExact {
			exact[name] = true
		}
	}
	return out
}

// orderedNames yields required, optional, then undeclared names, each present in values.
func orderedNames(desc domain.OperationDescriptor, values map[string]interface{}) []string {
	names := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, name := range desc.AllParams() {
		if _, ok := values[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range values {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// crossCheck evaluates the declarative rules. "distinct" also compares the raw references,
// so identical inputs are reported even when one of them failed its own check.
func crossCheck(desc domain.OperationDescriptor, params domain.Params, raw map[string]interface{}) []string {
	var errs []string
	for _, rule := range desc.CrossFieldRules {
		switch rule.Rule {
		case "non_zero":
			for _, name := range rule.Params {
				value, ok := params[name]
				if !ok {
					continue
				}
				if (value.Kind == domain.KindNumber && value.Number == 0) ||
					((value.Kind == domain.KindInt || value.Kind == domain.KindEnum) && value.Int == 0) {
					errs = append(errs, messageOr(rule, fmt.Sprintf("%s cannot be zero", name)))
				}
			}
		case "distinct":
			if len(rule.Params) < 2 {
				continue
			}
			typed := allEqual(rule.Params, func(name string) (string, bool) {
				value, ok := params[name]
				return value.String(), ok
			})
			untyped := allEqual(rule.Params, func(name string) (string, bool) {
				value, ok := raw[name]
				return domain.FormatRaw(value), ok
			})
			if typed || untyped {
				errs = append(errs, messageOr(rule, fmt.Sprintf("%v cannot be the same", rule.Params)))
			}
		}
	}
	return errs
}

func allEqual(names []string, get func(string) (string, bool)) bool {
	first, ok := get(names[0])
	if !ok {
		return false
	}
	for _, name := range names[1:] {
		other, ok := get(name)
		if !ok || other != first {
			return false
		}
	}
	return true
}

func messageOr(rule domain.CrossCheck, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}
