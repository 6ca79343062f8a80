package ai

import (
	"fmt"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// buildFunctions declares one execute_<op> function per catalog entry.
func buildFunctions(ops []domain.OperationDescriptor) []domain.FunctionSpec {
	specs := make([]domain.FunctionSpec, 0, len(ops))
	for _, op := range ops {
		spec := domain.FunctionSpec{
			Name:        domain.FunctionNamePrefix + op.Name,
			Description: op.Description,
			Required:    append([]string{}, op.Required...),
		}
		for _, name := range op.AllParams() {
			spec.Params = append(spec.Params, functionParam(name, op.KindOf(name)))
		}
		specs = append(specs, spec)
	}
	return specs
}

func functionParam(name string, kind domain.ParamKind) domain.FunctionParam {
	switch kind {
	case domain.KindLayer:
		return domain.FunctionParam{Name: name, Type: "string", Description: fmt.Sprintf("Name of the input layer for parameter %s", name)}
	case domain.KindNumber:
		return domain.FunctionParam{Name: name, Type: "number", Description: fmt.Sprintf("Numeric value for parameter %s", name)}
	case domain.KindInt:
		return domain.FunctionParam{Name: name, Type: "integer", Description: fmt.Sprintf("Integer value for parameter %s", name)}
	case domain.KindBoolean:
		return domain.FunctionParam{Name: name, Type: "boolean", Description: fmt.Sprintf("Boolean value for parameter %s", name)}
	case domain.KindCRS:
		return domain.FunctionParam{Name: name, Type: "string", Description: fmt.Sprintf("CRS identifier (e.g., 'EPSG:4326') for parameter %s", name)}
	default:
		return domain.FunctionParam{Name: name, Type: "string", Description: fmt.Sprintf("String value for parameter %s", name)}
	}
}
