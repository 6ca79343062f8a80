// Package catalog is the read-only registry of analysis operations.
package catalog

import (
	"fmt"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// Registry is built once and never mutated afterwards.
type Registry struct {
	order       []string
	byName      map[string]domain.OperationDescriptor
	byExecution map[string]string
}

// NewRegistry indexes descriptors, rejecting duplicates and incomplete entries.
func NewRegistry(ops []domain.OperationDescriptor) (*Registry, error) {
	r := &Registry{
		byName:      make(map[string]domain.OperationDescriptor, len(ops)),
		byExecution: make(map[string]string, len(ops)),
	}
	for _, op := range ops {
		key := strings.ToLower(strings.TrimSpace(op.Name))
		if key == "" {
			return nil, fmt.Errorf("catalog entry without name")
		}
		if op.ExecutionID == "" {
			return nil, fmt.Errorf("catalog entry %s has no execution id", op.Name)
		}
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %s", op.Name)
		}
		for _, p := range op.Required {
			if _, ok := op.Defaults[p]; ok {
				return nil, fmt.Errorf("%s: required parameter %s must not carry a default", op.Name, p)
			}
		}
		op.Name = key
		op.Synonyms = lowerKeys(op.Synonyms)
		r.byName[key] = op
		r.byExecution[op.ExecutionID] = key
		r.order = append(r.order, key)
	}
	return r, nil
}

// Get looks up an operation case-insensitively.
func (r *Registry) Get(name string) (domain.OperationDescriptor, bool) {
	op, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return op, ok
}

// Names returns operation names in catalog order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ByExecutionID finds the operation dispatched under id.
func (r *Registry) ByExecutionID(id string) (domain.OperationDescriptor, bool) {
	name, ok := r.byExecution[id]
	if !ok {
		return domain.OperationDescriptor{}, false
	}
	return r.byName[name], true
}

// IsKnownExecutionID reports whether id belongs to any operation.
func (r *Registry) IsKnownExecutionID(id string) bool {
	_, ok := r.byExecution[id]
	return ok
}

// All returns descriptors in catalog order.
func (r *Registry) All() []domain.OperationDescriptor {
	out := make([]domain.OperationDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
