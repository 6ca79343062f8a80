package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/geogenie-go/assets"
	appcatalog "github.com/doeshing/geogenie-go/internal/application/catalog"
	"github.com/doeshing/geogenie-go/internal/domain"
)

type document struct {
	Operations []domain.OperationDescriptor `yaml:"operations"`
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*appcatalog.Registry, error) {
	data := assets.DefaultCatalogYAML
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = raw
	}
	return Parse(data)
}

// Parse decodes a catalog document.
func Parse(data []byte) (*appcatalog.Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("catalog has no operations")
	}
	return appcatalog.NewRegistry(doc.Operations)
}
