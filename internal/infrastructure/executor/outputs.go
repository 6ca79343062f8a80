package executor

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
)

var rasterExtensions = map[string]bool{
	".tif": true, ".tiff": true, ".vrt": true, ".asc": true, ".img": true, ".nc": true,
}

var vectorExtensions = map[string]bool{
	".gpkg": true, ".shp": true, ".geojson": true, ".json": true, ".kml": true, ".gml": true,
	".csv": true, ".fgb": true, ".sqlite": true, ".tab": true,
}

// normalizeOutputs extracts the OUTPUT* entries of a raw backend result in key order.
func normalizeOutputs(raw map[string]interface{}) []domain.OutputDescriptor {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if strings.HasPrefix(key, domain.DefaultOutputParam) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var outputs []domain.OutputDescriptor
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v == "" {
				continue
			}
			outputs = append(outputs, domain.OutputDescriptor{
				Parameter: key,
				Path:      normalizePath(v),
				Kind:      kindForPath(v),
			})
		case domain.LayerHandle:
			if v == nil {
				continue
			}
			outputs = append(outputs, domain.OutputDescriptor{
				Parameter: key,
				Path:      v.Source(),
				Kind:      v.Kind(),
				Handle:    v,
				LayerName: v.Name(),
			})
		}
	}
	return outputs
}

// normalizePath prefixes bare identifiers with the in-memory provider scheme.
func normalizePath(value string) string {
	if strings.HasPrefix(value, "memory:") || strings.HasPrefix(value, "/") || strings.Contains(value, ":") {
		return value
	}
	if vectorExtensions[strings.ToLower(filepath.Ext(value))] || rasterExtensions[strings.ToLower(filepath.Ext(value))] {
		return value
	}
	return "memory:" + value
}

func kindForPath(path string) domain.DataKind {
	if rasterExtensions[strings.ToLower(filepath.Ext(path))] {
		return domain.DataRaster
	}
	return domain.DataVector
}

// deepCopy clones nested maps and slices so the run never aliases caller state.
func deepCopy(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for key, value := range in {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return deepCopy(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = copyValue(v[i])
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}
