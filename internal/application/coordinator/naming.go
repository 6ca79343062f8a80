package coordinator

import (
	"strings"
	"time"
	"unicode"

	"github.com/doeshing/geogenie-go/internal/domain"
)

// nameKeyParams are tried in order; the first one present contributes to the layer name.
var nameKeyParams = []string{"DISTANCE", "FIELD"}

// ResultName builds <prefix>_<operation>[_<key>]_<HHMMSS>.
func ResultName(prefix, operation string, params domain.Params, at time.Time) string {
	parts := []string{prefix, operation}
	for _, key := range nameKeyParams {
		value, ok := params[key]
		if !ok {
			continue
		}
		if text := sanitize(value.String()); text != "" {
			parts = append(parts, text)
		}
		break
	}
	parts = append(parts, at.Format(domain.ResultTimestampLayout))
	return strings.Join(parts, "_")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
}
