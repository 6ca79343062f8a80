package ai

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// resolveKey prefers the credential store and falls back to the environment.
func resolveKey(store ports.CredentialStore, kind domain.ProviderKind, primary string, fallback string) string {
	if store != nil {
		if key, err := store.Read(kind); err == nil && key != "" {
			return key
		}
	}
	if primary != "" {
		if value := os.Getenv(primary); value != "" {
			return value
		}
	}
	if fallback == "" {
		return ""
	}
	return os.Getenv(fallback)
}

// extractJSONObject returns the first balanced {...} in text, ignoring braces inside strings.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func stripFunctionPrefix(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), domain.FunctionNamePrefix)
}

func estimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * domain.TokenEstimateWordsFactor)
}

func formatParams(params map[string]interface{}) string {
	if len(params) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, ", ")
}

func formatStatistics(envelope domain.ResultEnvelope) string {
	if len(envelope.Statistics) == 0 {
		if envelope.Success {
			return "completed"
		}
		return defaultString(envelope.Error, "failed")
	}
	keys := make([]string, 0, len(envelope.Statistics))
	for key := range envelope.Statistics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		stats := envelope.Statistics[key]
		parts = append(parts, fmt.Sprintf("%s: %d features, %s geometry, CRS %s",
			key, stats.FeatureCount, defaultString(stats.GeometryType, "unknown"), defaultString(stats.CRS, "unknown")))
	}
	return strings.Join(parts, "; ")
}
