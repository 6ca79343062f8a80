package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/doeshing/geogenie-go/internal/domain"
)

const systemPromptTemplate = `You are GeoGenie, an AI assistant for QGIS geospatial analysis. Your task is to interpret natural language requests and convert them into specific QGIS processing algorithm calls.

CURRENT QGIS CONTEXT:
- Project CRS: {{.CRS}}
- Canvas Extent: {{.Extent}}
- Active Layers: {{.ActiveLayers}}

AVAILABLE LAYERS:
{{range .Layers}}  - {{.}}
{{end}}
AVAILABLE ALGORITHMS: {{.Operations}}

INSTRUCTIONS:
1. Analyze the user's natural language request
2. Identify which QGIS processing algorithm best matches their needs
3. Extract or infer the required parameters from the request and context
4. Use active layer names from the context when the user refers to "this layer", "current layer", etc.
5. If parameters are missing, use reasonable defaults or ask for clarification
6. Always return a structured response using the available functions

Remember: Only use algorithms from the available list. If the request cannot be fulfilled with available algorithms, explain the limitation.`

const fallbackInstructionTemplate = `AVAILABLE FUNCTIONS:
{{range .}}- {{.Name}}: {{.Description}}
{{end}}
Please respond with a JSON object in this exact format:
{
  "algorithm": "algorithm_name",
  "parameters": {"PARAM_NAME": "value"},
  "reasoning": "why this algorithm and these parameters were chosen"
}

If no suitable algorithm exists, respond with:
{
  "algorithm": null,
  "parameters": {},
  "reasoning": "explanation of why the request cannot be fulfilled"
}`

const summaryPromptTemplate = `Generate a brief, user-friendly explanation of what was accomplished:

Algorithm: {{.Name}} - {{.Description}}
Parameters used: {{.Parameters}}
Result: {{.Result}}

Provide a 1-2 sentence explanation in plain language that a GIS user would understand.`

var (
	systemPrompt   = template.Must(template.New("system").Parse(systemPromptTemplate))
	fallbackPrompt = template.Must(template.New("fallback").Parse(fallbackInstructionTemplate))
	summaryPrompt  = template.Must(template.New("summary").Parse(summaryPromptTemplate))
)

type systemData struct {
	CRS          string
	Extent       string
	ActiveLayers string
	Layers       []string
	Operations   string
}

type summaryData struct {
	Name        string
	Description string
	Parameters  string
	Result      string
}

// renderSystemPrompt embeds the snapshot into the extraction preamble.
func renderSystemPrompt(snapshot domain.ContextSnapshot) (string, error) {
	data := systemData{
		CRS:          defaultString(snapshot.ProjectCRS, "Unknown"),
		Extent:       defaultString(snapshot.CanvasExtent, "Unknown"),
		ActiveLayers: "None",
		Operations:   strings.Join(snapshot.AvailableOperations, ", "),
	}

	names := make([]string, 0, len(snapshot.ActiveLayers))
	for _, layer := range snapshot.ActiveLayers {
		names = append(names, layer.Name)
		data.Layers = append(data.Layers, describeLayer(layer))
	}
	if len(names) > 0 {
		data.ActiveLayers = strings.Join(names, ", ")
	}

	return execute(systemPrompt, data)
}

func describeLayer(layer domain.LayerSummary) string {
	geometry := defaultString(layer.GeometryType, "N/A")
	count := "N/A"
	if layer.Type.IsVector() {
		count = fmt.Sprintf("%d", layer.FeatureCount)
	}
	return fmt.Sprintf("%s (%s, %s, %s features)", layer.Name, layer.Type, geometry, count)
}

func renderFallbackInstructions(functions []domain.FunctionSpec) (string, error) {
	return execute(fallbackPrompt, functions)
}

func renderSummaryPrompt(desc domain.OperationDescriptor, params map[string]interface{}, result string) (string, error) {
	return execute(summaryPrompt, summaryData{
		Name:        desc.DisplayName(),
		Description: desc.Description,
		Parameters:  formatParams(params),
		Result:      result,
	})
}

func execute(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
