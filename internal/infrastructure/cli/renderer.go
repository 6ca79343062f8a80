package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/geogenie-go/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	blockStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// RenderConfirmation prints what is about to run.
func RenderConfirmation(out io.Writer, req domain.ConfirmationRequest) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Confirm %s (%s)", req.Operation.DisplayName(), req.Operation.ExecutionID)))
	if req.Attempt > 1 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("attempt %d", req.Attempt)))
	}
	if req.Reasoning != "" {
		fmt.Fprintln(out, labelStyle.Render("Reasoning"))
		fmt.Fprintln(out, blockStyle.Render(req.Reasoning))
	}
	if req.ContextSummary != "" {
		fmt.Fprintln(out, labelStyle.Render("Context"))
		fmt.Fprintln(out, blockStyle.Render(req.ContextSummary))
	}
	renderValidationBody(out, req.Validation)
}

// RenderValidation prints a standalone validation result.
func RenderValidation(out io.Writer, result domain.ValidationResult) {
	status := okStyle.Render("valid")
	if !result.Confirmable() {
		status = errorStyle.Render("invalid")
	}
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(result.Operation), status)
	renderValidationBody(out, result)
}

func renderValidationBody(out io.Writer, result domain.ValidationResult) {
	fmt.Fprintln(out, labelStyle.Render("Parameters"))
	if len(result.Parameters) == 0 {
		fmt.Fprintln(out, blockStyle.Render(mutedStyle.Render("(none)")))
	}
	for _, name := range result.Parameters.Keys() {
		value := result.Parameters[name]
		fmt.Fprintln(out, blockStyle.Render(fmt.Sprintf("%s = %s %s", name, value.String(), mutedStyle.Render(string(value.Kind)))))
	}
	for _, name := range result.MissingRequired {
		fmt.Fprintln(out, blockStyle.Render(errorStyle.Render("missing required parameter "+name)))
	}
	for _, msg := range result.Errors {
		fmt.Fprintln(out, blockStyle.Render(errorStyle.Render("error: "+msg)))
	}
	for _, msg := range result.Warnings {
		fmt.Fprintln(out, blockStyle.Render(warnStyle.Render("warning: "+msg)))
	}
}

// RenderSuggestions prints advisory hints for a partial request.
func RenderSuggestions(out io.Writer, operation string, s domain.Suggestions) {
	fmt.Fprintln(out, titleStyle.Render("Suggestions for "+operation))
	for _, missing := range s.MissingRequired {
		line := fmt.Sprintf("%s (%s) %s", missing.Parameter, missing.Kind, mutedStyle.Render(missing.Description))
		fmt.Fprintln(out, blockStyle.Render(errorStyle.Render("missing ")+line))
	}
	for _, name := range sortedKeys(s.RecommendedValues) {
		fmt.Fprintln(out, blockStyle.Render(fmt.Sprintf("%s = %v %s", name, s.RecommendedValues[name], mutedStyle.Render("recommended"))))
	}
	for _, name := range sortedKeys(s.LayerSuggestions) {
		fmt.Fprintln(out, blockStyle.Render(fmt.Sprintf("%s: %s", name, strings.Join(s.LayerSuggestions[name], ", "))))
	}
	for _, msg := range s.Warnings {
		fmt.Fprintln(out, blockStyle.Render(warnStyle.Render("warning: "+msg)))
	}
}

// RenderProgress prints one progress line.
func RenderProgress(out io.Writer, ev domain.Event) {
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("[%3d%%]", ev.Percent)), ev.Message)
}

// RenderResult prints the completed envelope.
func RenderResult(out io.Writer, envelope *domain.ResultEnvelope) {
	fmt.Fprintln(out, titleStyle.Render("Completed"))
	if envelope == nil {
		return
	}
	if envelope.Summary != "" {
		fmt.Fprintln(out, blockStyle.Render(envelope.Summary))
	}
	for _, output := range envelope.Outputs {
		name := output.LayerName
		if name == "" {
			name = mutedStyle.Render("(not attached)")
		}
		fmt.Fprintln(out, blockStyle.Render(fmt.Sprintf("%s -> %s [%s] %s", output.Parameter, name, output.Kind, mutedStyle.Render(output.Path))))
		if stats, ok := envelope.Statistics[output.Parameter]; ok {
			fmt.Fprintln(out, blockStyle.Render(blockStyle.Render(fmt.Sprintf("%d features, %s, %s, extent %s",
				stats.FeatureCount, stats.GeometryType, stats.CRS, stats.Extent))))
		}
	}
}

// RenderFailure prints a failed event with its category.
func RenderFailure(out io.Writer, ev domain.Event) {
	fmt.Fprintf(out, "%s %s\n", errorStyle.Render(fmt.Sprintf("Failed (%s):", ev.Category)), ev.Error)
	if ev.Message != "" {
		fmt.Fprintln(out, blockStyle.Render(mutedStyle.Render(ev.Message)))
	}
}

// RenderCancelled prints a neutral cancellation notice.
func RenderCancelled(out io.Writer, reason string) {
	if reason == "" {
		reason = "Operation cancelled"
	}
	fmt.Fprintln(out, warnStyle.Render(reason))
}

// RenderCatalog lists the operations with their parameters.
func RenderCatalog(out io.Writer, ops []domain.OperationDescriptor) {
	for _, op := range ops {
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(op.Name), mutedStyle.Render(op.ExecutionID))
		if op.Description != "" {
			fmt.Fprintln(out, blockStyle.Render(op.Description))
		}
		for _, name := range op.AllParams() {
			line := fmt.Sprintf("%s (%s)", name, op.KindOf(name))
			if op.IsRequired(name) {
				line += " " + labelStyle.Render("required")
			} else if def, ok := op.Default(name); ok {
				line += " " + mutedStyle.Render(fmt.Sprintf("default %v", def))
			}
			fmt.Fprintln(out, blockStyle.Render(line))
		}
	}
}

// RenderLayers lists the workspace layers.
func RenderLayers(out io.Writer, layers []domain.Layer) {
	if len(layers) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No layers loaded."))
		return
	}
	for _, layer := range layers {
		status := okStyle.Render("ok")
		if !layer.Valid {
			status = errorStyle.Render("unreadable")
		}
		index := ""
		if layer.Kind == domain.DataVector {
			index = mutedStyle.Render("no index")
			if layer.HasSpatialIndex {
				index = okStyle.Render("indexed")
			}
		}
		fmt.Fprintf(out, "%s %s [%s] %s %s\n", labelStyle.Render(layer.Name), mutedStyle.Render(layer.ID), layer.Kind, status, index)
	}
}

func renderDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		style := okStyle
		switch check.Status {
		case domain.HealthWarn:
			style = warnStyle
		case domain.HealthError:
			style = errorStyle
		}
		fmt.Fprintf(out, "%s %s - %s\n", style.Render("["+strings.ToUpper(string(check.Status))+"]"), check.Name, check.Details)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
