package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/pkg/metrics"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// OperationSource is the catalog view the gateway needs.
type OperationSource interface {
	All() []domain.OperationDescriptor
	Get(name string) (domain.OperationDescriptor, bool)
}

// Gateway turns free text into a RawIntent and run results into a short explanation.
// Neither entry point returns an error; failures are folded into the result.
type Gateway struct {
	capability ports.CompletionCapability
	catalog    OperationSource
	logger     ports.Logger
}

// NewGateway wires a gateway. A nil capability yields failed intents and fallback summaries.
func NewGateway(capability ports.CompletionCapability, catalog OperationSource, logger ports.Logger) *Gateway {
	return &Gateway{capability: capability, catalog: catalog, logger: logger}
}

// ExtractIntent asks the model which catalog operation the prompt wants.
func (g *Gateway) ExtractIntent(ctx context.Context, prompt string, snapshot domain.ContextSnapshot) (intent domain.RawIntent) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("intent extraction panicked", fmt.Errorf("%v", r), nil)
			intent = domain.FailedIntent("Internal error while contacting the language model", fmt.Sprint(r))
		}
	}()

	if g.capability == nil {
		return domain.FailedIntent(fmt.Sprintf("Language model is not configured (%v)", domain.ErrNoGateway), "")
	}

	system, err := renderSystemPrompt(snapshot)
	if err != nil {
		g.logger.Error("render system prompt", err, nil)
		return domain.FailedIntent("Could not build the model prompt", err.Error())
	}
	functions := buildFunctions(g.catalog.All())

	provider := g.capability.Name()
	g.logger.Debug("extracting intent", map[string]interface{}{
		"provider":         provider,
		"native":           g.capability.SupportsFunctions(),
		"estimated_tokens": estimateTokens(system + " " + prompt),
		"functions":        len(functions),
	})

	start := time.Now()
	if g.capability.SupportsFunctions() {
		intent = g.extractNative(ctx, system, prompt, functions)
	} else {
		intent = g.extractFallback(ctx, system, prompt, functions)
	}
	metrics.GatewayDuration.WithLabelValues(provider, "extract").Observe(time.Since(start).Seconds())
	metrics.GatewayCalls.WithLabelValues(provider, "extract", resultLabel(intent.Success)).Inc()

	fields := map[string]interface{}{
		"provider":   provider,
		"success":    intent.Success,
		"operation":  intent.Operation,
		"confidence": intent.Confidence,
	}
	if intent.Success {
		g.logger.Info("intent extracted", fields)
	} else {
		fields["error"] = intent.Error
		g.logger.Warn("intent extraction failed", fields)
	}
	return intent
}

func (g *Gateway) extractNative(ctx context.Context, system, prompt string, functions []domain.FunctionSpec) domain.RawIntent {
	resp, err := g.capability.Complete(ctx, ports.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Functions:   functions,
		Temperature: domain.ExtractionTemperature,
	})
	if err != nil {
		return g.failure(err)
	}
	if resp.Call == nil {
		return domain.FailedIntent("Could not determine appropriate algorithm", resp.Text)
	}

	op := stripFunctionPrefix(resp.Call.Name)
	reasoning := resp.Text
	if reasoning == "" {
		reasoning = fmt.Sprintf("Executing %s algorithm", op)
	}
	return g.intent(op, resp.Call.Args, domain.NativeCallConfidence, reasoning)
}

func (g *Gateway) extractFallback(ctx context.Context, system, prompt string, functions []domain.FunctionSpec) domain.RawIntent {
	instructions, err := renderFallbackInstructions(functions)
	if err != nil {
		return domain.FailedIntent("Could not build the model prompt", err.Error())
	}

	resp, err := g.capability.Complete(ctx, ports.CompletionRequest{
		Prompt:      system + "\n\n" + instructions + "\n\n" + userRequestMarker + " " + prompt,
		Temperature: domain.ExtractionTemperature,
	})
	if err != nil {
		return g.failure(err)
	}

	envelope, err := parseFallbackEnvelope(resp.Text)
	if err != nil {
		g.logger.Debug("fallback envelope rejected", map[string]interface{}{"error": err.Error()})
		return domain.FailedIntent("Could not parse algorithm request", resp.Text)
	}
	if envelope.Algorithm == "" {
		return domain.FailedIntent("No suitable algorithm found", defaultString(envelope.Reasoning, "Unknown reason"))
	}
	return g.intent(stripFunctionPrefix(envelope.Algorithm), envelope.Parameters, domain.FallbackCallConfidence, envelope.Reasoning)
}

// intent maps model parameter names onto catalog names. An exact catalog name beats a synonym.
func (g *Gateway) intent(op string, args map[string]interface{}, confidence float64, reasoning string) domain.RawIntent {
	desc, known := g.catalog.Get(op)
	if known {
		op = desc.Name
	}

	canonical := func(key string) string {
		if known {
			return desc.CanonicalParam(key)
		}
		return strings.ToUpper(strings.TrimSpace(key))
	}

	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	params := make(map[string]interface{}, len(args))
	for _, key := range keys {
		if name := canonical(key); name != key {
			params[name] = args[key]
		}
	}
	for _, key := range keys {
		if canonical(key) == key {
			params[key] = args[key]
		}
	}

	return domain.RawIntent{
		Success:    true,
		Operation:  op,
		Parameters: params,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}

func (g *Gateway) failure(err error) domain.RawIntent {
	g.logger.Error("language model call failed", err, map[string]interface{}{"provider": g.capability.Name()})
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return domain.FailedIntent("Language model rejected the credentials: "+err.Error(), "")
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		return domain.FailedIntent("Language model is unavailable: "+err.Error(), "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.FailedIntent("Language model request was cancelled: "+err.Error(), "")
	default:
		return domain.FailedIntent("Language model request failed: "+err.Error(), "")
	}
}

// Summarize explains a finished run in one or two sentences, falling back to a fixed sentence.
func (g *Gateway) Summarize(ctx context.Context, op string, params map[string]interface{}, envelope domain.ResultEnvelope) (summary string) {
	fallback := g.fallbackSummary(op)
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("summary panicked", fmt.Errorf("%v", r), nil)
			summary = fallback
		}
	}()

	desc, known := g.catalog.Get(op)
	if g.capability == nil || !known {
		return fallback
	}

	prompt, err := renderSummaryPrompt(desc, params, formatStatistics(envelope))
	if err != nil {
		return fallback
	}

	provider := g.capability.Name()
	start := time.Now()
	resp, err := g.capability.Complete(ctx, ports.CompletionRequest{
		Prompt:      prompt,
		Temperature: domain.SummaryTemperature,
		MaxTokens:   domain.SummaryMaxTokens,
	})
	metrics.GatewayDuration.WithLabelValues(provider, "summarize").Observe(time.Since(start).Seconds())

	text := strings.TrimSpace(resp.Text)
	if err != nil || text == "" {
		metrics.GatewayCalls.WithLabelValues(provider, "summarize", resultLabel(false)).Inc()
		if err != nil {
			g.logger.Warn("summary fell back to template", map[string]interface{}{"error": err.Error()})
		}
		return fallback
	}
	metrics.GatewayCalls.WithLabelValues(provider, "summarize", resultLabel(true)).Inc()
	return text
}

func (g *Gateway) fallbackSummary(op string) string {
	if g.catalog != nil {
		if desc, ok := g.catalog.Get(op); ok {
			return fmt.Sprintf("Successfully executed %s algorithm with the provided parameters.", desc.DisplayName())
		}
	}
	return fmt.Sprintf("Executed %s algorithm successfully.", op)
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
