package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"

	appconfig "github.com/doeshing/geogenie-go/internal/application/config"
	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// OperationNames lists the loaded catalog.
type OperationNames interface {
	Names() []string
}

// BackendLister counts the algorithms the processing backend exposes.
type BackendLister interface {
	Count(ctx context.Context) (int, error)
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Catalog        OperationNames
	Workspace      ports.WorkspaceQuery
	Backend        BackendLister
	Credentials    ports.CredentialStore
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		detail := fmt.Sprintf("loaded version %s, %d models", cfg.ConfigFormatVersion, len(cfg.Models))
		if model, err := cfg.GetDefaultModel(); err == nil {
			detail += fmt.Sprintf(", default %s", model.Name)
		}
		checks = append(checks, ok("Config file", detail))
	}

	if s.Catalog != nil {
		names := s.Catalog.Names()
		checks = append(checks, ok("Catalog", fmt.Sprintf("%d operations: %s", len(names), strings.Join(names, ", "))))
	} else {
		checks = append(checks, fail("Catalog", "not loaded"))
	}

	checks = append(checks, s.workspaceCheck(ctx, cfg))

	if s.Backend != nil {
		if count, err := s.Backend.Count(ctx); err != nil {
			checks = append(checks, warn("qgis_process", err.Error()))
		} else {
			checks = append(checks, ok("qgis_process", fmt.Sprintf("%d algorithms available", count)))
		}
	} else {
		checks = append(checks, warn("qgis_process", "backend runner not initialized"))
	}

	checks = append(checks, s.apiCheck(cfg.Models))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) workspaceCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	if s.Workspace == nil {
		return warn("Workspace", "workspace not initialized")
	}
	layers, err := s.Workspace.Layers(ctx)
	if err != nil {
		return fail("Workspace", err.Error())
	}
	if len(layers) == 0 {
		return warn("Workspace", fmt.Sprintf("no layers in %s", cfg.Workspace.ProjectFile))
	}
	invalid := 0
	for _, layer := range layers {
		if !layer.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return warn("Workspace", fmt.Sprintf("%d layers, %d unreadable", len(layers), invalid))
	}
	return ok("Workspace", fmt.Sprintf("%d layers", len(layers)))
}

func (s *Service) apiCheck(models []domain.ModelDefinition) domain.HealthCheck {
	var missing []string
	for _, model := range models {
		kind := providerOf(model)
		fallback := fallbackEnv(kind)
		if fallback == "" {
			continue
		}
		if s.storedKey(kind) {
			continue
		}
		if envMissing(model.AuthEnvVar, fallback) {
			missing = append(missing, fmt.Sprintf("%s (%s)", model.Name, fallback))
		}
	}
	if len(missing) > 0 {
		return warn("API keys", "missing for "+strings.Join(missing, ", "))
	}
	return ok("API keys", "detected for configured providers")
}

func (s *Service) storedKey(kind domain.ProviderKind) bool {
	if s.Credentials == nil {
		return false
	}
	key, err := s.Credentials.Read(kind)
	return err == nil && key != ""
}

func providerOf(model domain.ModelDefinition) domain.ProviderKind {
	if kind := domain.ParseProviderKind(model.Provider); kind != domain.ProviderKindUnknown {
		return kind
	}
	switch {
	case strings.Contains(model.Endpoint, "anthropic.com"):
		return domain.ProviderKindAnthropic
	case strings.Contains(model.Endpoint, "openai.com"):
		return domain.ProviderKindOpenAI
	case strings.Contains(model.Endpoint, "googleapis.com"):
		return domain.ProviderKindGemini
	default:
		return domain.ProviderKindUnknown
	}
}

func fallbackEnv(kind domain.ProviderKind) string {
	switch kind {
	case domain.ProviderKindAnthropic:
		return "ANTHROPIC_API_KEY"
	case domain.ProviderKindOpenAI:
		return "OPENAI_API_KEY"
	case domain.ProviderKindGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

func envMissing(primary, fallback string) bool {
	if primary != "" && os.Getenv(primary) != "" {
		return false
	}
	if fallback != "" && os.Getenv(fallback) != "" {
		return false
	}
	return true
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
