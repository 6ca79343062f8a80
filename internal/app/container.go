package app

import (
	"context"
	"fmt"

	appcatalog "github.com/doeshing/geogenie-go/internal/application/catalog"
	appconfig "github.com/doeshing/geogenie-go/internal/application/config"
	"github.com/doeshing/geogenie-go/internal/application/contextbuilder"
	"github.com/doeshing/geogenie-go/internal/application/coordinator"
	"github.com/doeshing/geogenie-go/internal/application/doctor"
	"github.com/doeshing/geogenie-go/internal/application/validation"
	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/infrastructure/ai"
	"github.com/doeshing/geogenie-go/internal/infrastructure/catalog"
	"github.com/doeshing/geogenie-go/internal/infrastructure/config"
	"github.com/doeshing/geogenie-go/internal/infrastructure/credentials"
	"github.com/doeshing/geogenie-go/internal/infrastructure/executor"
	"github.com/doeshing/geogenie-go/internal/infrastructure/qgis"
	"github.com/doeshing/geogenie-go/internal/infrastructure/workspace"
	"github.com/doeshing/geogenie-go/internal/pkg/logger"
	"github.com/doeshing/geogenie-go/internal/ports"
)

// Options selects how the container is built.
type Options struct {
	ConfigPath string
	Model      string
	// Offline swaps the configured model for the keyword heuristic.
	Offline bool
	Verbose bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         *logger.ZapLogger
	Catalog        *appcatalog.Registry
	Workspace      *workspace.Project
	Context        *contextbuilder.Builder
	Validator      *validation.Validator
	Model          domain.ModelDefinition
	Gateway        *ai.Gateway
	Runner         *qgis.Runner
	Executor       *executor.Async
	Credentials    *credentials.FileStore
	DoctorService  *doctor.Service
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgLoader.Path(), err)
	}

	level := cfg.Preferences.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, cfg.Preferences.LogFormat)

	registry, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return nil, err
	}

	project, err := workspace.OpenProject(cfg.Workspace.ProjectFile, log)
	if err != nil {
		return nil, err
	}

	builder := contextbuilder.New(project, registry, cfg.Context, log)
	validator := validation.New(registry, builder, workspace.NewCRSResolver(), cfg.Validation, log)
	store := credentials.NewFileStore(cfg.Credentials.Dir)

	model, err := cfg.PickModel(opts.Model)
	if err != nil {
		return nil, err
	}
	if opts.Offline {
		model = domain.ModelDefinition{Name: "offline", Provider: "offline"}
	}
	capability, err := ai.NewFactory(store).ForModel(model)
	if err != nil {
		return nil, fmt.Errorf("provider init: %w", err)
	}
	gateway := ai.NewGateway(capability, registry, log)

	runner := qgis.NewRunner(cfg.Execution, project, log)
	async := executor.NewAsync(runner, project, workspace.GeoPackageProbe{}, cfg.Execution, log)

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Catalog:        registry,
		Workspace:      project,
		Backend:        runner,
		Credentials:    store,
	}

	log.Debug("container ready", map[string]interface{}{
		"config":   cfgLoader.Path(),
		"model":    model.Name,
		"provider": capability.Name(),
		"project":  cfg.Workspace.ProjectFile,
	})

	return &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Catalog:        registry,
		Workspace:      project,
		Context:        builder,
		Validator:      validator,
		Model:          model,
		Gateway:        gateway,
		Runner:         runner,
		Executor:       async,
		Credentials:    store,
		DoctorService:  doctorService,
	}, nil
}

// NewCoordinator builds a request coordinator that confirms through confirmer.
func (c *Container) NewCoordinator(confirmer ports.Confirmer) (*coordinator.Coordinator, error) {
	return coordinator.New(coordinator.Dependencies{
		Context:   c.Context,
		Gateway:   c.Gateway,
		Catalog:   c.Catalog,
		Validator: c.Validator,
		Executor:  c.Executor,
		Workspace: c.Workspace,
		Confirmer: confirmer,
		Logger:    c.Logger,
		Settings:  c.Config.Preferences,
	})
}

// Close flushes the logger.
func (c *Container) Close() {
	c.Executor.Cancel()
	c.Logger.Sync()
}
