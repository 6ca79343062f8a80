package domain

import "time"

// Config mirrors ~/.geogenie/config.yaml.
type Config struct {
	ConfigFormatVersion string              `yaml:"config_format_version" mapstructure:"config_format_version"`
	Preferences         Preferences         `yaml:"preferences" mapstructure:"preferences"`
	Models              []ModelDefinition   `yaml:"models" mapstructure:"models"`
	Workspace           WorkspaceSettings   `yaml:"workspace" mapstructure:"workspace"`
	Catalog             CatalogSettings     `yaml:"catalog" mapstructure:"catalog"`
	Validation          ValidationSettings  `yaml:"validation" mapstructure:"validation"`
	Execution           ExecutionSettings   `yaml:"execution" mapstructure:"execution"`
	Context             ContextSettings     `yaml:"context" mapstructure:"context"`
	Credentials         CredentialsSettings `yaml:"credentials" mapstructure:"credentials"`
	Metrics             MetricsSettings     `yaml:"metrics" mapstructure:"metrics"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string `yaml:"default_model" mapstructure:"default_model"`
	ResultPrefix   string `yaml:"result_prefix" mapstructure:"result_prefix"`
	TimeoutSeconds int    `yaml:"timeout" mapstructure:"timeout"`
	LogLevel       string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat      string `yaml:"log_format" mapstructure:"log_format"`
}

// WorkspaceSettings points at the host session description.
type WorkspaceSettings struct {
	ProjectFile string `yaml:"project_file" mapstructure:"project_file"`
}

// CatalogSettings overrides the embedded operation catalog.
type CatalogSettings struct {
	File string `yaml:"file" mapstructure:"file"`
}

// ValidationSettings holds the soft limits applied by the validator.
type ValidationSettings struct {
	MaxDistance  float64 `yaml:"max_distance" mapstructure:"max_distance"`
	MaxSegments  int     `yaml:"max_segments" mapstructure:"max_segments"`
	MemoryOutput string  `yaml:"memory_output" mapstructure:"memory_output"`
}

// ExecutionSettings controls the backend runner and async executor.
type ExecutionSettings struct {
	QGISProcess    string        `yaml:"qgis_process" mapstructure:"qgis_process"`
	OutputDir      string        `yaml:"output_dir" mapstructure:"output_dir"`
	CancelGrace    time.Duration `yaml:"cancel_grace" mapstructure:"cancel_grace"`
	ProgressBuffer int           `yaml:"progress_buffer" mapstructure:"progress_buffer"`
}

// ContextSettings bounds the snapshot size.
type ContextSettings struct {
	MaxNumericFields int `yaml:"max_numeric_fields" mapstructure:"max_numeric_fields"`
	MaxBands         int `yaml:"max_bands" mapstructure:"max_bands"`
}

// CredentialsSettings locates the flat secret files.
type CredentialsSettings struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MetricsSettings configures the optional prometheus endpoint.
type MetricsSettings struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}
