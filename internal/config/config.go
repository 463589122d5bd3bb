// Package config loads export-jar settings with spf13/viper.
//
// Sources, lowest precedence first: built-in defaults, a YAML config file,
// EXPORTJAR_* environment variables, and command-line flags bound by the
// CLI. The config file is the one given with --config, else
// <workspace>/.export-jar.yaml, else <user config dir>/export-jar/config.yaml.
// A missing implicit file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shinji-kodama/export-jar/internal/generator"
	"github.com/shinji-kodama/export-jar/internal/model"
	"github.com/shinji-kodama/export-jar/internal/projectmodel"
)

const (
	// AppName names the user config directory.
	AppName = "export-jar"

	// EnvPrefix prefixes environment overrides, e.g.
	// EXPORTJAR_GENERATOR_BACKEND=container.
	EnvPrefix = "EXPORTJAR"

	// WorkspaceFileName is the per-workspace config file.
	WorkspaceFileName = ".export-jar.yaml"

	// UserFileName is the config file inside the user config directory.
	UserFileName = "config.yaml"
)

// Generator backends.
const (
	BackendLocal     = "local"
	BackendContainer = "container"
)

// Keys understood by the loader.
const (
	KeyDefaultOutputLocation = "export.default_output_location"
	KeyBackend               = "generator.backend"
	KeyJarPath               = "generator.jar_path"
	KeyImage                 = "generator.image"
	KeyDockerHost            = "generator.docker_host"
	KeySkipBuild             = "build.skip"
	KeyDescriptor            = "project.descriptor"
)

// Config is the resolved configuration.
type Config struct {
	Export    ExportConfig    `mapstructure:"export"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Build     BuildConfig     `mapstructure:"build"`
	Project   ProjectConfig   `mapstructure:"project"`
}

// ExportConfig controls the export pipeline.
type ExportConfig struct {
	// DefaultOutputLocation writes <root>/<base(root)>.jar without asking.
	DefaultOutputLocation bool `mapstructure:"default_output_location"`
}

// GeneratorConfig selects and configures the archive backend.
type GeneratorConfig struct {
	Backend string `mapstructure:"backend"`
	JarPath string `mapstructure:"jar_path"`
	Image   string `mapstructure:"image"`

	// DockerHost overrides DOCKER_HOST for the container backend.
	DockerHost string `mapstructure:"docker_host"`
}

// BuildConfig controls the pre-flight build.
type BuildConfig struct {
	Skip bool `mapstructure:"skip"`
}

// ProjectConfig locates the project descriptor.
type ProjectConfig struct {
	// Descriptor is relative to each workspace folder unless absolute.
	Descriptor string `mapstructure:"descriptor"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Generator: GeneratorConfig{
			Backend: BackendLocal,
			JarPath: generator.DefaultJarPath,
			Image:   generator.DefaultImage,
		},
		Project: ProjectConfig{
			Descriptor: projectmodel.DefaultDescriptorPath,
		},
	}
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigFile is an explicit config file; it must exist.
	ConfigFile string

	// Workspace is searched for WorkspaceFileName.
	Workspace string

	// UserConfigDir overrides os.UserConfigDir.
	UserConfigDir string

	// Flags maps config keys to the command-line flags overriding them.
	Flags map[string]*pflag.Flag
}

// Load resolves the configuration. It returns the config file used, or ""
// when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyDefaultOutputLocation, def.Export.DefaultOutputLocation)
	v.SetDefault(KeyBackend, def.Generator.Backend)
	v.SetDefault(KeyJarPath, def.Generator.JarPath)
	v.SetDefault(KeyImage, def.Generator.Image)
	v.SetDefault(KeyDockerHost, def.Generator.DockerHost)
	v.SetDefault(KeySkipBuild, def.Build.Skip)
	v.SetDefault(KeyDescriptor, def.Project.Descriptor)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, "", fmt.Errorf("failed to bind flag --%s: %w", flag.Name, err)
		}
	}

	path, err := findFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if path != "" {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		return nil, "", err
	}
	return &cfg, path, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Generator.Backend {
	case BackendLocal, BackendContainer:
	default:
		return fmt.Errorf("invalid %s %q (valid: %s, %s)", KeyBackend, c.Generator.Backend, BackendLocal, BackendContainer)
	}
	if c.Generator.Backend == BackendContainer && c.Generator.Image == "" {
		return fmt.Errorf("%s must be set for the %s backend", KeyImage, BackendContainer)
	}
	if c.Project.Descriptor == "" {
		return fmt.Errorf("%s must not be empty", KeyDescriptor)
	}
	return nil
}

// findFile picks the config file to read.
func findFile(opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if !fileExists(opts.ConfigFile) {
			return "", model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("config file not found: %s", opts.ConfigFile))
		}
		return opts.ConfigFile, nil
	}

	if opts.Workspace != "" {
		p := filepath.Join(opts.Workspace, WorkspaceFileName)
		if fileExists(p) {
			return p, nil
		}
	}

	dir := opts.UserConfigDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", nil
		}
		dir = filepath.Join(base, AppName)
	}
	p := filepath.Join(dir, UserFileName)
	if fileExists(p) {
		return p, nil
	}
	return "", nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
