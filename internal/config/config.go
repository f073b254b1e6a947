package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cdd-platform/cdd/internal/ordered"
)

// FileName is the configuration file written by init and searched for first.
const FileName = "cdd.yml"

// legacyFileName is still accepted when no cdd.yml is found.
const legacyFileName = "config.yml"

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultOpenAPI     = "openapi.yml"
	DefaultSchema      = "schema.sql"
	DefaultHistory     = ".cdd/history.db"
)

// Config represents the cdd.yml configuration file
type Config struct {
	Name        string               `yaml:"name"`
	Version     string               `yaml:"version"`
	Description string               `yaml:"description"`
	Author      string               `yaml:"author"`
	OpenAPI     string               `yaml:"openapi"`
	Schema      string               `yaml:"schema"`
	Timeout     time.Duration        `yaml:"timeout"`
	Concurrency int                  `yaml:"concurrency"`
	History     string               `yaml:"history"`
	Services    ordered.Map[Service] `yaml:"services"`

	// File is the absolute path the configuration was loaded from, and Dir
	// its directory. Relative paths are resolved against Dir.
	File string `yaml:"-"`
	Dir  string `yaml:"-"`
}

// Service describes one adaptor and the project it manages
type Service struct {
	Name          string `yaml:"-"`
	BinPath       string `yaml:"bin_path"`
	TemplatePath  string `yaml:"template_path"`
	ProjectPath   string `yaml:"project_path"`
	ComponentFile string `yaml:"component_file"`
	RequestsFile  string `yaml:"requests_file"`
}

// RecordFile is the file holding the project's records.
func (s Service) RecordFile() string {
	return filepath.Join(s.ProjectPath, s.ComponentFile)
}

// RequestFile is the file holding the project's requests.
func (s Service) RequestFile() string {
	return filepath.Join(s.ProjectPath, s.RequestsFile)
}

// Default returns the configuration written by init for a new project.
func Default(name string) *Config {
	const binPath = "~/.cdd/bin"

	cfg := &Config{
		Name:        name,
		Version:     "0.0.1",
		Description: "description",
		Author:      "me@me.com",
		OpenAPI:     DefaultOpenAPI,
		Schema:      DefaultSchema,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		History:     DefaultHistory,
	}

	cfg.Services.Set("rust", Service{
		BinPath:       binPath + "/cdd-rust",
		TemplatePath:  "~/.cdd/templates/rust",
		ProjectPath:   "./rust",
		ComponentFile: "src/models.rs",
		RequestsFile:  "src/routes.rs",
	})
	cfg.Services.Set("typescript", Service{
		BinPath:       binPath + "/cdd-typescript",
		TemplatePath:  "~/.cdd/templates/typescript",
		ProjectPath:   "./typescript",
		ComponentFile: "API/Models.ts",
		RequestsFile:  "API/Requests.ts",
	})
	cfg.Services.Set("kotlin", Service{
		BinPath:       binPath + "/cdd-kotlin",
		TemplatePath:  "~/.cdd/templates/kotlin",
		ProjectPath:   "./kotlin",
		ComponentFile: "API/Models.kt",
		RequestsFile:  "API/Requests.kt",
	})
	if runtime.GOOS == "darwin" {
		cfg.Services.Set("ios", Service{
			BinPath:       binPath + "/cdd-swift",
			TemplatePath:  "~/.cdd/templates/iOS",
			ProjectPath:   "./iOS",
			ComponentFile: "cddTemplate/Source/API/APIModels.swift",
			RequestsFile:  "cddTemplate/Source/API/APIRequests.swift",
		})
	}

	return cfg
}

// LoadConfig loads the configuration from the current directory or a parent directory
func LoadConfig() (*Config, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return loadConfigFromDir(dir)
}

// LoadConfigFromPath loads the configuration from a specific path
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(interpolateEnvVars(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	config.File = abs
	config.Dir = filepath.Dir(abs)

	// Set defaults
	if config.OpenAPI == "" {
		config.OpenAPI = DefaultOpenAPI
	}
	if config.Schema == "" {
		config.Schema = DefaultSchema
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Concurrency == 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.History == "" {
		config.History = DefaultHistory
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	for name, svc := range c.Services.All() {
		if svc.BinPath == "" {
			errs = append(errs, fmt.Errorf("service %s: bin_path is required", name))
		}
		if svc.ProjectPath == "" {
			errs = append(errs, fmt.Errorf("service %s: project_path is required", name))
		}
	}
	return errors.Join(errs...)
}

// loadConfigFromDir searches for cdd.yml (or config.yml) in the given directory and its parents
func loadConfigFromDir(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range []string{FileName, legacyFileName} {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				config, err := LoadConfigFromPath(configPath)
				if err != nil {
					return nil, "", err
				}
				return config, dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}

	return nil, "", fmt.Errorf("no %s found in %s or any parent directory. Try running the init command first if this is a new project", FileName, startDir)
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Write stores the configuration as YAML at path.
func (c *Config) Write(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Path resolves p against the configuration directory, expanding a leading ~/.
func (c *Config) Path(p string) string {
	p = ExpandHome(p)
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ServiceList returns the configured services in declared order, with names
// set and paths resolved.
func (c *Config) ServiceList() []Service {
	services := make([]Service, 0, c.Services.Len())
	for name, svc := range c.Services.All() {
		svc.Name = name
		svc.BinPath = c.binPath(svc.BinPath)
		svc.TemplatePath = c.Path(svc.TemplatePath)
		svc.ProjectPath = c.Path(svc.ProjectPath)
		services = append(services, svc)
	}
	return services
}

// binPath resolves an executable path like Path. A bare command name is
// left alone.
func (c *Config) binPath(p string) string {
	p = ExpandHome(p)
	if !strings.ContainsRune(p, '/') && !strings.ContainsRune(p, filepath.Separator) {
		return p
	}
	return c.Path(p)
}

// Select returns the named services in declared order, or every service when
// names is empty.
func (c *Config) Select(names []string) ([]Service, error) {
	all := c.ServiceList()
	if len(names) == 0 {
		return all, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if !c.Services.Has(name) {
			return nil, fmt.Errorf("unknown adaptor %q (configured: %s)", name, strings.Join(c.Services.Keys(), ", "))
		}
		wanted[name] = true
	}

	selected := make([]Service, 0, len(wanted))
	for _, svc := range all {
		if wanted[svc.Name] {
			selected = append(selected, svc)
		}
	}
	return selected, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}
