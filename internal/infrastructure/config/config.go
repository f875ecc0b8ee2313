// Package config loads the flat key/value configuration surface of
// spec.md §6 from a YAML file, the same "defaults, then overlay from file"
// pattern the teacher's config package uses, but rejecting unknown keys
// instead of silently ignoring them.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencustomize/opencustomize/internal/domain"
)

const (
	ConfigFileName = "opencustomize.yaml"
	ConfigDirName  = ".opencustomize"
)

// closedSourceNames is used only for the configuration-error message; the
// authoritative check is domain.ParseSourceKind.
var closedSourceNames = []string{
	"UserTemplate", "UserCustomization", "LibraryTemplate",
	"LibraryCustomization", "PluginCustomization", "GeneratorDefault",
}

// Config is the configuration surface from spec.md §6.
type Config struct {
	TemplateSources               []string          `yaml:"templateSources"`
	Parallel                      bool              `yaml:"parallel"`
	DebugTemplateResolution       bool              `yaml:"debugTemplateResolution"`
	TemplateVariables              map[string]string `yaml:"templateVariables"`
	UserTemplateDir                string            `yaml:"userTemplateDir"`
	UserTemplateCustomizationsDir  string            `yaml:"userTemplateCustomizationsDir"`
	GeneratorName                  string            `yaml:"generatorName"`
	GeneratorVersion                string            `yaml:"generatorVersion"`
}

// Default returns the configuration used when no file is present: all six
// sources in their default precedence order, parallel enabled.
func Default() *Config {
	return &Config{
		TemplateSources:          append([]string(nil), closedSourceNames...),
		Parallel:                 true,
		DebugTemplateResolution:  false,
		TemplateVariables:        map[string]string{},
	}
}

// Load reads and overlays configuration from path. A missing file is not an
// error; Default() is returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, &domain.IOError{Path: path, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	fileConfig := Config{Parallel: cfg.Parallel}
	if err := dec.Decode(&fileConfig); err != nil {
		return nil, unknownKeyError(path, err)
	}

	if len(fileConfig.TemplateSources) > 0 {
		cfg.TemplateSources = fileConfig.TemplateSources
	}
	cfg.Parallel = fileConfig.Parallel
	cfg.DebugTemplateResolution = fileConfig.DebugTemplateResolution
	if fileConfig.TemplateVariables != nil {
		cfg.TemplateVariables = fileConfig.TemplateVariables
	}
	cfg.UserTemplateDir = expandPath(fileConfig.UserTemplateDir)
	cfg.UserTemplateCustomizationsDir = expandPath(fileConfig.UserTemplateCustomizationsDir)
	cfg.GeneratorName = fileConfig.GeneratorName
	cfg.GeneratorVersion = fileConfig.GeneratorVersion

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects an unknown templateSources entry and an empty
// generatorName, per spec.md §6/§7 ConfigurationError.
func (c *Config) Validate() error {
	if c.GeneratorName == "" {
		return &domain.ConfigurationError{
			Key: "generatorName", Reason: "must not be empty",
		}
	}
	for _, name := range c.TemplateSources {
		if _, ok := domain.ParseSourceKind(name); !ok {
			return &domain.ConfigurationError{
				Key: "templateSources", Value: name,
				Reason: "unknown source", Allowed: closedSourceNames,
			}
		}
	}
	return nil
}

// SourceKinds parses TemplateSources into domain.SourceKind values. Callers
// only reach this after Validate has succeeded.
func (c *Config) SourceKinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(c.TemplateSources))
	for _, name := range c.TemplateSources {
		if k, ok := domain.ParseSourceKind(name); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// GetConfigPath returns the default per-user config file path.
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ConfigDirName, ConfigFileName)
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}

var yamlUnknownFieldRe = regexp.MustCompile(`field (\S+) not found`)

// unknownKeyError turns yaml.v3's KnownFields error text into a
// domain.ConfigurationError naming the offending key, per spec.md §6
// ("Unknown configuration keys are rejected with the offending key").
func unknownKeyError(path string, err error) error {
	msg := err.Error()
	if m := yamlUnknownFieldRe.FindStringSubmatch(msg); m != nil {
		key := strings.Trim(m[1], `"`)
		return &domain.ConfigurationError{
			Key: key, Reason: fmt.Sprintf("unknown configuration key in %s", path),
		}
	}
	return &domain.ConfigurationError{Key: "", Reason: msg}
}
