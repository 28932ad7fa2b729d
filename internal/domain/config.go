package domain

import (
	"bytes"
	"strings"
	"text/template"
)

// Config is decree's merged (repo-over-global) configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	AI              AIConfig       `toml:"ai"`
	Commands        CommandsConfig `toml:"commands"`
	Log             LogConfig      `toml:"log"`
	DefaultRoutine  string         `toml:"default_routine,omitempty"`
	MaxRetries      int            `toml:"max_retries,omitempty"`
	MaxDepth        int            `toml:"max_depth,omitempty"`
	NotebookSupport bool           `toml:"notebook_support,omitempty"`
	NotebookRunner  string         `toml:"notebook_runner,omitempty"`
}

// AIConfig holds the embedded-LLM REPL collaborator's settings.
// Consumed entirely by the out-of-core `ai`/`bench` commands.
type AIConfig struct {
	ModelPath  string `toml:"model_path,omitempty"`
	NGPULayers int    `toml:"n_gpu_layers,omitempty"`
}

// CommandsConfig holds external-AI-collaborator command-line templates.
// Each template has exactly one substitution site, "{prompt}".
type CommandsConfig struct {
	Planning         string `toml:"planning,omitempty"`
	PlanningContinue string `toml:"planning_continue,omitempty"`
	Router           string `toml:"router,omitempty"`
}

// LogConfig controls decree's own structured logging.
type LogConfig struct {
	Level string `toml:"level,omitempty"`
}

// NewDefaultConfig returns decree's built-in defaults, per spec.md §6.
func NewDefaultConfig() *Config {
	return &Config{
		MaxRetries:     3,
		MaxDepth:       10,
		DefaultRoutine: "develop",
		NotebookRunner: "jupyter-nbconvert",
		Log:            LogConfig{Level: "info"},
	}
}

// RenderCommandTemplate expands a command-line template's single
// "{prompt}" substitution site.
func RenderCommandTemplate(tmpl, prompt string) (string, error) {
	if tmpl == "" {
		return "", nil
	}
	goTmpl := strings.ReplaceAll(tmpl, "{prompt}", "{{.Prompt}}")
	t, err := template.New("cmd").Parse(goTmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]string{"Prompt": prompt}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
