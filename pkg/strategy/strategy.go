// Package strategy loads the declarative YAML strategy files the
// Agent Executor (C9) composes into its system prompt.
package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy is one declarative analysis strategy.
type Strategy struct {
	Name         string   `yaml:"name"`
	DisplayName  string   `yaml:"display_name"`
	Description  string   `yaml:"description"`
	Category     string   `yaml:"category"`
	CoreRules    []string `yaml:"core_rules"`
	RequiredTools []string `yaml:"required_tools"`
	Instructions string   `yaml:"instructions"`
}

// LoadDir parses every *.yaml/*.yml file in dir into a Strategy keyed
// by its Name field. A malformed file is skipped with an error
// collected rather than aborting the whole directory.
func LoadDir(dir string) (map[string]Strategy, error) {
	out := make(map[string]Strategy)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("strategy: read dir %s: %w", dir, err)
	}

	var errs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		var s Strategy
		if err := yaml.Unmarshal(data, &s); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: missing required field 'name'", path))
			continue
		}
		out[s.Name] = s
	}

	if len(errs) > 0 {
		return out, fmt.Errorf("strategy: %d file(s) failed to load: %s", len(errs), strings.Join(errs, "; "))
	}
	return out, nil
}

// Merge combines built-ins with a user directory's strategies, user
// entries overriding built-ins on name conflict (§4.6).
func Merge(builtins, userDefined map[string]Strategy) map[string]Strategy {
	out := make(map[string]Strategy, len(builtins)+len(userDefined))
	for name, s := range builtins {
		out[name] = s
	}
	for name, s := range userDefined {
		out[name] = s
	}
	return out
}

// ComposeSystemPrompt concatenates the named strategies' instructions
// and core rules into one system prompt block, in the order given.
func ComposeSystemPrompt(all map[string]Strategy, names []string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		s, ok := all[name]
		if !ok {
			return "", fmt.Errorf("strategy: unknown strategy %q", name)
		}
		fmt.Fprintf(&b, "## Strategy: %s\n%s\n", s.DisplayName, s.Instructions)
		for _, rule := range s.CoreRules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// RequiredTools returns the union of required_tools across the named
// strategies, so the agent can restrict its tool registry to what the
// active strategies actually need.
func RequiredTools(all map[string]Strategy, names []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		s, ok := all[name]
		if !ok {
			continue
		}
		for _, tool := range s.RequiredTools {
			if !seen[tool] {
				seen[tool] = true
				out = append(out, tool)
			}
		}
	}
	return out
}
