package analyzers

import (
	"fmt"
	"log/slog"

	"linewatch/internal/config"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/paths"
)

// Build resolves the analyzers to run for cfg, in order.
//
// Names in analyzers.enabled are looked up first among custom definitions and
// then among the built-ins, so a definition may replace a built-in tool.
// Custom definitions not named in the enabled list run after it.
func Build(cfg *config.Config, custom []Definition, runner ExecRunner) ([]*Tool, error) {
	builtins := Builtins()
	byName := make(map[string]Definition, len(custom))
	for _, d := range custom {
		byName[d.Name] = d
	}

	tools := make([]*Tool, 0, len(cfg.Analyzers.Enabled)+len(custom))
	used := make(map[string]bool)

	for _, name := range cfg.Analyzers.Enabled {
		if used[name] {
			continue
		}
		def, ok := byName[name]
		if !ok {
			def, ok = builtins[name]
		}
		if !ok {
			return nil, lwerrors.New(lwerrors.ConfigInvalid, "Unknown analyzer",
				fmt.Errorf("analyzer %q is neither built in nor defined in %s", name, cfg.Analyzers.DefinitionsFile), nil)
		}
		used[name] = true
		tools = append(tools, NewTool(def, cfg.AnalyzerTimeout(name), runner))
	}

	for _, d := range custom {
		if used[d.Name] {
			continue
		}
		used[d.Name] = true
		tools = append(tools, NewTool(d, cfg.AnalyzerTimeout(d.Name), runner))
	}

	return tools, nil
}

// BuildForRoot loads custom definitions relative to root and builds the analyzers.
func BuildForRoot(root string, cfg *config.Config, runner ExecRunner, logger *slog.Logger) ([]*Tool, error) {
	var custom []Definition
	if cfg.Analyzers.DefinitionsFile != "" {
		defsPath := paths.ResolveFromRoot(root, cfg.Analyzers.DefinitionsFile)
		defs, err := LoadDefinitions(defsPath)
		if err != nil {
			return nil, err
		}
		if len(defs) > 0 {
			logger.Info("Loaded custom analyzers", "path", defsPath, "count", len(defs))
		}
		custom = defs
	}
	return Build(cfg, custom, runner)
}

// AsAnalyzers widens tools to the Analyzer interface
func AsAnalyzers(tools []*Tool) []Analyzer {
	out := make([]Analyzer, len(tools))
	for i, t := range tools {
		out[i] = t
	}
	return out
}
