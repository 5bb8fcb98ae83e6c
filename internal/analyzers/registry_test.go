package analyzers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linewatch/internal/config"
	lwerrors "linewatch/internal/errors"
	"linewatch/internal/slogutil"
)

func names(tools []*Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name()
	}
	return out
}

func TestBuildDefaults(t *testing.T) {
	cfg := config.DefaultConfig()

	tools, err := Build(cfg, nil, NewMockRunner())
	require.NoError(t, err)

	assert.Equal(t, []string{"flake8", "pylint", "mypy", "bandit"}, names(tools))
	assert.Equal(t, 60*time.Second, tools[2].Timeout())
	assert.Equal(t, 30*time.Second, tools[0].Timeout())
	assert.Len(t, AsAnalyzers(tools), 4)
}

func TestBuildCustomDefinitions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analyzers.Enabled = []string{"flake8", "mypy", "flake8"}

	custom := []Definition{
		{Name: "mypy", Command: "dmypy", Args: []string{"run", "--", "{path}"}, LineField: 1},
		{Name: "ruff", Command: "ruff", Args: []string{"check", "{path}"}, LineField: 1},
	}

	tools, err := Build(cfg, custom, NewMockRunner())
	require.NoError(t, err)

	assert.Equal(t, []string{"flake8", "mypy", "ruff"}, names(tools))
	assert.Equal(t, "dmypy", tools[1].Command())
}

func TestBuildUnknownAnalyzer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analyzers.Enabled = []string{"pyflakes"}

	_, err := Build(cfg, nil, NewMockRunner())
	assert.True(t, lwerrors.Is(err, lwerrors.ConfigInvalid))
}

func TestBuildForRoot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".linewatch")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analyzers.toml"), []byte(`
[[analyzer]]
name = "ruff"
command = "ruff"
args = ["check", "--output-format=concise", "{path}"]
line_field = 1
ok_exit_codes = [0, 1]
timeout_ms = 5000
`), 0644))

	cfg := config.DefaultConfig()
	cfg.Analyzers.Enabled = []string{"flake8"}

	tools, err := BuildForRoot(root, cfg, NewMockRunner(), slogutil.NewDiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"flake8", "ruff"}, names(tools))
	assert.Equal(t, 5*time.Second, tools[1].Timeout())
	assert.Equal(t, []string{"check", "--output-format=concise", "src/app.py"}, tools[1].Args("src/app.py"))
}

func TestParseDefinitionsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `[[analyzer]` + "\n"},
		{"missing command", "[[analyzer]]\nname = \"x\"\nargs = [\"{path}\"]\n"},
		{"missing placeholder", "[[analyzer]]\nname = \"x\"\ncommand = \"x\"\nargs = [\"--check\"]\n"},
		{"unknown key", "[[analyzer]]\nname = \"x\"\ncommand = \"x\"\nargs = [\"{path}\"]\nlines = 2\n"},
		{"duplicate", "[[analyzer]]\nname = \"x\"\ncommand = \"x\"\nargs = [\"{path}\"]\n" +
			"[[analyzer]]\nname = \"x\"\ncommand = \"y\"\nargs = [\"{path}\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinitions(tt.data, "analyzers.toml")
			require.Error(t, err)
			assert.Equal(t, lwerrors.ConfigInvalid, lwerrors.CodeOf(err))
		})
	}
}

func TestLoadDefinitionsMissingFile(t *testing.T) {
	defs, err := LoadDefinitions(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Nil(t, defs)
}
