package analyzers

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	lwerrors "linewatch/internal/errors"
)

// definitionsFile is the on-disk layout of user-defined analyzers:
//
//	[[analyzer]]
//	name = "ruff"
//	command = "ruff"
//	args = ["check", "--output-format=concise", "{path}"]
//	line_field = 1
//	ok_exit_codes = [0, 1]
type definitionsFile struct {
	Analyzer []Definition `toml:"analyzer"`
}

// LoadDefinitions reads user-defined analyzers from a TOML file.
// A missing file yields no definitions.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, lwerrors.New(lwerrors.ConfigInvalid, "Failed to read analyzer definitions", err, nil).
			WithDetails(map[string]interface{}{"path": path})
	}
	return ParseDefinitions(string(data), path)
}

// ParseDefinitions decodes and validates definitions; source names the input in errors.
func ParseDefinitions(data, source string) ([]Definition, error) {
	var file definitionsFile
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, lwerrors.New(lwerrors.ConfigInvalid, "Invalid analyzer definitions", err, nil).
			WithDetails(map[string]interface{}{"path": source})
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, lwerrors.New(lwerrors.ConfigInvalid, "Unknown keys in analyzer definitions",
			fmt.Errorf("unknown key %q", undecoded[0].String()), nil).
			WithDetails(map[string]interface{}{"path": source})
	}

	seen := make(map[string]bool, len(file.Analyzer))
	for _, d := range file.Analyzer {
		if err := d.Validate(); err != nil {
			return nil, lwerrors.New(lwerrors.ConfigInvalid, "Invalid analyzer definition", err, nil).
				WithDetails(map[string]interface{}{"path": source})
		}
		if seen[d.Name] {
			return nil, lwerrors.New(lwerrors.ConfigInvalid, "Duplicate analyzer definition",
				fmt.Errorf("analyzer %q defined twice", d.Name), nil).
				WithDetails(map[string]interface{}{"path": source})
		}
		seen[d.Name] = true
	}
	return file.Analyzer, nil
}
