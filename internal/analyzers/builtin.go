package analyzers

// Built-in tool definitions. Each output template puts the line number where
// LineField expects it.
var (
	// Flake8 rows: "12:E501 line too long (88 > 79 characters)"
	Flake8 = Definition{
		Name:        "flake8",
		Command:     "flake8",
		Args:        []string{PathPlaceholder, "--format=%(row)d:%(code)s %(text)s"},
		LineField:   0,
		OKExitCodes: []int{0, 1},
		Install:     "pip install flake8",
	}

	// Pylint rows: "12:C0116 Missing function or method docstring"
	// Exit codes 1-31 are a bit mask of message categories; 32 is a usage error.
	Pylint = Definition{
		Name:    "pylint",
		Command: "pylint",
		Args: []string{
			PathPlaceholder,
			"--output-format=text",
			"--msg-template={line}:{msg_id} {msg}",
			"--score=n",
		},
		LineField:   0,
		OKExitCodes: rangeInclusive(0, 31),
		Install:     "pip install pylint",
	}

	// Mypy rows: "pkg/app.py:12: error: Incompatible return value type  [return-value]"
	// Exit code 2 is a crash or invalid invocation.
	Mypy = Definition{
		Name:    "mypy",
		Label:   "MyPy",
		Command: "mypy",
		Args: []string{
			PathPlaceholder,
			"--no-color-output",
			"--no-error-summary",
			"--hide-error-context",
		},
		LineField:   1,
		OKExitCodes: []int{0, 1},
		Install:     "pip install mypy",
	}

	// Bandit rows: "/abs/app.py:15:B602[HIGH][HIGH]: subprocess call with shell=True ..."
	// -ll reports medium severity and above; -i keeps low confidence and above.
	Bandit = Definition{
		Name:    "bandit",
		Command: "bandit",
		Args: []string{
			"-q",
			"-ll",
			"-i",
			"-f", "custom",
			"--msg-template", "{abspath}:{line}:{test_id}[{severity}][{confidence}]: {msg}",
			PathPlaceholder,
		},
		LineField:   1,
		OKExitCodes: []int{0, 1},
		Install:     "pip install bandit",
	}
)

// Builtins returns the built-in definitions keyed by name
func Builtins() map[string]Definition {
	return map[string]Definition{
		Flake8.Name: Flake8,
		Pylint.Name: Pylint,
		Mypy.Name:   Mypy,
		Bandit.Name: Bandit,
	}
}

func rangeInclusive(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
