package main

import (
	"fmt"
	"os"

	lwerrors "linewatch/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	switch lwerrors.CodeOf(err) {
	case lwerrors.UsageError, lwerrors.ConfigInvalid:
		return 2
	default:
		return 1
	}
}
