package store

import (
	"fmt"
	"os"
)

// Output is one key=value pair handed back to the CI workflow.
type Output struct {
	Key   string
	Value string
}

// AppendCIOutputs appends the pairs in key=value form to the file named by
// GITHUB_OUTPUT. Outside CI the variable is unset and the call is a no-op.
func AppendCIOutputs(outputs []Output) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ci output file: %w", err)
	}
	defer f.Close()

	for _, out := range outputs {
		if _, err := fmt.Fprintf(f, "%s=%s\n", out.Key, out.Value); err != nil {
			return fmt.Errorf("write ci outputs: %w", err)
		}
	}
	return nil
}
