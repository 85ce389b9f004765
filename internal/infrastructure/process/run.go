package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const maxDiagnostic = 4096

// Run executes name with args and waits for it. A failure carries the
// command's combined output, trimmed to a bounded tail.
func Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	cmd.Stderr = &output
	cmd.Stdout = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, Tail(output.String()))
	}
	return nil
}

// Available reports whether name resolves to an executable.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Tail trims command output for error messages.
func Tail(output string) string {
	output = strings.TrimSpace(output)
	if len(output) > maxDiagnostic {
		output = "..." + output[len(output)-maxDiagnostic:]
	}
	return output
}
