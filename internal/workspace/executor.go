package workspace

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// commandExecutor runs the workspace tools via os/exec. The ws_* tools are
// quick and their output is small, so captured output is replayed line by
// line after the process exits.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if onLine != nil {
		for _, line := range strings.Split(string(output), "\n") {
			onLine(line)
		}
	}
	if err != nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			return fmt.Errorf("%w: %s", err, trimmed)
		}
		return err
	}
	return nil
}
