//go:build darwin

package hardware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/agentstack/stackctl/pkg/execx"
)

// totalMemoryGB asks sysctl for the physical memory size.
func totalMemoryGB(ctx context.Context, runner execx.Runner) (int, bool) {
	res, err := runner.Run(ctx, execx.Spec{
		Name:    "sysctl",
		Args:    []string{"-n", "hw.memsize"},
		Timeout: 10 * time.Second,
	})
	if err != nil || res.ExitCode != 0 {
		return 0, false
	}
	bytes, err := strconv.ParseInt(strings.TrimSpace(res.Output), 10, 64)
	if err != nil {
		return 0, false
	}
	return int(bytes / (1024 * 1024 * 1024)), true
}
