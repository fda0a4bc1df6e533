//go:build linux

package hardware

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/agentstack/stackctl/pkg/execx"
)

// totalMemoryGB reads MemTotal from /proc/meminfo.
func totalMemoryGB(_ context.Context, _ execx.Runner) (int, bool) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return int(kb / (1024 * 1024)), true
	}
	return 0, false
}
