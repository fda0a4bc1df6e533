//go:build !linux && !darwin

package hardware

import (
	"context"

	"github.com/agentstack/stackctl/pkg/execx"
)

// totalMemoryGB has no portable implementation here; the detector falls
// back to the conservative default profile.
func totalMemoryGB(_ context.Context, _ execx.Runner) (int, bool) {
	return 0, false
}
