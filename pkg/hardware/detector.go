// Package hardware inspects the host for accelerator presence and memory
// capacity and maps the result to a model tier. Detection is advisory: it
// never fails a provisioning run, it only degrades to a conservative default.
package hardware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agentstack/stackctl/pkg/execx"
)

// Profile describes the detected host capacity.
type Profile struct {
	HasAccelerator bool
	TotalMemoryGB  int
}

// DefaultProfile is assumed when detection is inconclusive.
var DefaultProfile = Profile{HasAccelerator: false, TotalMemoryGB: 8}

// Tier is the model policy bucket chosen from a Profile.
type Tier string

const (
	TierMinimal  Tier = "minimal"
	TierBalanced Tier = "balanced"
	TierMaximal  Tier = "maximal"
)

// ParseTier validates a user-supplied tier override.
func ParseTier(s string) (Tier, bool) {
	switch Tier(strings.ToLower(s)) {
	case TierMinimal:
		return TierMinimal, true
	case TierBalanced:
		return TierBalanced, true
	case TierMaximal:
		return TierMaximal, true
	}
	return "", false
}

// memoryThresholdGB unlocks the higher tiers.
const memoryThresholdGB = 16

// Detect inspects the host once per run. Any detection failure yields
// DefaultProfile rather than an error.
func Detect(ctx context.Context, runner execx.Runner) Profile {
	profile := DefaultProfile

	if memGB, ok := totalMemoryGB(ctx, runner); ok {
		profile.TotalMemoryGB = memGB
	} else {
		slog.Warn("hardware_memory_detection_inconclusive", "assumed_gb", profile.TotalMemoryGB)
	}

	profile.HasAccelerator = hasNvidiaGPU(ctx, runner)

	slog.Info("hardware_detected",
		"has_accelerator", profile.HasAccelerator,
		"total_memory_gb", profile.TotalMemoryGB)
	return profile
}

func hasNvidiaGPU(ctx context.Context, runner execx.Runner) bool {
	res, err := runner.Run(ctx, execx.Spec{
		Name:    "nvidia-smi",
		Args:    []string{"-L"},
		Timeout: 10 * time.Second,
	})
	if err != nil || res.ExitCode != 0 {
		return false
	}
	return strings.Contains(res.Output, "GPU")
}

// TierFor maps a profile to a tier. Pure function; an accelerator plus the
// memory threshold unlocks the maximal tier, either alone the balanced one.
func TierFor(p Profile) Tier {
	switch {
	case p.HasAccelerator && p.TotalMemoryGB >= memoryThresholdGB:
		return TierMaximal
	case p.HasAccelerator || p.TotalMemoryGB >= memoryThresholdGB:
		return TierBalanced
	default:
		return TierMinimal
	}
}

// ModelForTier is the default inference model pulled for each tier.
func ModelForTier(t Tier) string {
	switch t {
	case TierMaximal:
		return "llama3.1:70b"
	case TierBalanced:
		return "llama3.1:8b"
	default:
		return "llama3.2:1b"
	}
}
