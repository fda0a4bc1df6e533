// Package deploy assembles the build/start workflow: the fixed step sequence
// that takes a host from a bare container runtime to a running, verified
// service set. Preconditions re-derive every skip decision from external
// state, so a re-run redoes only the work whose artifact is missing.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentstack/stackctl/pkg/compose"
	"github.com/agentstack/stackctl/pkg/errors"
	"github.com/agentstack/stackctl/pkg/execx"
	"github.com/agentstack/stackctl/pkg/hardware"
	"github.com/agentstack/stackctl/pkg/ollama"
	"github.com/agentstack/stackctl/pkg/probe"
	"github.com/agentstack/stackctl/pkg/prompt"
	"github.com/agentstack/stackctl/pkg/workflow"
)

// modelTierKey is the env-file key recording the chosen tier, written after
// detection so a later run's precondition can skip detecting again.
const modelTierKey = "MODEL_TIER"

// Waits holds the per-dependent readiness tunables. A database settles in
// seconds; a GPU-backed model daemon can take minutes on first start.
type Waits struct {
	RuntimeInterval time.Duration
	RuntimeAttempts int
	RunningInterval time.Duration
	RunningAttempts int
	ModelInterval   time.Duration
	ModelAttempts   int
}

// DefaultWaits are the production readiness bounds.
func DefaultWaits() Waits {
	return Waits{
		RuntimeInterval: 2 * time.Second,
		RuntimeAttempts: 5,
		RunningInterval: 5 * time.Second,
		RunningAttempts: 6,
		ModelInterval:   3 * time.Second,
		ModelAttempts:   20,
	}
}

func (w Waits) orDefaults() Waits {
	d := DefaultWaits()
	if w.RuntimeInterval <= 0 {
		w.RuntimeInterval = d.RuntimeInterval
	}
	if w.RuntimeAttempts <= 0 {
		w.RuntimeAttempts = d.RuntimeAttempts
	}
	if w.RunningInterval <= 0 {
		w.RunningInterval = d.RunningInterval
	}
	if w.RunningAttempts <= 0 {
		w.RunningAttempts = d.RunningAttempts
	}
	if w.ModelInterval <= 0 {
		w.ModelInterval = d.ModelInterval
	}
	if w.ModelAttempts <= 0 {
		w.ModelAttempts = d.ModelAttempts
	}
	return w
}

// Deployment wires the workflow's collaborators and policy knobs. One
// Deployment drives one run.
type Deployment struct {
	Runner  execx.Runner
	Compose *compose.Client
	Ollama  *ollama.Client
	Prompts prompt.Source
	// Detect is swappable for tests; nil means hardware.Detect.
	Detect func(ctx context.Context, runner execx.Runner) hardware.Profile

	EnvPath      string
	BaseImage    string
	AppImages    []string
	ServiceCount int

	TierOverride   hardware.Tier // empty means detect
	ForceRebuild   bool
	NonInteractive bool
	Settle         time.Duration
	Waits          Waits

	// run-scoped markers, set by step actions for later preconditions
	startedServices bool
	modelServerUp   bool
}

func (d *Deployment) detect(ctx context.Context) hardware.Profile {
	if d.Detect != nil {
		return d.Detect(ctx, d.Runner)
	}
	return hardware.Detect(ctx, d.Runner)
}

// Steps returns the fixed build/start sequence. Base image before app images
// is load-bearing: the app Dockerfiles build FROM the base image.
func (d *Deployment) Steps() []workflow.Step {
	w := d.Waits.orDefaults()
	return []workflow.Step{
		{
			Name:         "verify-config",
			Precondition: d.configPresent,
			Action:       d.failMissingConfig,
			OnFailure:    workflow.Fatal,
			Remedy:       "run `stackctl init` to fetch the deployment bundle and fill in the configuration file",
		},
		{
			Name:         "verify-runtime",
			Precondition: d.runtimeReachable,
			Action:       d.awaitRuntime(w),
			OnFailure:    workflow.Fatal,
			Remedy:       "start the Docker daemon (or Docker Desktop) and re-run",
		},
		{
			Name:         "detect-hardware",
			Precondition: d.tierAlreadyChosen,
			Action:       d.detectAndChooseTier,
			OnFailure:    workflow.Recoverable,
		},
		{
			Name:         "build-base-image",
			Precondition: d.baseImageBuilt,
			Action:       d.buildBaseImage,
			OnFailure:    workflow.Fatal,
			Remedy:       "inspect the build output above, fix the base Dockerfile, then re-run with --force-rebuild",
		},
		{
			Name:         "build-app-images",
			Precondition: d.appImagesBuilt,
			Action:       d.buildAppImages,
			OnFailure:    workflow.Fatal,
			Remedy:       "inspect the build output above, fix the failing service Dockerfile, then re-run with --force-rebuild",
		},
		{
			Name:         "start-services",
			Precondition: d.servicesRunning,
			Action:       d.startServices,
			OnFailure:    workflow.Fatal,
			Remedy:       "run `docker compose logs` in the install directory to see why startup failed",
		},
		{
			Name:          "verify-running",
			Precondition:  d.alreadyVerifiedRunning,
			Action:        d.settleWait,
			Postcondition: d.awaitRunningCount(w),
			OnFailure:     workflow.Fatal,
			Remedy:        "run `docker compose ps` and `docker compose logs` to find the service that exited",
		},
		{
			Name:         "verify-model-server",
			Precondition: d.modelServerReachable,
			Action:       d.awaitModelServer(w),
			OnFailure:    workflow.Recoverable,
			Remedy:       "install ollama from https://ollama.com/download to enable local inference",
		},
		{
			Name:         "pull-tier-model",
			Precondition: d.modelAlreadyPulled,
			Action:       d.pullTierModel,
			OnFailure:    workflow.Recoverable,
			Remedy:       "pull the model manually with `ollama pull` once the daemon is healthy",
		},
	}
}

// --- step 1: verify-config ---

func (d *Deployment) configPresent(_ context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	present, err := artifactPresent(d.EnvPath)
	if err != nil {
		return workflow.Proceed(), err
	}
	if present {
		return workflow.SkipBecause("configuration file present and non-empty"), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) failMissingConfig(_ context.Context, _ *workflow.RunContext) error {
	return fmt.Errorf("configuration file %s is missing or empty", d.EnvPath)
}

// --- step 2: verify-runtime ---

func (d *Deployment) runtimeReachable(ctx context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	if d.Compose.Reachable(ctx) {
		return workflow.SkipBecause("container runtime reachable"), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) awaitRuntime(w Waits) func(ctx context.Context, rc *workflow.RunContext) error {
	return func(ctx context.Context, rc *workflow.RunContext) error {
		rc.Logf(slog.LevelInfo, "waiting for container runtime to answer")
		err := probe.Await(ctx, probe.Check{
			Name:        "container-runtime",
			Probe:       probe.Command(d.Runner, d.Compose.Bin, "info"),
			Interval:    w.RuntimeInterval,
			MaxAttempts: w.RuntimeAttempts,
		})
		if err != nil {
			return errors.Wrap(err, "container runtime did not answer")
		}
		return nil
	}
}

// --- step 3: detect-hardware ---

func (d *Deployment) tierAlreadyChosen(_ context.Context, rc *workflow.RunContext) (workflow.SkipDecision, error) {
	if d.TierOverride != "" {
		rc.Tier = d.TierOverride
		return workflow.SkipBecause(fmt.Sprintf("model tier pinned to %s", d.TierOverride)), nil
	}
	if raw, ok := readEnvValue(d.EnvPath, modelTierKey); ok {
		if tier, valid := hardware.ParseTier(raw); valid {
			rc.Tier = tier
			return workflow.SkipBecause(fmt.Sprintf("model tier %s recorded in configuration", tier)), nil
		}
	}
	return workflow.Proceed(), nil
}

// detectAndChooseTier never fails the run: detection errors degrade to the
// conservative default and prompt errors fall back to the detected tier.
func (d *Deployment) detectAndChooseTier(ctx context.Context, rc *workflow.RunContext) error {
	profile := d.detect(ctx)
	rc.Hardware = profile
	tier := hardware.TierFor(profile)
	rc.Logf(slog.LevelInfo, "detected hardware: accelerator=%t memory=%dGB, suggested tier %s",
		profile.HasAccelerator, profile.TotalMemoryGB, tier)

	if !d.NonInteractive && d.Prompts != nil {
		options := []string{
			string(hardware.TierMinimal),
			string(hardware.TierBalanced),
			string(hardware.TierMaximal),
		}
		answer, err := d.Prompts.AskChoice(ctx, "Model tier", options, string(tier))
		if err != nil {
			rc.Logf(slog.LevelWarn, "tier prompt failed, keeping detected tier %s: %v", tier, err)
		} else if chosen, valid := hardware.ParseTier(answer); valid {
			tier = chosen
		}
	}
	rc.Tier = tier

	if err := writeEnvValue(d.EnvPath, modelTierKey, string(tier)); err != nil {
		rc.Logf(slog.LevelWarn, "could not record model tier in configuration: %v", err)
	}
	return nil
}

// --- steps 4-5: image builds ---

func (d *Deployment) baseImageBuilt(ctx context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	if d.ForceRebuild {
		return workflow.Proceed(), nil
	}
	exists, err := d.Compose.ImageExists(ctx, d.BaseImage)
	if err != nil {
		return workflow.Proceed(), err
	}
	if exists {
		return workflow.SkipBecause(fmt.Sprintf("image %s present", d.BaseImage)), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) buildBaseImage(ctx context.Context, rc *workflow.RunContext) error {
	rc.Logf(slog.LevelInfo, "building base image %s", d.BaseImage)
	res, err := d.Compose.BuildImage(ctx, "base")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("base image build exited %d: %s", res.ExitCode, res.Tail(10))
	}
	return nil
}

func (d *Deployment) appImagesBuilt(ctx context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	if d.ForceRebuild {
		return workflow.Proceed(), nil
	}
	for _, image := range d.AppImages {
		exists, err := d.Compose.ImageExists(ctx, image)
		if err != nil {
			return workflow.Proceed(), err
		}
		if !exists {
			return workflow.Proceed(), nil
		}
	}
	return workflow.SkipBecause("application images present"), nil
}

func (d *Deployment) buildAppImages(ctx context.Context, rc *workflow.RunContext) error {
	rc.Logf(slog.LevelInfo, "building application images")
	res, err := d.Compose.BuildAll(ctx)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("application image build exited %d: %s", res.ExitCode, res.Tail(10))
	}
	return nil
}

// --- step 6: start-services ---

func (d *Deployment) servicesRunning(ctx context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	count, err := d.Compose.RunningCount(ctx)
	if err != nil {
		return workflow.Proceed(), err
	}
	if count >= d.ServiceCount && count > 0 {
		return workflow.SkipBecause(fmt.Sprintf("%d services already running", count)), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) startServices(ctx context.Context, rc *workflow.RunContext) error {
	rc.Logf(slog.LevelInfo, "starting services")
	res, err := d.Compose.Up(ctx)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("compose up exited %d: %s", res.ExitCode, res.Tail(10))
	}
	d.startedServices = true
	return nil
}

// --- step 7: verify-running ---

// alreadyVerifiedRunning skips only when this run did not itself start the
// services; a fresh start always gets the settle wait and count check.
func (d *Deployment) alreadyVerifiedRunning(ctx context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	if d.startedServices {
		return workflow.Proceed(), nil
	}
	count, err := d.Compose.RunningCount(ctx)
	if err != nil {
		return workflow.Proceed(), err
	}
	if count > 0 {
		return workflow.SkipBecause(fmt.Sprintf("%d services already running and verified", count)), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) settleWait(ctx context.Context, rc *workflow.RunContext) error {
	if d.Settle > 0 {
		rc.Logf(slog.LevelInfo, "waiting %s for services to settle", d.Settle)
		time.Sleep(d.Settle)
	}
	return nil
}

func (d *Deployment) awaitRunningCount(w Waits) func(ctx context.Context, rc *workflow.RunContext) error {
	return func(ctx context.Context, _ *workflow.RunContext) error {
		return probe.Await(ctx, probe.Check{
			Name: "running-services",
			Probe: func(ctx context.Context) bool {
				count, err := d.Compose.RunningCount(ctx)
				return err == nil && count > 0
			},
			Interval:    w.RunningInterval,
			MaxAttempts: w.RunningAttempts,
		})
	}
}

// --- step 8: verify-model-server ---

func (d *Deployment) modelServerReachable(ctx context.Context, _ *workflow.RunContext) (workflow.SkipDecision, error) {
	if d.Ollama == nil {
		return workflow.SkipBecause("model server not configured"), nil
	}
	if d.Ollama.Reachable(ctx) {
		d.modelServerUp = true
		return workflow.SkipBecause("model server reachable"), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) awaitModelServer(w Waits) func(ctx context.Context, rc *workflow.RunContext) error {
	return func(ctx context.Context, rc *workflow.RunContext) error {
		if !d.Ollama.Installed(ctx) {
			return fmt.Errorf("model server CLI %s not installed", d.Ollama.Bin)
		}
		rc.Logf(slog.LevelInfo, "model server installed, waiting for it to answer")
		err := probe.Await(ctx, probe.Check{
			Name:        "model-server",
			Probe:       func(ctx context.Context) bool { return d.Ollama.Reachable(ctx) },
			Interval:    w.ModelInterval,
			MaxAttempts: w.ModelAttempts,
		})
		if err != nil {
			return err
		}
		d.modelServerUp = true
		return nil
	}
}

// --- step 9: pull-tier-model ---

func (d *Deployment) modelAlreadyPulled(ctx context.Context, rc *workflow.RunContext) (workflow.SkipDecision, error) {
	if !d.modelServerUp {
		return workflow.SkipBecause("model server unavailable, skipping model pre-fetch"), nil
	}
	model := hardware.ModelForTier(rc.Tier)
	if d.Ollama.HasModel(ctx, model) {
		return workflow.SkipBecause(fmt.Sprintf("model %s already pulled", model)), nil
	}
	return workflow.Proceed(), nil
}

func (d *Deployment) pullTierModel(ctx context.Context, rc *workflow.RunContext) error {
	model := hardware.ModelForTier(rc.Tier)
	rc.Logf(slog.LevelInfo, "pulling model %s for tier %s", model, rc.Tier)
	res, err := d.Ollama.Pull(ctx, model)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("model pull exited %d: %s", res.ExitCode, res.Tail(10))
	}
	return nil
}
